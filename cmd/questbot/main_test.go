package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with a throwaway config file.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("QUESTBOT_LOG_LEVEL", "error")
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheck_ShippedContent(t *testing.T) {
	out, err := execute(t, "check", "../../content")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "../../content: ok (2 file(s))") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "run      party of 5  enabled") {
		t.Errorf("expected encounter listing:\n%s", out)
	}
}

func TestCheck_ReportsEveryError(t *testing.T) {
	out, err := execute(t, "check", "../../loader/testdata/bad_values")
	if err == nil {
		t.Fatal("expected check to fail")
	}
	if got := strings.Count(out, "error: "); got < 2 {
		t.Errorf("expected several errors, got %d:\n%s", got, out)
	}
}

func TestCheck_DisabledEncounter(t *testing.T) {
	out, err := execute(t, "check", "../../loader/testdata/full")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "monster  party of 1  disabled") {
		t.Errorf("expected monster disabled:\n%s", out)
	}
}

func TestScript_PlaysQuest(t *testing.T) {
	script := writeScript(t, "alice: !quest\n@state\n@wait 12s\n@state\nalice: !stats\n")
	out, err := execute(t, "--content", "../../content", "--seed", "42", "script", script)
	if err != nil {
		t.Fatalf("script: %v\n%s", err, out)
	}
	for _, want := range []string{
		"> alice: !quest",
		"[#streamer] alice wants to attempt a quest.",
		"[#streamer: forming_party, party alice, 12s left]",
		"[#streamer: active, party alice,",
		"[whisper → alice] Level: 1 (0 Exp), Gold: 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestScript_IsDeterministic(t *testing.T) {
	script := writeScript(t, "alice: !quest\nbob: !quest\n@wait 12s\n@wait 12s\n@wait 12s\n@state\n")
	first, err := execute(t, "--content", "../../content", "--seed", "7", "script", "-q", script)
	if err != nil {
		t.Fatal(err)
	}
	second, err := execute(t, "--content", "../../content", "--seed", "7", "script", "-q", script)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("replays differ:\n%s\n---\n%s", first, second)
	}
	if strings.Contains(first, "> alice") {
		t.Error("-q should not echo script lines")
	}
}

func TestScript_MissingFile(t *testing.T) {
	_, err := execute(t, "script", filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil || !strings.Contains(err.Error(), "opening script") {
		t.Errorf("err = %v", err)
	}
}

func TestScript_ChannelFlag(t *testing.T) {
	script := writeScript(t, "alice: !quest\n")
	out, err := execute(t, "--content", "../../content", "--channel", "Other", "script", script)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[#other] alice wants to attempt a quest.") {
		t.Errorf("expected quest in #other:\n%s", out)
	}
}

func TestConsole_ReadsStdin(t *testing.T) {
	t.Setenv("QUESTBOT_LOG_LEVEL", "error")
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetIn(strings.NewReader("alice: !quest\n/quit\n"))
	root.SetArgs([]string{"--config", cfg, "--content", "../../content", "console"})
	if err := root.Execute(); err != nil {
		t.Fatalf("console: %v", err)
	}
	if !strings.Contains(out.String(), "alice wants to attempt a quest.") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
