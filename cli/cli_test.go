package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nathoo/questbot/engine"
	"github.com/nathoo/questbot/engine/quest"
	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/store/memory"
	"github.com/nathoo/questbot/types"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// dash pays whoever types !go first and ends the quest.
type dash struct{}

func (dash) Name() string { return "dash" }

func (dash) Begin(*quest.Quest) quest.SegmentFactory {
	return func(q *quest.Quest) quest.Segment { return &dashSeg{Phase: quest.Phase{Q: q}} }
}

type dashSeg struct{ quest.Phase }

func (s *dashSeg) Bind(r *router.Router) {
	r.Handle("!go", func(p types.PlayerID) {
		if !s.Member(p) {
			return
		}
		s.Resolve(func() {
			s.Q.Say("%s dashes to the treasure!", p)
			s.Q.Reward([]types.PlayerID{p}, 25, 2)
			s.Q.Complete()
		})
	})
}

func (s *dashSeg) Enter() { s.Q.Say("The race begins for %s!", s.Q.Party.Leader()) }

func (s *dashSeg) Timeout() {
	s.Resolve(func() {
		s.Q.Say("Nobody moved.")
		s.Q.Complete()
	})
}

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer, *memory.Store) {
	t.Helper()
	var out bytes.Buffer
	store := memory.New()
	printer := NewPrinter(&out)
	opts := engine.DefaultOptions()
	opts.Seed = 3
	eng := engine.New(opts, engine.Deps{Messenger: printer, Ledger: store, Profiles: store}, epoch)
	for _, size := range []int{1, 2} {
		if err := eng.RegisterVariant(size, dash{}); err != nil {
			t.Fatal(err)
		}
	}
	c := New(eng, printer, "#streamer")
	c.In = strings.NewReader(input)
	return c, &out, store
}

func runScript(t *testing.T, c *CLI) {
	t.Helper()
	if err := c.RunScript(); err != nil {
		t.Fatalf("RunScript: %v", err)
	}
}

func TestPrinter_Formats(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out)
	p.SendMessage("#streamer", "hello")
	p.SendWhisper("alice", "psst")

	want := "[#streamer] hello\n[whisper → alice] psst\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestScript_QuestPlaysOnVirtualClock(t *testing.T) {
	c, out, store := newTestCLI(t, `
# a solo run
alice: !quest
@state
@wait 12s
alice: !go
@state
`)
	runScript(t, c)

	output := out.String()
	for _, want := range []string{
		"[#streamer] alice wants to attempt a quest.",
		"[#streamer: forming_party, party alice, 12s left]",
		"[#streamer] The race begins for alice!",
		"[#streamer] alice dashes to the treasure!",
		"[#streamer: on_cooldown, 1m30s left]",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if gold := store.Stats("alice").Gold; gold != 25 {
		t.Errorf("alice gold = %d, want 25", gold)
	}
}

func TestScript_WaitFiresTimeout(t *testing.T) {
	c, out, _ := newTestCLI(t, "alice: !quest\n@wait 12s\n@wait 12s\n@state\n")
	runScript(t, c)

	output := out.String()
	if !strings.Contains(output, "Nobody moved.") {
		t.Errorf("expected timeout narration:\n%s", output)
	}
	if !strings.Contains(output, "on_cooldown") {
		t.Errorf("expected cooldown after timeout:\n%s", output)
	}
}

func TestScript_AsSwitchesSpeaker(t *testing.T) {
	c, out, _ := newTestCLI(t, "/as Bob\n!quest\n")
	runScript(t, c)

	output := out.String()
	if !strings.Contains(output, "Now speaking as bob.") {
		t.Error("expected speaker change")
	}
	if !strings.Contains(output, "bob wants to attempt a quest.") {
		t.Errorf("expected bob to start the quest:\n%s", output)
	}
}

func TestScript_StatsAreWhispered(t *testing.T) {
	c, out, store := newTestCLI(t, "alice: !stats\n")
	store.ApplyReward(types.Outcome{Players: []types.PlayerID{"alice"}, Gold: 50, Exp: 3})
	runScript(t, c)

	if !strings.Contains(out.String(), "[whisper → alice] Level: 2 (3 Exp), Gold: 50") {
		t.Errorf("expected stats whisper:\n%s", out.String())
	}
}

func TestScript_EchoInput(t *testing.T) {
	c, out, _ := newTestCLI(t, "alice: !quest\n")
	c.EchoInput = true
	runScript(t, c)

	if !strings.HasPrefix(out.String(), "> alice: !quest\n") {
		t.Errorf("expected echoed input first:\n%s", out.String())
	}
}

func TestScript_BadDirective(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"unknown", "@teleport\n", "line 1: unknown directive @teleport"},
		{"bad duration", "\n@wait soon\n", "line 2: @wait"},
		{"negative", "@wait -5s\n", "negative duration"},
		{"missing argument", "@wait\n", "usage: @wait"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestCLI(t, tt.script)
			err := c.RunScript()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("RunScript = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestScript_QuitStopsPlayback(t *testing.T) {
	c, out, _ := newTestCLI(t, "/quit\nalice: !quest\n")
	runScript(t, c)

	if strings.Contains(out.String(), "wants to attempt") {
		t.Error("lines after /quit should not run")
	}
}

func TestParse(t *testing.T) {
	c := &CLI{Player: "streamer"}
	tests := []struct {
		line   string
		player types.PlayerID
		text   string
	}{
		{"Alice: !quest", "alice", "!quest"},
		{"!quest", "streamer", "!quest"},
		{"!questcooldown 90", "streamer", "!questcooldown 90"},
		{"hello there: friend", "streamer", "hello there: friend"},
		{"!odd: thing", "streamer", "!odd: thing"},
	}
	for _, tt := range tests {
		p, text := c.parse(tt.line)
		if p != tt.player || text != tt.text {
			t.Errorf("parse(%q) = %q, %q; want %q, %q", tt.line, p, text, tt.player, tt.text)
		}
	}
}

func TestCLI_HelpAndUnknown(t *testing.T) {
	c, out, _ := newTestCLI(t, "/help\n/bogus\n")
	runScript(t, c)

	output := out.String()
	for _, want := range []string{"/as <name>", "/state", "/quit", "Unknown command: /bogus"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}

func TestCLI_ChannelSwitch(t *testing.T) {
	c, out, _ := newTestCLI(t, "/channel #Other\nalice: !quest\n@state\n")
	runScript(t, c)

	output := out.String()
	if !strings.Contains(output, "Switched to #other.") {
		t.Error("expected channel switch")
	}
	if !strings.Contains(output, "[#other] alice wants to attempt a quest.") {
		t.Errorf("expected quest in #other:\n%s", output)
	}
	if len(c.Engine.Channels()) != 2 {
		t.Errorf("channels = %v", c.Engine.Channels())
	}
}

func TestConsole_RunsUntilQuit(t *testing.T) {
	c, out, _ := newTestCLI(t, "alice: !quest\n/state\n/quit\nbob: !quest\n")

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop on /quit")
	}

	output := out.String()
	if !strings.Contains(output, "Chatting in #streamer as streamer.") {
		t.Error("expected greeting")
	}
	if !strings.Contains(output, "alice wants to attempt a quest.") {
		t.Errorf("expected quest start:\n%s", output)
	}
	if !strings.Contains(output, "forming_party") {
		t.Errorf("expected /state output:\n%s", output)
	}
	if strings.Contains(output, "bob") {
		t.Error("lines after /quit should not run")
	}
}

func TestConsole_StopsAtEndOfInput(t *testing.T) {
	c, _, _ := newTestCLI(t, "alice: !quest\n")

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop at EOF")
	}
}

func TestFormatStatus(t *testing.T) {
	c, _, _ := newTestCLI(t, "")
	st, err := c.Engine.Status("#streamer")
	if err != nil {
		t.Fatal(err)
	}
	if got := FormatStatus(st); got != "#streamer: ready" {
		t.Errorf("FormatStatus = %q", got)
	}
}
