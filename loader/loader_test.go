package loader

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoad_Minimal(t *testing.T) {
	c, err := Load("testdata/minimal")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Bot.JoinWindow != 10*time.Second {
		t.Errorf("JoinWindow = %v, want 10s", c.Bot.JoinWindow)
	}
	if c.Bot.PhaseDuration != 0 {
		t.Errorf("PhaseDuration = %v, want unset", c.Bot.PhaseDuration)
	}
	if len(c.Encounters) != 0 {
		t.Errorf("encounters = %+v", c.Encounters)
	}
	if len(c.Warnings) != 0 {
		t.Errorf("warnings = %v", c.Warnings)
	}
}

func TestLoad_Full(t *testing.T) {
	c, err := Load("testdata/full")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// bot.lua first, then name order.
	if got := strings.Join(c.Files, ","); got != "bot.lua,groups.lua,solo.lua" {
		t.Errorf("Files = %s", got)
	}

	want := BotDef{
		JoinWindow:      15 * time.Second,
		PhaseDuration:   20 * time.Second,
		DefaultCooldown: 2 * time.Minute,
		MinCooldown:     10 * time.Second,
	}
	if c.Bot != want {
		t.Errorf("Bot = %+v, want %+v", c.Bot, want)
	}

	if len(c.Encounters) != 3 {
		t.Fatalf("expected 3 encounters, got %d", len(c.Encounters))
	}
	run := c.Encounters[0]
	if run.Name != "run" || run.File != "groups.lua" {
		t.Errorf("first encounter = %s from %s", run.Name, run.File)
	}
	if run.Tuning["drop_chance"] != 0.5 || run.Tuning["monster_level"] != 60 {
		t.Errorf("run tuning = %v", run.Tuning)
	}
	if !run.Enabled {
		t.Error("run should default to enabled")
	}

	over := c.Overrides()
	if !over["monster"].Disabled {
		t.Error("monster should be disabled")
	}
	if over["doors"].Disabled || over["doors"].Tuning.Int("gold_reward") != 200 {
		t.Errorf("doors override = %+v", over["doors"])
	}
	// doors still covers party size 1.
	if len(c.Warnings) != 0 {
		t.Errorf("warnings = %v", c.Warnings)
	}
}

func TestLoad_UnknownNames_Fails(t *testing.T) {
	_, err := Load("testdata/unknown_names")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	assertContains(t, ve.Errors, `unknown encounter "dragon"`)
	assertContains(t, ve.Errors, `no tuning field "gold_rewrd"`)
}

func TestLoad_Duplicates_Fails(t *testing.T) {
	_, err := Load("testdata/duplicates")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	assertContains(t, ve.Errors, "Bot{} defined more than once (a.lua and b.lua)")
	assertContains(t, ve.Errors, `duplicate encounter "gates" (a.lua and b.lua)`)
}

func TestLoad_BadValues_CollectsEveryError(t *testing.T) {
	_, err := Load("testdata/bad_values")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, want := range []string{
		`"join_window" must be positive`,
		`"phase_duration" must be a number of seconds`,
		`unknown Bot{} field "turbo"`,
		"gold_reward must not be negative",
		"enabled must be a boolean",
		"drop_chance is a probability",
	} {
		assertContains(t, ve.Errors, want)
	}
	if !strings.Contains(err.Error(), "6 error(s)") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoad_BadLuaSyntax_Fails(t *testing.T) {
	_, err := Load("testdata/bad_lua")
	if err == nil {
		t.Fatal("expected error for bad Lua syntax")
	}
	if !strings.Contains(err.Error(), "executing broken.lua") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoad_SandboxEnforced(t *testing.T) {
	_, err := Load("testdata/sandbox")
	if err == nil {
		t.Fatal("expected sandbox to block os.execute")
	}
}

func TestLoad_MissingDir(t *testing.T) {
	if _, err := Load("testdata/nope"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestSortedLuaFiles(t *testing.T) {
	got := sortedLuaFiles([]string{"z.lua", "bot.lua", "a.lua"})
	if strings.Join(got, ",") != "bot.lua,a.lua,z.lua" {
		t.Errorf("sorted = %v", got)
	}
}

func assertContains(t *testing.T, strs []string, substr string) {
	t.Helper()
	for _, s := range strs {
		if strings.Contains(s, substr) {
			return
		}
	}
	t.Errorf("expected one of %v to contain %q", strs, substr)
}
