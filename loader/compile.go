// Package loader loads Lua content files into Go structs: bot timings from a
// Bot{} block and per-encounter tuning from Encounter "name" {} blocks.
// The Lua VM is discarded after loading; zero Lua at runtime.
package loader

import (
	"fmt"
	"sort"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/questbot/engine"
	"github.com/nathoo/questbot/engine/encounters"
)

// rawBot holds a Bot{} table before compilation.
type rawBot struct {
	file  string
	table *lua.LTable
}

// rawEncounter holds an Encounter{} table before compilation.
type rawEncounter struct {
	name  string
	file  string
	table *lua.LTable
}

// BotDef holds timing overrides. Zero fields keep the configured value.
type BotDef struct {
	JoinWindow      time.Duration
	PhaseDuration   time.Duration
	DefaultCooldown time.Duration
	MinCooldown     time.Duration
}

// EncounterDef is one compiled Encounter block.
type EncounterDef struct {
	Name    string
	File    string
	Enabled bool
	Tuning  encounters.Tuning
}

// Content is everything loaded from a content directory.
type Content struct {
	Bot        BotDef
	Encounters []EncounterDef // source order
	Files      []string
	Warnings   []string
}

// Overrides converts the encounter blocks into catalogue overrides.
func (c *Content) Overrides() map[string]encounters.Override {
	out := make(map[string]encounters.Override, len(c.Encounters))
	for _, e := range c.Encounters {
		out[e.Name] = encounters.Override{Disabled: !e.Enabled, Tuning: e.Tuning}
	}
	return out
}

// Apply copies the non-zero bot timings into opts.
func (c *Content) Apply(opts *engine.Options) {
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&opts.Session.JoinWindow, c.Bot.JoinWindow)
	set(&opts.Session.PhaseDuration, c.Bot.PhaseDuration)
	set(&opts.Session.DefaultCooldown, c.Bot.DefaultCooldown)
	set(&opts.MinCooldown, c.Bot.MinCooldown)
}

// getNumber returns a numeric field and whether it was a number.
func getNumber(tbl *lua.LTable, key string) (float64, bool) {
	n, ok := tbl.RawGetString(key).(lua.LNumber)
	return float64(n), ok
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// stringKeys returns the table's string keys, sorted, and reports any
// non-string key.
func stringKeys(tbl *lua.LTable) (keys []string, other bool) {
	tbl.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			keys = append(keys, string(ks))
			return
		}
		other = true
	})
	sort.Strings(keys)
	return keys, other
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// compile turns the collected tables into Content. Shape problems go into
// the returned ValidationError; validate adds the cross-checks.
func compile(coll *collector) (*Content, *ValidationError) {
	ve := &ValidationError{}
	c := &Content{}
	compileBot(coll.bots, c, ve)
	for _, raw := range coll.encounters {
		c.Encounters = append(c.Encounters, compileEncounter(raw, ve))
	}
	return c, ve
}

func compileBot(bots []rawBot, c *Content, ve *ValidationError) {
	if len(bots) == 0 {
		return
	}
	if len(bots) > 1 {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"Bot{} defined more than once (%s and %s)", bots[0].file, bots[1].file))
	}
	raw := bots[len(bots)-1]

	fields := map[string]*time.Duration{
		"join_window":      &c.Bot.JoinWindow,
		"phase_duration":   &c.Bot.PhaseDuration,
		"default_cooldown": &c.Bot.DefaultCooldown,
		"min_cooldown":     &c.Bot.MinCooldown,
	}
	keys, other := stringKeys(raw.table)
	if other {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s: Bot{} has non-string keys", raw.file))
	}
	for _, key := range keys {
		dst, known := fields[key]
		if !known {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: unknown Bot{} field %q", raw.file, key))
			continue
		}
		v, ok := getNumber(raw.table, key)
		if !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: Bot{} field %q must be a number of seconds", raw.file, key))
			continue
		}
		if v <= 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: Bot{} field %q must be positive, got %v", raw.file, key, v))
			continue
		}
		*dst = seconds(v)
	}
}

func compileEncounter(raw rawEncounter, ve *ValidationError) EncounterDef {
	def := EncounterDef{
		Name:    raw.name,
		File:    raw.file,
		Enabled: getBool(raw.table, "enabled", true),
		Tuning:  encounters.Tuning{},
	}
	keys, other := stringKeys(raw.table)
	if other {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s: encounter %q has non-string keys", raw.file, raw.name))
	}
	for _, key := range keys {
		if key == "enabled" {
			if _, ok := raw.table.RawGetString(key).(lua.LBool); !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf("%s: encounter %q: enabled must be a boolean", raw.file, raw.name))
			}
			continue
		}
		v, ok := getNumber(raw.table, key)
		if !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: encounter %q: %s must be a number", raw.file, raw.name, key))
			continue
		}
		def.Tuning[key] = v
	}
	return def
}
