package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/questbot/engine/encounters"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the compiled content against the encounter catalogue.
func validate(c *Content, ve *ValidationError) {
	// Timings must be consistent with each other.
	if c.Bot.MinCooldown > 0 && c.Bot.DefaultCooldown > 0 && c.Bot.DefaultCooldown < c.Bot.MinCooldown {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"default_cooldown %s is below min_cooldown %s", c.Bot.DefaultCooldown, c.Bot.MinCooldown))
	}

	seen := map[string]string{}
	for _, e := range c.Encounters {
		// One block per encounter.
		if prev, dup := seen[e.Name]; dup {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"duplicate encounter %q (%s and %s)", e.Name, prev, e.File))
			continue
		}
		seen[e.Name] = e.File

		spec, ok := encounters.Lookup(e.Name)
		if !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: unknown encounter %q", e.File, e.Name))
			continue
		}
		validateTuning(e, spec, ve)
	}

	// Warnings: party sizes left without a variant.
	for _, size := range uncoveredSizes(c) {
		ve.Warnings = append(ve.Warnings, fmt.Sprintf(
			"no enabled encounter for party size %d; such parties go straight to cooldown", size))
	}
}

func validateTuning(e EncounterDef, spec encounters.Spec, ve *ValidationError) {
	for _, key := range e.Tuning.Keys() {
		if _, known := spec.Defaults[key]; !known {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s: encounter %q has no tuning field %q (known: %s)",
				e.File, e.Name, key, strings.Join(spec.Defaults.Keys(), ", ")))
			continue
		}
		v := e.Tuning[key]
		if v < 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s: encounter %q: %s must not be negative, got %v", e.File, e.Name, key, v))
		}
		if strings.HasSuffix(key, "_chance") && v > 1 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s: encounter %q: %s is a probability, got %v", e.File, e.Name, key, v))
		}
	}
}

// uncoveredSizes lists party sizes up to the largest enabled one that have
// no enabled encounter.
func uncoveredSizes(c *Content) []int {
	disabled := map[string]bool{}
	for _, e := range c.Encounters {
		if !e.Enabled {
			disabled[e.Name] = true
		}
	}
	covered := map[int]bool{}
	largest := 0
	for _, s := range encounters.Catalog() {
		if disabled[s.Name] {
			continue
		}
		covered[s.PartySize] = true
		largest = max(largest, s.PartySize)
	}
	var out []int
	for size := 1; size <= largest; size++ {
		if !covered[size] {
			out = append(out, size)
		}
	}
	return out
}
