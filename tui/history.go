// Package tui provides a Bubble Tea chat simulator for the quest engine:
// several players typing into one channel, with the scheduler ticking in the
// background.
package tui

import "github.com/nathoo/questbot/types"

// entry is one submitted line and who said it.
type entry struct {
	speaker types.PlayerID
	text    string
}

// line renders the entry so that resubmitting it speaks as the same player.
func (e entry) line() string {
	if e.speaker == "" {
		return e.text
	}
	return string(e.speaker) + ": " + e.text
}

// History is a bounded list of submitted chat lines with cursor-based
// navigation. Recalled lines carry their speaker.
type History struct {
	entries []entry
	max     int
	cursor  int // -1 = not navigating, 0..len-1 = position in entries
}

// NewHistory creates a history buffer with the given maximum size.
func NewHistory(max int) *History {
	return &History{
		entries: make([]entry, 0, max),
		max:     max,
		cursor:  -1,
	}
}

// Push records text spoken by speaker. Consecutive duplicates are skipped.
// Meta-commands are pushed with an empty speaker.
func (h *History) Push(speaker types.PlayerID, text string) {
	e := entry{speaker: speaker, text: text}
	if n := len(h.entries); n > 0 && h.entries[n-1] == e {
		return
	}
	h.entries = append(h.entries, e)
	if len(h.entries) > h.max {
		h.entries = h.entries[1:]
	}
}

// Prev returns the previous (older) line. Returns ("", false) if history is
// empty.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor == -1 {
		h.cursor = len(h.entries) - 1
	} else if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor].line(), true
}

// Next returns the next (newer) line, or ("", false) when past the newest.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.entries) {
		h.cursor = -1
		return "", false
	}
	return h.entries[h.cursor].line(), true
}

// ResetCursor leaves navigation.
func (h *History) ResetCursor() {
	h.cursor = -1
}
