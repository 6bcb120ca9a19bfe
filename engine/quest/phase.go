package quest

import (
	"strings"

	"github.com/nathoo/questbot/engine/router"
	"github.com/nathoo/questbot/types"
)

// Phase is embedded by segments to share the resolution guard. Resolve runs
// its function at most once per segment, whichever of the action handlers or
// the timeout gets there first.
type Phase struct {
	Q        *Quest
	resolved bool
}

// Bind installs no triggers.
func (p *Phase) Bind(*router.Router) {}

// Enter does nothing.
func (p *Phase) Enter() {}

// Resolve runs fn unless the phase already resolved. A panic in fn leaves
// the phase unresolved and propagates to the router, which recovers it.
func (p *Phase) Resolve(fn func()) bool {
	if p.resolved {
		return false
	}
	p.resolved = true
	defer func() {
		if r := recover(); r != nil {
			p.resolved = false
			panic(r)
		}
	}()
	fn()
	return true
}

// Resolved reports whether Resolve has run.
func (p *Phase) Resolved() bool {
	return p.resolved
}

// Member reports whether pl is in the quest party.
func (p *Phase) Member(pl types.PlayerID) bool {
	return p.Q.Party.Contains(pl)
}

// ListOut joins items for narration: "a", "a and b", "a, b, and c".
// Each item gets prefix; an empty list renders as "no one".
func ListOut(items []string, join, prefix string) string {
	if join == "" {
		join = "and"
	}
	switch len(items) {
	case 0:
		return "no one"
	case 1:
		return prefix + items[0]
	case 2:
		return prefix + items[0] + " " + join + " " + prefix + items[1]
	}
	var b strings.Builder
	for _, it := range items[:len(items)-1] {
		b.WriteString(prefix)
		b.WriteString(it)
		b.WriteString(", ")
	}
	b.WriteString(join)
	b.WriteString(" ")
	b.WriteString(prefix)
	b.WriteString(items[len(items)-1])
	return b.String()
}

// Names renders players as strings for ListOut.
func Names(players []types.PlayerID) []string {
	return playerStrings(players)
}
