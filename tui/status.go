package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/questbot/engine/session"
)

// timerLabel renders what the remaining time is counting down to.
func timerLabel(st session.Status) string {
	if st.Remaining <= 0 {
		return ""
	}
	secs := int((st.Remaining + time.Second - 1) / time.Second)
	switch {
	case st.Variant != "":
		return fmt.Sprintf("%s %d: %ds", st.Variant, st.Phase, secs)
	default:
		return fmt.Sprintf("%s: %ds", st.State, secs)
	}
}

// renderStatusBar produces a full-width inverted status line showing the
// channel, session state, party and the running timer.
func (m Model) renderStatusBar() string {
	st, err := m.engine.Status(m.channel)
	if err != nil {
		return styleStatusBar.Width(m.width).Render(" " + err.Error())
	}

	left := fmt.Sprintf(" %s | ", m.channel) + styleStatusState.Render(st.State.String())
	if len(st.Party) > 0 {
		names := make([]string, len(st.Party))
		for i, p := range st.Party {
			names[i] = string(p)
		}
		candidate := left + " | Party: " + strings.Join(names, ", ")
		if lipgloss.Width(candidate)+20 < m.width {
			left = candidate
		} else {
			left += fmt.Sprintf(" | Party: %d", len(st.Party))
		}
	}

	right := fmt.Sprintf("as %s ", m.player)
	if t := timerLabel(st); t != "" {
		right = t + " | " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
