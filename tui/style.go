package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleStatusState = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Foreground(lipgloss.Color("214")).
				Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleChannelTag = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	styleWhisper = lipgloss.NewStyle().
			Foreground(lipgloss.Color("177")).
			Italic(true)

	styleAnnounce = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleRefusal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))
)

// lineKind identifies the type of a chat line for styling.
type lineKind int

const (
	kindNarration lineKind = iota
	kindAnnounce
	kindRefusal
	kindOperator
)

// classifyLine determines what kind of channel message this is.
func classifyLine(text string) lineKind {
	switch {
	case strings.HasPrefix(text, "Sorry "):
		return kindRefusal
	case strings.Contains(text, "wants to attempt a quest"),
		strings.Contains(text, "has prestiged"):
		return kindAnnounce
	case strings.HasPrefix(text, "Questing "),
		strings.HasPrefix(text, "Channel cooldown"),
		strings.HasPrefix(text, "Cooldown must"):
		return kindOperator
	default:
		return kindNarration
	}
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(text string, kind lineKind) string {
	switch kind {
	case kindAnnounce:
		return styleAnnounce.Render(text)
	case kindRefusal:
		return styleRefusal.Render(text)
	case kindOperator:
		return styleSystem.Render(text)
	default:
		return styleNarration.Render(text)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
