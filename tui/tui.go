package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/questbot/cli"
	"github.com/nathoo/questbot/engine"
	"github.com/nathoo/questbot/types"
)

// Outbox is the engine's Messenger in TUI mode. The model drains it after
// every engine call and renders what it holds.
type Outbox struct {
	mu    sync.Mutex
	lines []chatLine
}

type chatLine struct {
	channel string
	to      types.PlayerID
	text    string
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// SendMessage implements types.Messenger.
func (o *Outbox) SendMessage(channelID, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, chatLine{channel: channelID, text: text})
}

// SendWhisper implements types.Messenger.
func (o *Outbox) SendWhisper(p types.PlayerID, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, chatLine{to: p, text: text})
}

func (o *Outbox) drain() []chatLine {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.lines
	o.lines = nil
	return out
}

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	channel  string
	to       types.PlayerID
	kind     lineKind
	isInput  bool
	isSystem bool
}

// Options configure the simulator.
type Options struct {
	Channel string
	// Player speaks lines without a "name:" prefix. Defaults to the
	// channel owner.
	Player types.PlayerID
	// Tick is how often the scheduler is polled.
	Tick time.Duration
	// Clock stamps commands. Defaults to time.Now.
	Clock func() time.Time
}

// Model is the Bubble Tea model for the chat simulator.
type Model struct {
	engine *engine.Engine
	outbox *Outbox

	channel  string
	player   types.PlayerID
	interval time.Duration
	clock    func() time.Time

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine

	width    int
	height   int
	ready    bool
	quitting bool
}

// tickMsg asks the model to advance the scheduler.
type tickMsg time.Time

// systemOutputMsg carries simulator messages into the Update loop.
type systemOutputMsg struct {
	lines []string
}

// New creates a simulator model. outbox must be the engine's Messenger.
func New(eng *engine.Engine, outbox *Outbox, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	if opts.Tick <= 0 {
		opts.Tick = engine.DefaultOptions().TickInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Player == "" {
		opts.Player = types.NewPlayerID(strings.TrimPrefix(opts.Channel, "#"))
	}
	eng.Join(opts.Channel)

	return Model{
		engine:   eng,
		outbox:   outbox,
		channel:  opts.Channel,
		player:   opts.Player,
		interval: opts.Tick,
		clock:    opts.Clock,
		input:    ti,
		history:  NewHistory(100),
	}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine, outbox *Outbox, opts Options) error {
	m := New(eng, outbox, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init starts the blinking cursor and the scheduler tick, and greets.
func (m Model) Init() tea.Cmd {
	greeting := func() tea.Msg {
		return systemOutputMsg{lines: []string{
			fmt.Sprintf("Chatting in %s as %s. Type /help for commands.", m.channel, m.player),
		}}
	}
	return tea.Batch(textinput.Blink, m.tick(), greeting)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles key presses, window resizes and scheduler ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tickMsg:
		m.engine.OnTick(time.Time(msg))
		m = m.drain()
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case systemOutputMsg:
		m = m.appendSystem(msg.lines...)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}
	m.history.ResetCursor()

	if strings.HasPrefix(input, "/") {
		m.history.Push("", input)
		output, quit := m.handleMeta(input)
		m = m.appendSystem(output...)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	player, text := cli.ParseLine(input, m.player)
	m.history.Push(player, text)
	m.rawLines = append(m.rawLines, rawLine{text: string(player) + ": " + text, isInput: true})

	m.engine.OnTick(m.clock())
	m.engine.OnCommand(m.channel, player, text)
	m = m.drain()
	return m, nil
}

// drain moves everything the engine sent into the scrollback.
func (m Model) drain() Model {
	for _, l := range m.outbox.drain() {
		rl := rawLine{text: l.text, channel: l.channel, to: l.to}
		if l.to == "" {
			rl.kind = classifyLine(l.text)
		}
		m.rawLines = append(m.rawLines, rl)
	}
	m.refreshViewport()
	return m
}

// appendSystem adds simulator output and refreshes the viewport.
func (m Model) appendSystem(lines ...string) Model {
	for _, line := range lines {
		m.rawLines = append(m.rawLines, rawLine{text: line, isSystem: true})
	}
	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wordWrap(rl.text, width)))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wordWrap(rl.text, width-2)))
		case rl.to != "":
			tag := "[whisper → " + string(rl.to) + "] "
			styled = append(styled, styleWhisper.Render(tag+wordWrap(rl.text, width-len(tag))))
		default:
			tag := "[" + rl.channel + "] "
			styled = append(styled, styleChannelTag.Render(tag)+renderLineKind(wordWrap(rl.text, width-len(tag)), rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/as":
		p := types.NewPlayerID(arg)
		if p == "" {
			return []string{"Usage: /as <name>"}, false
		}
		m.player = p
		return []string{fmt.Sprintf("Now speaking as %s.", p)}, false

	case "/channel":
		if arg == "" {
			return []string{"Usage: /channel <#name>"}, false
		}
		m.channel = "#" + strings.ToLower(strings.TrimPrefix(arg, "#"))
		m.engine.Join(m.channel)
		return []string{fmt.Sprintf("Switched to %s.", m.channel)}, false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /as <name>        Speak as another player",
		"  /channel <#name>  Join and chat in another channel",
		"  /state            Show the quest session",
		"  /quit             Exit",
		"  /help             Show this help",
		"",
		"Type \"name: text\" to speak once as someone else.",
		"",
		"Quest commands:",
		"  !quest                       Start or join a quest",
		"  !queston / !questoff         Enable or disable questing (mods)",
		"  !questcooldown <seconds>     Set the cooldown (mods)",
		"  !stats !gold !exp !prestige  Player progression (whispered)",
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for chat history",
	}
}

func (m *Model) cmdState() []string {
	st, err := m.engine.Status(m.channel)
	if err != nil {
		return []string{err.Error()}
	}
	output := []string{cli.FormatStatus(st)}
	if sizes := m.engine.Registry().Sizes(); len(sizes) > 0 {
		output = append(output, fmt.Sprintf("Encounters for party sizes %v.", sizes))
	}
	return output
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
