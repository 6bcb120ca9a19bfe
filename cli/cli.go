// Package cli provides a plain line transport for the quest engine: an
// interactive console driven by the wall clock and a script player driven by
// a virtual clock.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nathoo/questbot/engine"
	"github.com/nathoo/questbot/engine/session"
	"github.com/nathoo/questbot/types"
)

// Printer is a Messenger that writes chat lines to a terminal.
type Printer struct {
	mu  sync.Mutex
	Out io.Writer
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{Out: out}
}

// SendMessage implements types.Messenger.
func (p *Printer) SendMessage(channelID, text string) {
	p.printf("[%s] %s\n", channelID, text)
}

// SendWhisper implements types.Messenger.
func (p *Printer) SendWhisper(player types.PlayerID, text string) {
	p.printf("[whisper → %s] %s\n", player, text)
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Out, format, args...)
}

// CLI reads chat lines and feeds them to the engine. A line is either
// "name: text" or plain text spoken by the current player (see /as).
type CLI struct {
	Engine  *engine.Engine
	Channel string
	Player  types.PlayerID
	In      io.Reader
	Printer *Printer
	// EchoInput repeats each input line, for script playback.
	EchoInput bool

	now time.Time // virtual clock in script mode
}

// New creates a CLI for channelID. The channel is joined if it wasn't.
func New(eng *engine.Engine, printer *Printer, channelID string) *CLI {
	eng.Join(channelID)
	return &CLI{
		Engine:  eng,
		Channel: channelID,
		Player:  types.NewPlayerID(strings.TrimPrefix(channelID, "#")),
		In:      os.Stdin,
		Printer: printer,
	}
}

// Run is the interactive console. The engine runs its host loop on a second
// goroutine; every command and meta-command reaches it through the input
// channel. Run returns when input ends, /quit is typed or ctx is done.
func (c *CLI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputs := make(chan engine.Input)
	done := make(chan error, 1)
	go func() { done <- c.Engine.Run(ctx, inputs) }()

	c.printSystem(fmt.Sprintf("Chatting in %s as %s. Type /help for commands.", c.Channel, c.Player))

	send := func(in engine.Input) bool {
		select {
		case inputs <- in:
			return true
		case <-ctx.Done():
			return false
		}
	}

	lines := c.lines(ctx)
loop:
	for {
		var line string
		select {
		case <-ctx.Done():
			break loop
		case l, ok := <-lines:
			if !ok {
				break loop
			}
			line = l
		}

		if strings.HasPrefix(line, "/") {
			in, quit := c.handleMeta(line)
			if quit {
				break loop
			}
			if in != nil && !send(*in) {
				break loop
			}
			continue
		}

		player, text := c.parse(line)
		if !send(engine.Input{Channel: c.Channel, Player: player, Text: text}) {
			break loop
		}
	}

	close(inputs)
	err := <-done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// lines scans In on its own goroutine. The goroutine ends at EOF; a blocked
// read on a terminal is left behind when ctx ends first.
func (c *CLI) lines(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(c.In)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// RunScript plays In against a virtual clock that starts at the engine's
// clock. "@wait 5s" advances the clock and fires due deadlines; "@state"
// prints the session. Nothing here touches the wall clock, so a script
// replays identically for a fixed seed.
func (c *CLI) RunScript() error {
	c.now = c.Engine.Now()
	scanner := bufio.NewScanner(c.In)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine("> " + line)
		}

		switch {
		case strings.HasPrefix(line, "@"):
			if err := c.directive(line); err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
		case strings.HasPrefix(line, "/"):
			in, quit := c.handleMeta(line)
			if quit {
				return nil
			}
			if in != nil {
				in.Apply(c.Engine)
			}
		default:
			player, text := c.parse(line)
			c.Engine.OnTick(c.now)
			c.Engine.OnCommand(c.Channel, player, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	return nil
}

func (c *CLI) directive(line string) error {
	parts := strings.Fields(line)
	switch parts[0] {
	case "@wait":
		if len(parts) != 2 {
			return fmt.Errorf("usage: @wait <duration>")
		}
		d, err := time.ParseDuration(parts[1])
		if err != nil {
			return fmt.Errorf("@wait: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("@wait: negative duration %s", d)
		}
		c.now = c.now.Add(d)
		c.Engine.OnTick(c.now)
	case "@state":
		c.printState(c.Engine, c.Channel)
	default:
		return fmt.Errorf("unknown directive %s", parts[0])
	}
	return nil
}

// handleMeta handles a slash command. Commands that need the engine are
// returned as an Input to run on the engine's goroutine.
func (c *CLI) handleMeta(input string) (*engine.Input, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return nil, true

	case "/as":
		p := types.NewPlayerID(arg)
		if p == "" {
			c.printSystem("Usage: /as <name>")
			return nil, false
		}
		c.Player = p
		c.printSystem(fmt.Sprintf("Now speaking as %s.", p))

	case "/channel":
		if arg == "" {
			c.printSystem("Usage: /channel <#name>")
			return nil, false
		}
		id := "#" + strings.ToLower(strings.TrimPrefix(arg, "#"))
		c.Channel = id
		return &engine.Input{Apply: func(e *engine.Engine) {
			e.Join(id)
			c.printSystem(fmt.Sprintf("Switched to %s.", id))
		}}, false

	case "/state":
		channelID := c.Channel
		return &engine.Input{Apply: func(e *engine.Engine) { c.printState(e, channelID) }}, false

	case "/help":
		c.cmdHelp()

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}
	return nil, false
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /as <name>        Speak as another player",
		"  /channel <#name>  Switch channel",
		"  /state            Show the quest session",
		"  /quit             Exit",
		"  /help             Show this help",
		"",
		"Chat lines are \"name: text\" or just text from the current player.",
		"",
		"Quest commands:",
		"  !quest                       Start or join a quest",
		"  !queston / !questoff         Enable or disable questing (mods)",
		"  !questcooldown <seconds>     Set the cooldown (mods)",
		"  !stats !gold !exp !prestige  Player progression (whispered)",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) printState(e *engine.Engine, channelID string) {
	st, err := e.Status(channelID)
	if err != nil {
		c.printSystem(err.Error())
		return
	}
	c.printSystem(FormatStatus(st))
}

// FormatStatus renders a session snapshot on one line.
func FormatStatus(st session.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", st.Channel, st.State)
	if len(st.Party) > 0 {
		names := make([]string, len(st.Party))
		for i, p := range st.Party {
			names[i] = string(p)
		}
		fmt.Fprintf(&b, ", party %s", strings.Join(names, ", "))
	}
	if st.Variant != "" {
		fmt.Fprintf(&b, ", %s phase %d", st.Variant, st.Phase)
	}
	if st.Remaining > 0 {
		fmt.Fprintf(&b, ", %s left", st.Remaining.Round(time.Second))
	}
	return b.String()
}

func (c *CLI) parse(line string) (types.PlayerID, string) {
	return ParseLine(line, c.Player)
}

// ParseLine splits "name: text". Anything else is spoken by current.
func ParseLine(line string, current types.PlayerID) (types.PlayerID, string) {
	if name, text, ok := strings.Cut(line, ":"); ok {
		name = strings.TrimSpace(name)
		if name != "" && !strings.ContainsAny(name, " \t!") {
			return types.NewPlayerID(name), strings.TrimSpace(text)
		}
	}
	return current, line
}

func (c *CLI) printLine(text string) {
	c.Printer.printf("%s\n", text)
}

func (c *CLI) printSystem(text string) {
	c.Printer.printf("[%s]\n", text)
}
