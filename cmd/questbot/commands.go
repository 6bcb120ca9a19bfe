package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nathoo/questbot/cli"
	"github.com/nathoo/questbot/config"
	"github.com/nathoo/questbot/engine/encounters"
	"github.com/nathoo/questbot/loader"
	"github.com/nathoo/questbot/tui"
)

func newPlayCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Open the chat simulator",
		Long: `Opens a terminal chat where you can speak as any number of players.
Falls back to the plain console when stdout is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, f)
		},
	}
}

func runPlay(cmd *cobra.Command, f *flags) error {
	if !isTerminal() {
		return runConsole(cmd, f)
	}

	a, err := setup(f, setupOptions{logFile: defaultLogFile, persist: true, watch: true})
	if err != nil {
		return err
	}
	defer a.Close()

	outbox := tui.NewOutbox()
	channelID := a.channelID(f)
	eng, err := a.newEngine(outbox, time.Now(), channelID)
	if err != nil {
		return err
	}
	return tui.Run(eng, outbox, tui.Options{Channel: channelID, Tick: a.cfg.Engine.TickInterval})
}

func newConsoleCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Chat through plain stdin/stdout lines",
		Long: `Reads chat lines from stdin ("name: text", or text spoken by the current
player) and prints channel messages and whispers. Timers run on the wall clock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, f)
		},
	}
}

func runConsole(cmd *cobra.Command, f *flags) error {
	a, err := setup(f, setupOptions{persist: true, watch: true})
	if err != nil {
		return err
	}
	defer a.Close()

	printer := cli.NewPrinter(cmd.OutOrStdout())
	channelID := a.channelID(f)
	eng, err := a.newEngine(printer, time.Now(), channelID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cli.New(eng, printer, channelID)
	c.In = cmd.InOrStdin()
	return c.Run(ctx)
}

func newScriptCmd(f *flags) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "script <file>",
		Short: "Replay a chat script on a virtual clock",
		Long: `Replays a file of chat lines. "@wait 12s" advances the clock and fires
due timers, "@state" prints the session. With a fixed --seed a script
replays identically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening script: %w", err)
			}
			defer file.Close()

			a, err := setup(f, setupOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			printer := cli.NewPrinter(cmd.OutOrStdout())
			channelID := a.channelID(f)
			eng, err := a.newEngine(printer, time.Unix(0, 0).UTC(), channelID)
			if err != nil {
				return err
			}
			c := cli.New(eng, printer, channelID)
			c.In = file
			c.EchoInput = !quiet
			return c.RunScript()
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not echo script lines")
	return cmd
}

func newCheckCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "check [content-dir]",
		Short: "Validate Lua content",
		Long:  "Loads a content directory, reports every problem, and lists the encounters it leaves enabled.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := f.content
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				cfg, _, err := config.Load(f.config)
				if err != nil {
					return err
				}
				dir = cfg.Content.Dir
			}
			return runCheck(cmd, dir)
		},
	}
}

func runCheck(cmd *cobra.Command, dir string) error {
	out := cmd.OutOrStdout()
	content, err := loader.Load(dir)
	if err != nil {
		var ve *loader.ValidationError
		if errors.As(err, &ve) {
			for _, e := range ve.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}
			for _, w := range ve.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			return fmt.Errorf("%s: %d error(s)", dir, len(ve.Errors))
		}
		return err
	}

	for _, w := range content.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	overrides := content.Overrides()
	for _, s := range encounters.Catalog() {
		status := "enabled"
		if overrides[s.Name].Disabled {
			status = "disabled"
		}
		fmt.Fprintf(out, "%-8s party of %d  %s\n", s.Name, s.PartySize, status)
	}
	fmt.Fprintf(out, "%s: ok (%d file(s))\n", dir, len(content.Files))
	return nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
