// Questbot runs chat quest mini-games: parties form in a channel, play a
// scripted encounter on timers, and earn gold and experience.
//
// Usage: questbot [play|console|script|check] [flags]
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	// Query the terminal background before Bubble Tea owns stdin, so the
	// OSC 11 reply cannot land in the input line.
	_ = lipgloss.HasDarkBackground()
}

// flags are shared by every subcommand.
type flags struct {
	config  string
	content string
	channel string
	seed    int64
	verbose bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "questbot",
		Short: "Chat quest mini-games",
		Long: `questbot runs party quests for chat channels. Players type !quest to form a
party, then race each other through timed encounters for gold and experience.

Run without a subcommand to open the chat simulator.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "config file (default: .questbot/config.yaml)")
	pf.StringVar(&f.content, "content", "", "Lua content directory (overrides content.dir)")
	pf.StringVar(&f.channel, "channel", "", "channel to chat in (default: first configured channel)")
	pf.Int64Var(&f.seed, "seed", 0, "random seed (overrides engine.seed; 0 keeps the config value)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newPlayCmd(f),
		newConsoleCmd(f),
		newScriptCmd(f),
		newCheckCmd(f),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
