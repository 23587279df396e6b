// Package main is the entry point for the buildmarkers command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/buildmarkers/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buildmarkers",
		Short: "Turn build tool output into file markers",
		Long: `buildmarkers reads the output of compilers, linters and test runners,
matches it against problem matchers and prints the diagnostics it finds
grouped by file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := cmd.Flags().GetString("log-level")
			if err != nil {
				return err
			}
			switch level {
			case "debug", "info", "warn", "error":
			default:
				return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringSliceP("config", "c", nil, "problem matcher contribution file (json, yaml, toml); repeatable")
	cmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("color", "auto", "color output (auto, always, never)")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newMatchersCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the logger selected by --log-level.
func newLogger(cmd *cobra.Command) *logging.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(level)
	cfg.Output = cmd.ErrOrStderr()
	return logging.New(cfg)
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
