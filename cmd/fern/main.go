package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fern/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "fern",
	Short: "Fern language interpreter and backtrace tools",
	Long:  `Fern is a small dynamic language with tree-structured error backtraces`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		mode, _ := cmd.Flags().GetString("color")
		return applyColorMode(mode, isTerminal(os.Stderr))
	},
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to fern.toml (default: ./fern.toml when present)")
	rootCmd.PersistentFlags().String("simplify", "", "backtrace simplification mode (none|collapse|branch)")
	rootCmd.PersistentFlags().Int("max-frames", 0, "truncate branch backtraces to this many frames (0 = no limit)")
	rootCmd.PersistentFlags().Bool("ascii", false, "render backtraces with ASCII connectors")
	rootCmd.PersistentFlags().Bool("frame-numbers", false, "number backtrace frames by stack position")
	rootCmd.PersistentFlags().Bool("no-srcrefs", false, "hide source references in backtraces")
	rootCmd.PersistentFlags().String("top-env", "", "function name bounding backtrace capture")
	rootCmd.PersistentFlags().String("color", "auto", "colorize diagnostics (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress warnings and per-file ok lines")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// applyColorMode resolves the --color flag against the terminal state and
// flips the process-wide color toggle.
func applyColorMode(mode string, tty bool) error {
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !tty
	default:
		return fmt.Errorf("unsupported color mode %q (must be auto, on, or off)", mode)
	}
	return nil
}
