package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fern/internal/condition"
	"fern/internal/config"
	"fern/internal/interp"
	"fern/internal/parser"
	"fern/internal/source"
)

var (
	errLabelColor  = color.New(color.FgRed, color.Bold)
	warnLabelColor = color.New(color.FgYellow)
)

func errorLabel() string { return errLabelColor.Sprint("error:") }
func warnLabel() string  { return warnLabelColor.Sprint("warning:") }

var runCmd = &cobra.Command{
	Use:   "run [flags] <file.fn>",
	Short: "Evaluate a Fern program",
	Long:  `Evaluate a Fern source file; on error, print the backtrace in the configured form`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExecution,
}

func init() {
	runCmd.Flags().Bool("last-error", false, "after the program finishes, print the last error condition even if a handler caught it")
}

func runExecution(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	fs := source.NewFileSet()
	if wd, wdErr := os.Getwd(); wdErr == nil {
		fs.SetBaseDir(wd)
	}
	id, err := fs.Load(args[0])
	if err != nil {
		return err
	}

	prog, parseErrs := parser.New(fs.Get(id)).Parse()
	if len(parseErrs) > 0 {
		for _, pe := range parseErrs {
			fmt.Fprintln(os.Stderr, pe)
		}
		os.Exit(1)
	}

	in := interp.New(fs, config.NewStore(opts))
	_, runErr := in.Run(prog)

	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		for _, w := range in.Warnings {
			fmt.Fprintf(os.Stderr, "%s %s\n", warnLabel(), w.Message)
		}
	}

	if runErr != nil {
		cond, ok := runErr.(*condition.Condition)
		if !ok {
			return runErr
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", errorLabel(), cond.Message)
		if cond.Trace != nil && cond.Trace.Len() > 0 {
			if werr := writeTrace(os.Stderr, cond.Trace, fs, opts); werr != nil {
				return werr
			}
		}
		os.Exit(1)
	}

	// A handled error never reaches the branch above; --last-error digs
	// it out of the session for inspection.
	if show, _ := cmd.Flags().GetBool("last-error"); show && in.LastError != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", errLabelColor.Sprint("last error:"), in.LastError.Message)
		if in.LastError.Trace != nil && in.LastError.Trace.Len() > 0 {
			if werr := writeTrace(os.Stderr, in.LastError.Trace, fs, opts); werr != nil {
				return werr
			}
		}
	}
	return nil
}
