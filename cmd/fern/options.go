package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fern/internal/config"
	"fern/internal/source"
	"fern/internal/trace"
	"fern/internal/tracefmt"
)

// loadOptions resolves backtrace options in precedence order: built-in
// defaults, then fern.toml, then command-line flags.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	opts := config.Default()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return opts, err
	}
	explicit := path != ""
	if path == "" {
		if _, statErr := os.Stat("fern.toml"); statErr == nil {
			path = "fern.toml"
		}
	}
	if path != "" {
		loaded, loadErr := config.Load(path, opts)
		if loadErr != nil {
			if explicit {
				return opts, loadErr
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", warnLabel(), loadErr)
		} else {
			opts = loaded
		}
	}

	if s, _ := cmd.Flags().GetString("simplify"); s != "" {
		mode, parseErr := trace.ParseMode(s)
		if parseErr != nil {
			return opts, parseErr
		}
		opts.Simplify = mode
	}
	if cmd.Flags().Changed("max-frames") {
		opts.MaxFrames, _ = cmd.Flags().GetInt("max-frames")
	}
	if ascii, _ := cmd.Flags().GetBool("ascii"); ascii {
		opts.Unicode = false
	}
	if noRefs, _ := cmd.Flags().GetBool("no-srcrefs"); noRefs {
		opts.SrcRefs = false
	}
	if nums, _ := cmd.Flags().GetBool("frame-numbers"); nums {
		opts.FrameNumbers = true
	}
	if top, _ := cmd.Flags().GetString("top-env"); top != "" {
		opts.TopEnvName = top
	}
	return opts, nil
}

// renderWidth reports the column count of w when it is a terminal, so
// backtrace lines truncate instead of wrapping. Non-terminals get 0 (no
// truncation), keeping piped output complete.
func renderWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !isTerminal(f) {
		return 0
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 {
		return 0
	}
	return cols
}

// writeTrace simplifies and renders a captured trace with the resolved
// options.
func writeTrace(w io.Writer, t *trace.Trace, fs *source.FileSet, opts config.Options) error {
	tree, err := trace.Simplify(trace.NewTree(t), opts.Simplify, opts.MaxFrames)
	if err != nil {
		return err
	}
	return tracefmt.Write(w, tree, fs, tracefmt.Opts{
		SrcRefs:      opts.SrcRefs,
		FrameNumbers: opts.FrameNumbers,
		Dir:          fs.BaseDir(),
		Unicode:      opts.Unicode,
		Width:        renderWidth(w),
	})
}
