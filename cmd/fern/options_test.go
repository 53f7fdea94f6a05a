package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// flagCmd builds a command carrying the persistent flag set loadOptions
// reads.
func flagCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("simplify", "", "")
	cmd.Flags().Int("max-frames", 0, "")
	cmd.Flags().Bool("ascii", false, "")
	cmd.Flags().Bool("no-srcrefs", false, "")
	cmd.Flags().Bool("frame-numbers", false, "")
	cmd.Flags().String("top-env", "", "")
	return cmd
}

func TestLoadOptionsFrameNumbersFlag(t *testing.T) {
	cmd := flagCmd()
	if err := cmd.Flags().Set("frame-numbers", "true"); err != nil {
		t.Fatal(err)
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		t.Fatalf("loadOptions: %v", err)
	}
	if !opts.FrameNumbers {
		t.Error("FrameNumbers not set from flag")
	}
}

func TestLoadOptionsFrameNumbersDefaultOff(t *testing.T) {
	opts, err := loadOptions(flagCmd())
	if err != nil {
		t.Fatalf("loadOptions: %v", err)
	}
	if opts.FrameNumbers {
		t.Error("FrameNumbers on without the flag")
	}
}

func TestApplyColorMode(t *testing.T) {
	prev := color.NoColor
	defer func() { color.NoColor = prev }()

	cases := []struct {
		mode    string
		tty     bool
		noColor bool
	}{
		{"on", false, false},
		{"off", true, true},
		{"auto", true, false},
		{"auto", false, true},
	}
	for _, tc := range cases {
		if err := applyColorMode(tc.mode, tc.tty); err != nil {
			t.Fatalf("applyColorMode(%q, %v): %v", tc.mode, tc.tty, err)
		}
		if color.NoColor != tc.noColor {
			t.Errorf("mode %q tty=%v: NoColor = %v, want %v", tc.mode, tc.tty, color.NoColor, tc.noColor)
		}
	}

	if err := applyColorMode("sometimes", true); err == nil {
		t.Error("expected error for unknown color mode")
	}
}

func TestRenderWidthNonTerminal(t *testing.T) {
	if got := renderWidth(&bytes.Buffer{}); got != 0 {
		t.Errorf("renderWidth(buffer) = %d, want 0", got)
	}
}
