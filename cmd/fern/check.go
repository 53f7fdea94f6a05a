package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fern/internal/pipeline"
)

func failLabel() string { return errLabelColor.Sprint("FAIL") }

var checkCmd = &cobra.Command{
	Use:   "check [flags] <files...>",
	Short: "Parse and evaluate Fern files, reporting failures",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "number of files to check in parallel (0 = number of CPUs)")
	checkCmd.Flags().String("ui", "auto", "interactive progress display (auto|on|off)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	uiValue, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	wd, _ := os.Getwd()
	req := &pipeline.CheckRequest{
		Files:   args,
		BaseDir: wd,
		Jobs:    jobs,
		Options: opts,
	}

	var res pipeline.CheckResult
	if shouldUseTUI(mode) {
		res, err = runCheckWithUI(cmd.Context(), "checking", args, req)
	} else {
		res, err = pipeline.Check(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	for _, r := range res.Results {
		if r.Err == nil {
			if quiet {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%s)\n", r.File, r.Elapsed.Round(time.Millisecond))
			if r.Warnings > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "     %d warning(s)\n", r.Warnings)
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", failLabel(), r.File, r.Err)
		for _, line := range r.Trace {
			fmt.Fprintf(cmd.OutOrStdout(), "     %s\n", line)
		}
	}
	if res.Failed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d file(s) failed\n", res.Failed, len(res.Results))
		os.Exit(1)
	}
	return nil
}
