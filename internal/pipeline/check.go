// Package pipeline runs Fern source files through parse and evaluation,
// reporting per-file progress. It backs the check command's plain and
// interactive outputs.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"fern/internal/condition"
	"fern/internal/config"
	"fern/internal/interp"
	"fern/internal/parser"
	"fern/internal/source"
	"fern/internal/trace"
	"fern/internal/tracefmt"
)

// CheckRequest describes one check run.
type CheckRequest struct {
	Files    []string
	BaseDir  string
	Jobs     int
	Options  config.Options
	Progress ProgressSink
}

// FileResult is the outcome for one file. Trace holds rendered backtrace
// lines when evaluation failed with an error condition.
type FileResult struct {
	File     string
	Err      error
	Trace    []string
	Warnings int
	Elapsed  time.Duration
}

// CheckResult aggregates per-file outcomes in input order.
type CheckResult struct {
	Results []FileResult
	Failed  int
}

// Check parses and evaluates every requested file, up to Jobs files in
// parallel. Each file gets its own file set and interpreter session so
// runs are independent; results keep input order. The returned error
// reports infrastructure failures only — per-file findings live in the
// results.
func Check(ctx context.Context, req *CheckRequest) (CheckResult, error) {
	if req == nil || len(req.Files) == 0 {
		return CheckResult{}, fmt.Errorf("no files to check")
	}
	sink := req.Progress
	if sink == nil {
		sink = nopSink{}
	}
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	for _, f := range req.Files {
		sink.OnEvent(Event{File: f, Stage: StageParse, Status: StatusQueued})
	}

	results := make([]FileResult, len(req.Files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range req.Files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = checkFile(file, req.BaseDir, req.Options, sink)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CheckResult{}, err
	}

	out := CheckResult{Results: results}
	for _, r := range results {
		if r.Err != nil {
			out.Failed++
		}
	}
	return out, nil
}

func checkFile(path, baseDir string, opts config.Options, sink ProgressSink) FileResult {
	started := time.Now()
	res := FileResult{File: path}
	finish := func() FileResult {
		res.Elapsed = time.Since(started)
		status := StatusDone
		stage := StageEval
		if res.Err != nil {
			status = StatusError
		}
		sink.OnEvent(Event{File: path, Stage: stage, Status: status, Err: res.Err, Elapsed: res.Elapsed})
		return res
	}

	sink.OnEvent(Event{File: path, Stage: StageParse, Status: StatusWorking})
	fs := source.NewFileSet()
	if baseDir != "" {
		fs.SetBaseDir(baseDir)
	}
	id, err := fs.Load(path)
	if err != nil {
		res.Err = err
		return finish()
	}
	prog, errs := parser.New(fs.Get(id)).Parse()
	if len(errs) > 0 {
		res.Err = fmt.Errorf("%s: %w", path, errs[0])
		return finish()
	}

	sink.OnEvent(Event{File: path, Stage: StageEval, Status: StatusWorking})
	in := interp.New(fs, config.NewStore(opts))
	in.Stdout = io.Discard
	if _, err := in.Run(prog); err != nil {
		res.Err = err
		if cond, ok := err.(*condition.Condition); ok && cond.Trace != nil {
			res.Trace = renderTrace(cond.Trace, fs, opts)
		}
	}
	res.Warnings = len(in.Warnings)
	return finish()
}

func renderTrace(t *trace.Trace, fs *source.FileSet, opts config.Options) []string {
	tree, err := trace.Simplify(trace.NewTree(t), opts.Simplify, opts.MaxFrames)
	if err != nil {
		tree = trace.NewTree(t)
	}
	return tracefmt.Lines(tree, fs, tracefmt.Opts{
		SrcRefs:      opts.SrcRefs,
		FrameNumbers: opts.FrameNumbers,
		Dir:          fs.BaseDir(),
		Unicode:      opts.Unicode,
	})
}
