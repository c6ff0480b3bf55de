package project

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
	"github.com/fluxbase-eu/lambdagen/cli/output"
	"github.com/fluxbase-eu/lambdagen/cli/util"
)

// Result is the outcome of one invocation.
type Result struct {
	Bundle   string        `json:"bundle" yaml:"bundle"`
	Outfile  string        `json:"outfile" yaml:"outfile"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
}

// Executor runs invocations with bounded parallelism. The first failure
// cancels the invocations still running and no new ones are started.
type Executor struct {
	runner      bundler.Runner
	dir         string
	parallelism int
	metrics     *Metrics
	logger      zerolog.Logger
}

// NewExecutor returns an executor. parallelism below 1 runs sequentially.
// metrics may be nil.
func NewExecutor(runner bundler.Runner, dir string, parallelism int, metrics *Metrics, opts ...Option) *Executor {
	o := newOptions(opts)
	if parallelism < 1 {
		parallelism = 1
	}
	return &Executor{
		runner:      runner,
		dir:         dir,
		parallelism: parallelism,
		metrics:     metrics,
		logger:      o.logger,
	}
}

// Run executes every invocation and returns the results of those that
// finished successfully, in input order.
func (e *Executor) Run(ctx context.Context, invs []*bundler.Invocation) ([]Result, error) {
	if e.runner == nil {
		return nil, bundler.ErrNoBundler
	}

	e.metrics.MarkRun(time.Now())

	results := make([]*Result, len(invs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i, inv := range invs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			err := e.runner.Run(gctx, inv)
			elapsed := time.Since(start)
			e.metrics.RecordBundle(inv.Name(), elapsed, err)

			if err != nil {
				e.logger.Debug().Err(err).Str("bundle", inv.Name()).Msg("Bundle failed")
				return err
			}

			res := &Result{Bundle: inv.Name(), Outfile: inv.Outfile(), Duration: elapsed}
			if info, statErr := os.Stat(filepath.Join(e.dir, filepath.FromSlash(inv.Outfile()))); statErr == nil {
				res.Bytes = info.Size()
				e.metrics.RecordSize(inv.Name(), res.Bytes)
			}
			results[i] = res

			e.logger.Debug().
				Str("bundle", inv.Name()).
				Dur("duration", elapsed).
				Int64("bytes", res.Bytes).
				Msg("Bundle built")
			return nil
		})
	}

	err := g.Wait()

	out := make([]Result, 0, len(invs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, err
}

// Results is the serializable outcome of a bundle run.
type Results []Result

// Table implements output.Tabular.
func (r Results) Table() output.TableData {
	data := output.TableData{Headers: []string{"BUNDLE", "OUTFILE", "SIZE", "TIME"}}
	for _, res := range r {
		data.Rows = append(data.Rows, []string{
			res.Bundle,
			res.Outfile,
			util.FormatBytes(res.Bytes),
			util.FormatDuration(res.Duration),
		})
	}
	return data
}
