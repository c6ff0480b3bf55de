package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/evanw/esbuild/pkg/cli"
)

// ErrWatchUnsupported is returned when a watch invocation reaches the
// in-process runner.
var ErrWatchUnsupported = errors.New("watch mode requires the exec runner")

// APIRunner executes invocations in-process through esbuild's Go API. The
// command line is parsed with esbuild's own flag parser, so both runners
// accept exactly the same invocations.
type APIRunner struct {
	dir string
	cfg runnerConfig
}

// NewAPIRunner returns an in-process runner rooted at dir.
func NewAPIRunner(dir string, opts ...RunnerOption) *APIRunner {
	return &APIRunner{dir: dir, cfg: newRunnerConfig(opts)}
}

// Run builds the bundle described by inv.
func (r *APIRunner) Run(ctx context.Context, inv *Invocation) error {
	if inv.IsWatch() {
		return ErrWatchUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	args, metafile := extractMetafile(inv.Args()[1:])

	opts, err := cli.ParseBuildOptions(args)
	if err != nil {
		return fmt.Errorf("bundle %s: invalid esbuild arguments: %w", inv.Name(), err)
	}

	absDir, err := filepath.Abs(r.dir)
	if err != nil {
		return fmt.Errorf("resolving project directory: %w", err)
	}
	opts.AbsWorkingDir = absDir
	opts.Write = true
	opts.Metafile = metafile != ""

	r.cfg.logger.Debug().
		Str("bundle", inv.Name()).
		Str("outfile", inv.Outfile()).
		Msg("Building with esbuild API")

	result := api.Build(opts)

	for _, msg := range api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage}) {
		r.cfg.logger.Warn().Str("bundle", inv.Name()).Msg(strings.TrimSpace(msg))
	}

	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return &ExitError{
			Bundle:   inv.Name(),
			ExitCode: 1,
			Stderr:   cleanBundleError(strings.Join(msgs, "\n")),
		}
	}

	if metafile != "" {
		p := filepath.Join(absDir, filepath.FromSlash(metafile))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("bundle %s: failed to create metafile directory: %w", inv.Name(), err)
		}
		if err := os.WriteFile(p, []byte(result.Metafile), 0o644); err != nil { //nolint:gosec // build artifact
			return fmt.Errorf("bundle %s: failed to write metafile: %w", inv.Name(), err)
		}
	}

	return nil
}

// extractMetafile removes --metafile=<path> from args; the API reports the
// metafile in memory and the runner writes it itself.
func extractMetafile(args []string) ([]string, string) {
	out := make([]string, 0, len(args))
	var metafile string
	for _, a := range args {
		if v, ok := strings.CutPrefix(a, "--metafile="); ok {
			metafile = v
			continue
		}
		out = append(out, a)
	}
	return out, metafile
}
