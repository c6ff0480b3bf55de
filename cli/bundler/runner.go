package bundler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Runner executes invocations. Implementations must return an error when the
// bundler fails; callers treat any error as a failed build.
type Runner interface {
	Run(ctx context.Context, inv *Invocation) error
}

type runnerConfig struct {
	logger  zerolog.Logger
	timeout time.Duration
	output  io.Writer
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l zerolog.Logger) RunnerOption {
	return func(c *runnerConfig) { c.logger = l }
}

// WithTimeout bounds each non-watch invocation. Zero disables the bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(c *runnerConfig) { c.timeout = d }
}

// WithOutput sets where watch-mode output is streamed.
func WithOutput(w io.Writer) RunnerOption {
	return func(c *runnerConfig) { c.output = w }
}

func newRunnerConfig(opts []RunnerOption) runnerConfig {
	c := runnerConfig{
		logger:  log.Logger,
		timeout: 2 * time.Minute,
		output:  os.Stderr,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ExecRunner runs esbuild as an external process.
type ExecRunner struct {
	binary string
	dir    string
	cfg    runnerConfig
}

// NewExecRunner locates the esbuild binary and returns a runner that executes
// invocations in dir. binary may be a bare name looked up on PATH, or a path.
// When the bare name is not on PATH the project's node_modules/.bin is tried.
func NewExecRunner(dir, binary string, opts ...RunnerOption) (*ExecRunner, error) {
	if binary == "" {
		binary = Command
	}
	path, err := findBinary(dir, binary)
	if err != nil {
		return nil, err
	}
	return &ExecRunner{
		binary: path,
		dir:    dir,
		cfg:    newRunnerConfig(opts),
	}, nil
}

func findBinary(dir, binary string) (string, error) {
	if strings.ContainsRune(binary, filepath.Separator) || strings.ContainsRune(binary, '/') {
		if !filepath.IsAbs(binary) {
			binary = filepath.Join(dir, binary)
		}
		if _, err := os.Stat(binary); err != nil {
			return "", fmt.Errorf("esbuild binary not found at %s: %w", binary, err)
		}
		return binary, nil
	}

	if p, err := exec.LookPath(binary); err == nil {
		return p, nil
	}

	candidates := []string{
		filepath.Join(dir, "node_modules", ".bin", binary),
		"/usr/local/bin/" + binary,
		"/opt/homebrew/bin/" + binary,
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%s is required for bundling; install it with 'npm install --save-dev esbuild'", binary)
}

// Binary returns the resolved esbuild path.
func (r *ExecRunner) Binary() string { return r.binary }

// Run executes the invocation and waits for it to finish. Watch invocations
// stream their output and only return once ctx is cancelled or esbuild exits.
func (r *ExecRunner) Run(ctx context.Context, inv *Invocation) error {
	argv := inv.Args()

	runCtx := ctx
	if !inv.IsWatch() && r.cfg.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.binary, argv[1:]...) //nolint:gosec // arguments come from the project configuration
	cmd.Dir = r.dir
	cmd.WaitDelay = time.Second

	r.cfg.logger.Debug().
		Str("bundle", inv.Name()).
		Str("command", inv.Command()).
		Bool("watch", inv.IsWatch()).
		Msg("Running esbuild")

	if inv.IsWatch() {
		cmd.Stdout = r.cfg.output
		cmd.Stderr = r.cfg.output
		if err := cmd.Run(); err != nil && ctx.Err() == nil {
			return exitError(inv.Name(), err, "")
		}
		return nil
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("bundle %s: esbuild timed out after %s", inv.Name(), r.cfg.timeout)
	}
	if runErr != nil {
		msg := stderr.String()
		if msg == "" {
			msg = stdout.String()
		}
		return exitError(inv.Name(), runErr, cleanBundleError(msg))
	}

	if warn := strings.TrimSpace(stderr.String()); warn != "" {
		r.cfg.logger.Debug().Str("bundle", inv.Name()).Msg(warn)
	}
	return nil
}

func exitError(bundle string, err error, stderr string) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Bundle: bundle, ExitCode: ee.ExitCode(), Stderr: stderr}
	}
	return fmt.Errorf("bundle %s: failed to run esbuild: %w", bundle, err)
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// cleanBundleError keeps the lines of esbuild output that describe errors.
func cleanBundleError(msg string) string {
	msg = ansiPattern.ReplaceAllString(msg, "")

	var relevant []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "[ERROR]") ||
			strings.Contains(line, "error:") ||
			strings.Contains(line, "Could not resolve") ||
			strings.Contains(line, "Expected") ||
			strings.Contains(line, "Unexpected") {
			relevant = append(relevant, line)
		}
	}
	if len(relevant) > 0 {
		return strings.Join(relevant, "\n")
	}
	return strings.TrimSpace(msg)
}
