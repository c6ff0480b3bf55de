package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
)

// fakeRunner writes each outfile and fails the bundles listed in fail.
type fakeRunner struct {
	dir   string
	fail  map[string]bool
	delay time.Duration

	mu      sync.Mutex
	ran     []string
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, inv *bundler.Invocation) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.ran = append(f.ran, inv.Name())
	f.mu.Unlock()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if f.fail[inv.Name()] {
		return &bundler.ExitError{Bundle: inv.Name(), ExitCode: 1, Stderr: "✘ [ERROR] boom"}
	}
	out := filepath.Join(f.dir, filepath.FromSlash(inv.Outfile()))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, []byte(strings.Repeat("x", 42)), 0o644)
}

func TestExecutor_RunsEveryInvocation(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, "src/a.lambda.ts", "src/b.lambda.ts", "src/c.lambda.ts")
	runner := &fakeRunner{dir: dir}
	metrics := NewMetrics()

	results, err := NewExecutor(runner, dir, 1, metrics, WithLogger(zerolog.Nop())).
		Run(context.Background(), plan.Invocations())
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Bundle)
	assert.Equal(t, "assets/a/index.mjs", results[0].Outfile)
	assert.Equal(t, int64(42), results[0].Bytes)
	assert.Equal(t, []string{"a", "b", "c"}, runner.ran, "parallelism 1 keeps plan order")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.bundlesTotal.WithLabelValues("a", "success")))
	assert.Equal(t, 42.0, testutil.ToFloat64(metrics.bundleSize.WithLabelValues("c")))
}

func TestExecutor_BoundedParallelism(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, "src/a.lambda.ts", "src/b.lambda.ts", "src/c.lambda.ts", "src/d.lambda.ts", "src/e.lambda.ts")
	runner := &fakeRunner{dir: dir, delay: 20 * time.Millisecond}

	results, err := NewExecutor(runner, dir, 2, nil, WithLogger(zerolog.Nop())).
		Run(context.Background(), plan.Invocations())
	require.NoError(t, err)

	assert.Len(t, results, 5)
	assert.LessOrEqual(t, runner.maxSeen.Load(), int32(2))
}

func TestExecutor_FirstFailureStopsTheRun(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, "src/a.lambda.ts", "src/b.lambda.ts", "src/c.lambda.ts")
	runner := &fakeRunner{dir: dir, fail: map[string]bool{"a": true}}
	metrics := NewMetrics()

	results, err := NewExecutor(runner, dir, 1, metrics, WithLogger(zerolog.Nop())).
		Run(context.Background(), plan.Invocations())
	require.Error(t, err)

	var exitErr *bundler.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "a", exitErr.Bundle)
	assert.Empty(t, results)
	assert.Equal(t, []string{"a"}, runner.ran)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.bundlesTotal.WithLabelValues("a", "failed")))
}

func TestExecutor_NilRunner(t *testing.T) {
	_, err := NewExecutor(nil, t.TempDir(), 1, nil).Run(context.Background(), nil)
	assert.True(t, errors.Is(err, bundler.ErrNoBundler))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordBundle("hello-world", 150*time.Millisecond, nil)
	m.RecordBundle("hello-world", time.Second, errors.New("spawn failed"))
	m.RecordSize("hello-world", 2048)

	p := filepath.Join(t.TempDir(), "lambdagen.prom")
	require.NoError(t, m.WriteTextfile(p))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `lambdagen_bundles_total{bundle="hello-world",status="success"} 1`)
	assert.Contains(t, text, `lambdagen_bundles_total{bundle="hello-world",status="error"} 1`)
	assert.Contains(t, text, `lambdagen_bundle_size_bytes{bundle="hello-world"} 2048`)
	assert.Contains(t, text, "lambdagen_bundle_duration_seconds_bucket")

	var nilMetrics *Metrics
	nilMetrics.RecordBundle("x", time.Second, nil)
	assert.NoError(t, nilMetrics.WriteTextfile(p))
}
