package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultExcludes = []string{"**/node_modules/**", "**/.*/**"}

func touch(t *testing.T, dir string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("export const handler = () => {};\n"), 0o644))
	}
}

func slashed(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.ToSlash(p)
	}
	return out
}

func TestWalker_Discover(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"src/hello-world.lambda.ts",
		"src/sub/dir/foo.lambda.ts",
		"src/b.lambda.ts",
		"src/util.ts",
		"src/sub/notes.lambda.ts.bak",
		"src/node_modules/pkg/index.lambda.ts",
		"src/.cache/stale.lambda.ts",
		"lib/outside.lambda.ts",
	)

	w, err := New(dir, defaultExcludes, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	got, err := w.Discover("src", ".lambda.ts")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"src/b.lambda.ts",
		"src/hello-world.lambda.ts",
		"src/sub/dir/foo.lambda.ts",
	}, slashed(got))
}

func TestWalker_DiscoverWholeProject(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"a.fn.ts",
		"node_modules/x/y.fn.ts",
		".git/hooks/z.fn.ts",
		"pkg/b.fn.ts",
	)

	w, err := New(dir, defaultExcludes, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	got, err := w.Discover(".", ".fn.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.fn.ts", "pkg/b.fn.ts"}, slashed(got))
}

func TestWalker_FileExclude(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "src/keep.lambda.ts", "src/legacy/drop.lambda.ts", "src/skip.test.lambda.ts")

	w, err := New(dir, []string{"src/legacy/**", "**.test.lambda.ts"}, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	got, err := w.Discover("src", ".lambda.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/keep.lambda.ts"}, slashed(got))
}

func TestWalker_MissingRoot(t *testing.T) {
	w, err := New(t.TempDir(), nil, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	got, err := w.Discover("src", ".lambda.ts")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWalker_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "src")

	w, err := New(dir, nil, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = w.Discover("src", ".lambda.ts")
	assert.Error(t, err)
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(t.TempDir(), []string{"src/[a"})
	assert.Error(t, err)
}
