package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntries(t *testing.T) {
	assert.Equal(t, "/assets/", GitEntry("assets"))
	assert.Equal(t, "/dist/lambda/", GitEntry("./dist/lambda/"))
	assert.Equal(t, "!/assets/", NpmEntry("assets"))
}

func TestEnsure_MissingFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".gitignore")

	f, err := Load(p)
	require.NoError(t, err)
	assert.Nil(t, f.Bytes())

	assert.True(t, f.Ensure("/assets/"))
	assert.True(t, f.Changed())
	assert.Equal(t, "/assets/\n", string(f.Bytes()))
}

func TestEnsure_PreservesLinesAndIsIdempotent(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".gitignore")
	require.NoError(t, os.WriteFile(p, []byte("node_modules\r\n# build\ncdk.out"), 0o644))

	f, err := Load(p)
	require.NoError(t, err)
	assert.True(t, f.Ensure("/assets/"))
	assert.True(t, f.Changed())

	data := f.Bytes()
	assert.Equal(t, "node_modules\n# build\ncdk.out\n/assets/\n", string(data))
	require.NoError(t, os.WriteFile(p, data, 0o644))

	again, err := Load(p)
	require.NoError(t, err)
	assert.False(t, again.Ensure("/assets/"))
	assert.False(t, again.Changed())
	assert.Equal(t, data, again.Bytes())
}

func TestEnsure_ExistingEntry(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".npmignore")
	require.NoError(t, os.WriteFile(p, []byte("  !/assets/  \n"), 0o644))

	f, err := Load(p)
	require.NoError(t, err)
	assert.True(t, f.Contains("!/assets/"))
	assert.False(t, f.Ensure("!/assets/"))
	assert.False(t, f.Changed())
}
