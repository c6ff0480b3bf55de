package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.SrcDir)
	assert.Equal(t, ".lambda.ts", cfg.Extension)
	assert.Equal(t, "assets", cfg.BundleDir)
	assert.Equal(t, []string{"**/node_modules/**", "**/.*/**"}, cfg.Exclude)
	assert.Equal(t, 2, cfg.CDKVersion)
	assert.Equal(t, RunnerExec, cfg.Runner)
	assert.Equal(t, "esbuild", cfg.EsbuildPath)
	assert.Equal(t, 1, cfg.Parallelism)
	assert.Equal(t, 2*time.Minute, cfg.BundleTimeout)
	assert.True(t, cfg.GitIgnore)
	assert.True(t, cfg.NpmIgnore)
	assert.Empty(t, cfg.File)
	assert.Equal(t, dir, cfg.ProjectDir)
}

func TestLoad_ProjectFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
srcdir: functions
extension: .fn.ts
bundledir: dist/lambda
cdk_version: 1
runtime: nodejs18.x
parallelism: 4
bundle_timeout: 30s
bundle:
  minify: false
  externals: [pg-native]
  loaders:
    json: text
handlers:
  - entrypoint: functions/api/get.fn.ts
    construct_file: lib/get-code.ts
    construct_name: GetHandlerCode
    bundle:
      sourcemap: false
`)

	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "functions", cfg.SrcDir)
	assert.Equal(t, ".fn.ts", cfg.Extension)
	assert.Equal(t, "dist/lambda", cfg.BundleDir)
	assert.Equal(t, 1, cfg.CDKVersion)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, 30*time.Second, cfg.BundleTimeout)
	assert.Equal(t, filepath.Join(dir, FileName), cfg.File)

	require.NotNil(t, cfg.Bundle.Minify)
	assert.False(t, *cfg.Bundle.Minify)
	assert.Equal(t, []string{"pg-native"}, cfg.Bundle.Externals)
	assert.Equal(t, map[string]string{"json": "text"}, cfg.Bundle.Loaders)
	assert.Nil(t, cfg.Bundle.Target)

	require.Len(t, cfg.Handlers, 1)
	h, ok := cfg.HandlerFor("functions/api/get.fn.ts")
	require.True(t, ok)
	assert.Equal(t, "lib/get-code.ts", h.ConstructFile)
	assert.Equal(t, "GetHandlerCode", h.ConstructName)
	require.NotNil(t, h.Bundle.Sourcemap)
	assert.False(t, *h.Bundle.Sourcemap)

	comp, err := cfg.ComponentOptions()
	require.NoError(t, err)
	require.NotNil(t, comp.Target)
	assert.Equal(t, "node18", *comp.Target, "runtime supplies the target")
	assert.Equal(t, []string{"pg-native"}, comp.Externals, "bundle section beats runtime externals")
}

func TestLoad_DottedLoaderKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
bundle:
  loaders:
    ".json": base64
    .png: file
handlers:
  - entrypoint: src/a.lambda.ts
    bundle:
      loaders:
        ".txt": text
`)

	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{".json": "base64", ".png": "file"}, cfg.Bundle.Loaders)
	require.Len(t, cfg.Handlers, 1)
	assert.Equal(t, map[string]string{".txt": "text"}, cfg.Handlers[0].Bundle.Loaders)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "bundledir: out\n")
	t.Setenv("LAMBDAGEN_BUNDLEDIR", "from-env")
	t.Setenv("LAMBDAGEN_PARALLELISM", "3")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.BundleDir)
	assert.Equal(t, 3, cfg.Parallelism)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "LAMBDAGEN_RUNNER=api\n")
	t.Setenv("LAMBDAGEN_RUNNER", "")
	require.NoError(t, os.Unsetenv("LAMBDAGEN_RUNNER"))

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, RunnerAPI, cfg.Runner)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "conf", "custom.yaml"), "srcdir: lib\n")

	cfg, err := Load(dir, filepath.Join("conf", "custom.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "lib", cfg.SrcDir)

	_, err = Load(dir, "missing.yaml")
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "cdk_version: 3\n")

	_, err := Load(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cdk_version must be 1 or 2")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty srcdir", mutate: func(c *Config) { c.SrcDir = "" }, wantErr: true, errMsg: "srcdir cannot be empty"},
		{name: "empty extension", mutate: func(c *Config) { c.Extension = "" }, wantErr: true, errMsg: "extension cannot be empty"},
		{name: "absolute bundledir", mutate: func(c *Config) { c.BundleDir = "/tmp/assets" }, wantErr: true, errMsg: "bundledir must be relative"},
		{name: "unknown runner", mutate: func(c *Config) { c.Runner = "docker" }, wantErr: true, errMsg: "runner must be"},
		{name: "zero parallelism", mutate: func(c *Config) { c.Parallelism = 0 }, wantErr: true, errMsg: "parallelism must be at least 1"},
		{name: "negative timeout", mutate: func(c *Config) { c.BundleTimeout = -time.Second }, wantErr: true, errMsg: "bundle_timeout cannot be negative"},
		{name: "unknown runtime", mutate: func(c *Config) { c.Runtime = "python3.12" }, wantErr: true, errMsg: "unsupported runtime"},
		{
			name:    "handler without entrypoint",
			mutate:  func(c *Config) { c.Handlers = []Handler{{ConstructName: "X"}} },
			wantErr: true,
			errMsg:  "entrypoint is required",
		},
		{
			name: "duplicate handler",
			mutate: func(c *Config) {
				c.Handlers = []Handler{{Entrypoint: "src/a.lambda.ts"}, {Entrypoint: "./src/a.lambda.ts"}}
			},
			wantErr: true,
			errMsg:  "duplicate entrypoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Runtime = "nodejs20.x"

	require.NoError(t, cfg.Save(filepath.Join(dir, FileName)))

	loaded, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "nodejs20.x", loaded.Runtime)
	assert.Equal(t, cfg.BundleTimeout, loaded.BundleTimeout)
	assert.Equal(t, cfg.Exclude, loaded.Exclude)
}
