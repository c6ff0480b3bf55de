package bundler

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBannerToken = `--banner:js="import { createRequire } from 'module'; const require = createRequire(import.meta.url);"`

func newTestBuilder(defaults Options) *Builder {
	return NewBuilder(Config{
		BundleDir: "assets",
		Extension: ".lambda.ts",
		Defaults:  defaults,
	}, WithLogger(zerolog.Nop()))
}

func TestBuild_Defaults(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/hello-world.lambda.ts", Options{})
	require.NoError(t, err)

	want := []string{
		"esbuild",
		"--bundle",
		"src/hello-world.lambda.ts",
		`--target="esnext"`,
		`--platform="node"`,
		`--outfile="assets/hello-world/index.mjs"`,
		"--sourcemap",
		"--sources-content=false",
		"--minify",
		"--format=esm",
		"--main-fields=module,main",
		defaultBannerToken,
	}
	if diff := cmp.Diff(want, inv.Tokens()); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "hello-world", inv.Name())
	assert.Equal(t, "assets/hello-world", inv.Outdir())
	assert.Equal(t, "assets/hello-world/index.mjs", inv.Outfile())
	assert.Empty(t, inv.Metafile())
	assert.False(t, inv.IsWatch())

	for _, tok := range inv.Tokens() {
		assert.NotContains(t, tok, "--tsconfig")
		assert.NotContains(t, tok, "--external:")
		assert.NotContains(t, tok, "--loader:")
	}
}

func TestBuild_NestedEntrypoint(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/sub/dir/foo.lambda.ts", Options{})
	require.NoError(t, err)

	assert.Equal(t, "sub/dir/foo", inv.Name())
	assert.Equal(t, "assets/sub/dir/foo/index.mjs", inv.Outfile())
}

func TestBuild_SourcemapAsymmetry(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/a.lambda.ts", Options{Sourcemap: ptr(false)})
	require.NoError(t, err)

	tokens := inv.Tokens()
	assert.NotContains(t, tokens, "--sourcemap")
	assert.Contains(t, tokens, "--sources-content=false")

	inv, err = newTestBuilder(Options{}).Build("src/a.lambda.ts", Options{SourcesContent: ptr(true), Minify: ptr(false)})
	require.NoError(t, err)

	tokens = inv.Tokens()
	assert.Contains(t, tokens, "--sourcemap")
	assert.Contains(t, tokens, "--sources-content=true")
	assert.NotContains(t, tokens, "--minify")
}

func TestBuild_LoaderOverrideReplacesDefaults(t *testing.T) {
	b := newTestBuilder(Options{Loaders: map[string]string{"json": "base64", "png": "file"}})

	inv, err := b.Build("src/a.lambda.ts", Options{Loaders: map[string]string{"json": "text"}})
	require.NoError(t, err)

	var loaders []string
	for _, tok := range inv.Tokens() {
		if len(tok) > 9 && tok[:9] == "--loader:" {
			loaders = append(loaders, tok)
		}
	}
	assert.Equal(t, []string{"--loader:.json=text"}, loaders)

	inv, err = b.Build("src/a.lambda.ts", Options{})
	require.NoError(t, err)
	assert.Contains(t, inv.Tokens(), "--loader:.json=base64")
	assert.Contains(t, inv.Tokens(), "--loader:.png=file")
}

func TestBuild_LoaderKeysWithAndWithoutDot(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/a.lambda.ts", Options{
		Loaders: map[string]string{".json": "base64", "png": "file"},
	})
	require.NoError(t, err)

	var loaders []string
	for _, tok := range inv.Tokens() {
		if len(tok) > 9 && tok[:9] == "--loader:" {
			loaders = append(loaders, tok)
		}
	}
	assert.Equal(t, []string{"--loader:.json=base64", "--loader:.png=file"}, loaders)
}

func TestBuild_OptionalFlags(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/a.lambda.ts", Options{
		Tsconfig:  ptr("tsconfig.build.json"),
		Externals: []string{"pg-native", "@aws-sdk/*", "sharp"},
		Outfile:   ptr("index.js"),
		Format:    ptr("cjs"),
		Banner:    ptr(""),
		Metafile:  ptr(true),
		ExtraArgs: []string{"--keep-names"},
	})
	require.NoError(t, err)

	want := []string{
		"esbuild",
		"--bundle",
		"src/a.lambda.ts",
		`--target="esnext"`,
		`--platform="node"`,
		`--outfile="assets/a/index.js"`,
		`--tsconfig="tsconfig.build.json"`,
		"--external:pg-native",
		"--external:@aws-sdk/*",
		"--external:sharp",
		"--sourcemap",
		"--sources-content=false",
		"--minify",
		"--format=cjs",
		"--main-fields=module,main",
		`--metafile="assets/a/index.meta.json"`,
		"--keep-names",
	}
	if diff := cmp.Diff(want, inv.Tokens()); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "assets/a/index.meta.json", inv.Metafile())
}

func TestBuild_Errors(t *testing.T) {
	b := newTestBuilder(Options{})

	_, err := b.Build("", Options{})
	assert.True(t, errors.Is(err, ErrEmptyEntrypoint))

	_, err = b.Build("src/handler.ts", Options{})
	assert.True(t, errors.Is(err, ErrExtensionMismatch))
	assert.Contains(t, err.Error(), "src/handler.ts")
}

func TestBuild_QuotesSpecialCharacters(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/a.lambda.ts", Options{Banner: ptr(`const s = "x\y";`)})
	require.NoError(t, err)
	assert.Contains(t, inv.Tokens(), `--banner:js="const s = \"x\\y\";"`)

	inv, err = newTestBuilder(Options{}).Build("src/a.lambda.ts", Options{Banner: ptr("const v = `${process.env.STAGE}`;")})
	require.NoError(t, err)
	assert.Contains(t, inv.Tokens(), "--banner:js=\"const v = \\`\\${process.env.STAGE}\\`;\"")
	assert.Contains(t, inv.Args(), "--banner:js=const v = `${process.env.STAGE}`;")
}

func TestInvocation_Immutable(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/a.lambda.ts", Options{})
	require.NoError(t, err)

	tokens := inv.Tokens()
	tokens[0] = "mutated"
	assert.Equal(t, "esbuild", inv.Tokens()[0])

	w := inv.Watch()
	assert.True(t, w.IsWatch())
	assert.Equal(t, "--watch", w.Tokens()[len(w.Tokens())-1])
	assert.False(t, inv.IsWatch())
	assert.NotContains(t, inv.Tokens(), "--watch")
	assert.Equal(t, inv.Outfile(), w.Outfile())
}

func TestInvocation_Command(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/hello-world.lambda.ts", Options{Banner: ptr("")})
	require.NoError(t, err)

	assert.Equal(t,
		`esbuild --bundle src/hello-world.lambda.ts --target="esnext" --platform="node" --outfile="assets/hello-world/index.mjs" --sourcemap --sources-content=false --minify --format=esm --main-fields=module,main`,
		inv.Command())
}

func TestInvocation_Args(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/hello-world.lambda.ts", Options{})
	require.NoError(t, err)

	want := []string{
		"esbuild",
		"--bundle",
		"src/hello-world.lambda.ts",
		"--target=esnext",
		"--platform=node",
		"--outfile=assets/hello-world/index.mjs",
		"--sourcemap",
		"--sources-content=false",
		"--minify",
		"--format=esm",
		"--main-fields=module,main",
		"--banner:js=" + DefaultBanner,
	}
	if diff := cmp.Diff(want, inv.Args()); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}

	w := inv.Watch()
	assert.Equal(t, "--watch", w.Args()[len(w.Args())-1])
	assert.NotContains(t, inv.Args(), "--watch")
}

func TestBuild_PathWithSpaces(t *testing.T) {
	inv, err := newTestBuilder(Options{}).Build("src/my handler.lambda.ts", Options{
		Banner:    ptr(""),
		Externals: []string{"my lib"},
		Loaders:   map[string]string{"txt": "text"},
		ExtraArgs: []string{`--define:NAME="a b"`},
	})
	require.NoError(t, err)

	tokens := inv.Tokens()
	assert.Equal(t, `"src/my handler.lambda.ts"`, tokens[2])
	assert.Contains(t, tokens, `--external:"my lib"`)
	assert.Contains(t, tokens, `--define:NAME="a b"`)
	assert.Equal(t, "my handler", inv.Name())

	args := inv.Args()
	assert.Equal(t, "src/my handler.lambda.ts", args[2])
	assert.Contains(t, args, "--external:my lib")
	assert.Contains(t, args, "--loader:.txt=text")
	assert.Equal(t, "--define:NAME=a b", args[len(args)-1])
	assert.Len(t, args, len(tokens))
}

func TestBuild_InvalidExtraArg(t *testing.T) {
	_, err := newTestBuilder(Options{}).Build("src/a.lambda.ts", Options{ExtraArgs: []string{`--define:X="open`}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid esbuild argument")
}

func TestShellArg(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/hello-world.lambda.ts", "src/hello-world.lambda.ts"},
		{"@aws-sdk/*", "@aws-sdk/*"},
		{"--loader:.json=text", "--loader:.json=text"},
		{"a b", `"a b"`},
		{"$HOME", `"\$HOME"`},
		{"", `""`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, shellArg(tt.in))
		})
	}
}

func TestBuild_LogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	b := NewBuilder(Config{Extension: ".lambda.ts"}, WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))

	_, err := b.Build("src/a.lambda.ts", Options{})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"bundle":"a"`)
	assert.Contains(t, buf.String(), "Assembled esbuild invocation")
}
