// Package bundler derives bundle names and assembles, runs and analyzes
// esbuild invocations for handler entrypoints.
package bundler

import (
	"fmt"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"

	shlex "github.com/anmitsu/go-shlex"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Command is the bundler binary named in every invocation.
const Command = "esbuild"

// Invocation is one assembled esbuild command line together with the output
// locations it writes to. It is immutable once built.
type Invocation struct {
	name       string
	entrypoint string
	outdir     string
	outfile    string
	metafile   string
	watch      bool
	tokens     []string
	args       []string
}

// Name returns the bundle identifier.
func (i *Invocation) Name() string { return i.name }

// Entrypoint returns the source file being bundled.
func (i *Invocation) Entrypoint() string { return i.entrypoint }

// Outdir returns the bundle output directory (forward slashes, relative to the project).
func (i *Invocation) Outdir() string { return i.outdir }

// Outfile returns the bundle output file.
func (i *Invocation) Outfile() string { return i.outfile }

// Metafile returns the metafile path, or "" when metafiles are disabled.
func (i *Invocation) Metafile() string { return i.metafile }

// IsWatch reports whether this is a watch-mode invocation.
func (i *Invocation) IsWatch() bool { return i.watch }

// Tokens returns a copy of the command-line tokens.
func (i *Invocation) Tokens() []string { return slices.Clone(i.tokens) }

// Args returns a copy of the argv the runners execute. It carries the same
// arguments as Tokens without shell quoting.
func (i *Invocation) Args() []string { return slices.Clone(i.args) }

// Command returns the tokens joined into a single shell command line.
func (i *Invocation) Command() string { return strings.Join(i.tokens, " ") }

// Watch returns a copy of the invocation that keeps esbuild running and
// rebuilds on change.
func (i *Invocation) Watch() *Invocation {
	w := *i
	w.watch = true
	w.tokens = append(slices.Clone(i.tokens), "--watch")
	w.args = append(slices.Clone(i.args), "--watch")
	return &w
}

// Config holds the component-level settings of a Builder.
type Config struct {
	// BundleDir is the root directory for all bundle outputs.
	BundleDir string
	// Extension is the entrypoint suffix, e.g. ".lambda.ts".
	Extension string
	// SourceRoot is the leading directory trimmed from bundle names.
	SourceRoot string
	// Defaults are the component-level options, layered between the
	// per-entrypoint options and the built-in defaults.
	Defaults Options
}

// Builder assembles esbuild invocations. It never executes anything.
type Builder struct {
	bundleDir  string
	extension  string
	sourceRoot string
	defaults   Options
	logger     zerolog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a Builder. An empty BundleDir defaults to "assets" and an
// empty SourceRoot to "src".
func NewBuilder(cfg Config, opts ...BuilderOption) *Builder {
	b := &Builder{
		bundleDir:  cfg.BundleDir,
		extension:  cfg.Extension,
		sourceRoot: cfg.SourceRoot,
		defaults:   cfg.Defaults,
		logger:     log.Logger,
	}
	if b.bundleDir == "" {
		b.bundleDir = "assets"
	}
	if b.sourceRoot == "" {
		b.sourceRoot = DefaultSourceRoot
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BundleDir returns the bundle root directory.
func (b *Builder) BundleDir() string { return b.bundleDir }

// Extension returns the configured entrypoint extension.
func (b *Builder) Extension() string { return b.extension }

// SourceRoot returns the root segment trimmed from bundle names.
func (b *Builder) SourceRoot() string { return b.sourceRoot }

// Name returns the bundle identifier for an entrypoint.
func (b *Builder) Name(entrypoint string) string {
	return DeriveBundleNameWithRoot(entrypoint, b.extension, b.sourceRoot)
}

// Build assembles the invocation for one entrypoint. explicit holds the
// per-entrypoint options, which take precedence over the builder defaults.
func (b *Builder) Build(entrypoint string, explicit Options) (*Invocation, error) {
	if entrypoint == "" {
		return nil, ErrEmptyEntrypoint
	}
	if b.extension != "" && !strings.HasSuffix(entrypoint, b.extension) {
		return nil, fmt.Errorf("%w: %s (extension %s)", ErrExtensionMismatch, entrypoint, b.extension)
	}

	s := Resolve(explicit, b.defaults)

	name := b.Name(entrypoint)
	outdir := path.Join(ToPortablePath(b.bundleDir), name)
	outfile := path.Join(outdir, s.Outfile)

	var tokens, args []string
	// add records one argument in shell form and in raw form.
	add := func(token, arg string) {
		tokens = append(tokens, token)
		args = append(args, arg)
	}

	entry := ToPortablePath(entrypoint)
	add(Command, Command)
	add("--bundle", "--bundle")
	add(shellArg(entry), entry)
	add("--target="+quote(s.Target), "--target="+s.Target)
	add("--platform="+quote(s.Platform), "--platform="+s.Platform)
	add("--outfile="+quote(outfile), "--outfile="+outfile)

	if s.Tsconfig != "" {
		tsconfig := ToPortablePath(s.Tsconfig)
		add("--tsconfig="+quote(tsconfig), "--tsconfig="+tsconfig)
	}

	for _, ext := range s.Externals {
		add("--external:"+shellArg(ext), "--external:"+ext)
	}

	if s.Sourcemap {
		add("--sourcemap", "--sourcemap")
	}

	// Emitted even when false, unlike --sourcemap.
	sourcesContent := "--sources-content=" + strconv.FormatBool(s.SourcesContent)
	add(sourcesContent, sourcesContent)

	if s.Minify {
		add("--minify", "--minify")
	}
	if s.Format != "" {
		add("--format="+shellArg(s.Format), "--format="+s.Format)
	}
	if s.MainFields != "" {
		add("--main-fields="+shellArg(s.MainFields), "--main-fields="+s.MainFields)
	}
	if s.Banner != "" {
		add("--banner:js="+quote(s.Banner), "--banner:js="+s.Banner)
	}

	// "json" and ".json" name the same loader.
	loaders := make(map[string]string, len(s.Loaders))
	for ext, loader := range s.Loaders {
		loaders[strings.TrimPrefix(ext, ".")] = loader
	}
	exts := make([]string, 0, len(loaders))
	for ext := range loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		flag := "--loader:." + ext + "=" + loaders[ext]
		add(shellArg(flag), flag)
	}

	var metafile string
	if s.Metafile {
		metafile = path.Join(outdir, MetafileName)
		add("--metafile="+quote(metafile), "--metafile="+metafile)
	}

	// Extra args are shell-form tokens, appended verbatim to the command.
	for _, extra := range s.ExtraArgs {
		split, err := shlex.Split(extra, true)
		if err != nil {
			return nil, fmt.Errorf("invalid esbuild argument %q: %w", extra, err)
		}
		tokens = append(tokens, extra)
		args = append(args, split...)
	}

	inv := &Invocation{
		name:       name,
		entrypoint: ToPortablePath(entrypoint),
		outdir:     outdir,
		outfile:    outfile,
		metafile:   metafile,
		tokens:     tokens,
		args:       args,
	}

	b.logger.Debug().
		Str("bundle", name).
		Str("entrypoint", inv.entrypoint).
		Str("outfile", outfile).
		Int("tokens", len(tokens)).
		Msg("Assembled esbuild invocation")

	return inv, nil
}

// quote wraps a value in double quotes for the shell form of the command,
// escaping the characters a POSIX shell still interprets inside them.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")
	return `"` + r.Replace(s) + `"`
}

// shellArg returns s unchanged when a shell passes it through as one word,
// and quoted otherwise. Glob characters are left alone so externals such as
// @aws-sdk/* keep their documented form.
func shellArg(s string) string {
	if s == "" {
		return `""`
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.ContainsRune("_-./@%+=:,*", c):
		default:
			return quote(s)
		}
	}
	return s
}
