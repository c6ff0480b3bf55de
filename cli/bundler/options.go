package bundler

import (
	"fmt"
	"maps"
	"slices"
)

// Built-in defaults applied to every omitted option.
const (
	DefaultTarget         = "esnext"
	DefaultPlatform       = "node"
	DefaultFormat         = "esm"
	DefaultMainFields     = "module,main"
	DefaultOutfile        = "index.mjs"
	DefaultSourcemap      = true
	DefaultSourcesContent = false
	DefaultMinify         = true

	// DefaultBanner lets ESM bundles call require() for CommonJS dependencies.
	DefaultBanner = "import { createRequire } from 'module'; const require = createRequire(import.meta.url);"

	// MetafileName is written next to the outfile when metafiles are enabled.
	MetafileName = "index.meta.json"
)

// Options configures a single esbuild invocation. A nil field means "not set"
// and is filled from the next layer (see Merge).
type Options struct {
	Target         *string           `mapstructure:"target" yaml:"target,omitempty" json:"target,omitempty"`
	Platform       *string           `mapstructure:"platform" yaml:"platform,omitempty" json:"platform,omitempty"`
	Format         *string           `mapstructure:"format" yaml:"format,omitempty" json:"format,omitempty"`
	Externals      []string          `mapstructure:"externals" yaml:"externals,omitempty" json:"externals,omitempty"`
	Sourcemap      *bool             `mapstructure:"sourcemap" yaml:"sourcemap,omitempty" json:"sourcemap,omitempty"`
	SourcesContent *bool             `mapstructure:"sources_content" yaml:"sources_content,omitempty" json:"sources_content,omitempty"`
	Minify         *bool             `mapstructure:"minify" yaml:"minify,omitempty" json:"minify,omitempty"`
	MainFields     *string           `mapstructure:"main_fields" yaml:"main_fields,omitempty" json:"main_fields,omitempty"`
	Banner         *string           `mapstructure:"banner" yaml:"banner,omitempty" json:"banner,omitempty"`
	Loaders        map[string]string `mapstructure:"loaders" yaml:"loaders,omitempty" json:"loaders,omitempty"`
	Tsconfig       *string           `mapstructure:"tsconfig" yaml:"tsconfig,omitempty" json:"tsconfig,omitempty"`
	Outfile        *string           `mapstructure:"outfile" yaml:"outfile,omitempty" json:"outfile,omitempty"`
	Metafile       *bool             `mapstructure:"metafile" yaml:"metafile,omitempty" json:"metafile,omitempty"`
	ExtraArgs      []string          `mapstructure:"esbuild_args" yaml:"esbuild_args,omitempty" json:"esbuild_args,omitempty"`
}

// Settings is the fully resolved form of Options.
type Settings struct {
	Target         string
	Platform       string
	Format         string
	Externals      []string
	Sourcemap      bool
	SourcesContent bool
	Minify         bool
	MainFields     string
	Banner         string
	Loaders        map[string]string
	Tsconfig       string
	Outfile        string
	Metafile       bool
	ExtraArgs      []string
}

// BuiltinDefaults returns the lowest-precedence option layer.
func BuiltinDefaults() Options {
	return Options{
		Target:         ptr(DefaultTarget),
		Platform:       ptr(DefaultPlatform),
		Format:         ptr(DefaultFormat),
		Sourcemap:      ptr(DefaultSourcemap),
		SourcesContent: ptr(DefaultSourcesContent),
		Minify:         ptr(DefaultMinify),
		MainFields:     ptr(DefaultMainFields),
		Banner:         ptr(DefaultBanner),
		Outfile:        ptr(DefaultOutfile),
		Metafile:       ptr(false),
	}
}

// Merge combines option layers field by field. Layers are ordered from
// highest to lowest precedence: the first layer with a non-nil value for a
// field wins. Maps and slices are taken whole from the winning layer and are
// never merged, so an invocation-level loader map fully replaces a
// component-level one.
func Merge(layers ...Options) Options {
	var out Options
	for _, l := range layers {
		out.Target = first(out.Target, l.Target)
		out.Platform = first(out.Platform, l.Platform)
		out.Format = first(out.Format, l.Format)
		out.Sourcemap = first(out.Sourcemap, l.Sourcemap)
		out.SourcesContent = first(out.SourcesContent, l.SourcesContent)
		out.Minify = first(out.Minify, l.Minify)
		out.MainFields = first(out.MainFields, l.MainFields)
		out.Banner = first(out.Banner, l.Banner)
		out.Tsconfig = first(out.Tsconfig, l.Tsconfig)
		out.Outfile = first(out.Outfile, l.Outfile)
		out.Metafile = first(out.Metafile, l.Metafile)
		if out.Externals == nil && l.Externals != nil {
			out.Externals = slices.Clone(l.Externals)
		}
		if out.Loaders == nil && l.Loaders != nil {
			out.Loaders = maps.Clone(l.Loaders)
		}
		if out.ExtraArgs == nil && l.ExtraArgs != nil {
			out.ExtraArgs = slices.Clone(l.ExtraArgs)
		}
	}
	return out
}

// Resolve applies the three-tier precedence explicit > component > built-in
// and returns concrete settings.
func Resolve(explicit, component Options) Settings {
	m := Merge(explicit, component, BuiltinDefaults())
	return Settings{
		Target:         deref(m.Target),
		Platform:       deref(m.Platform),
		Format:         deref(m.Format),
		Externals:      m.Externals,
		Sourcemap:      deref(m.Sourcemap),
		SourcesContent: deref(m.SourcesContent),
		Minify:         deref(m.Minify),
		MainFields:     deref(m.MainFields),
		Banner:         deref(m.Banner),
		Loaders:        m.Loaders,
		Tsconfig:       deref(m.Tsconfig),
		Outfile:        deref(m.Outfile),
		Metafile:       deref(m.Metafile),
		ExtraArgs:      m.ExtraArgs,
	}
}

// runtimeTargets maps Lambda Node.js runtimes to esbuild targets.
var runtimeTargets = map[string]string{
	"nodejs14.x": "node14",
	"nodejs16.x": "node16",
	"nodejs18.x": "node18",
	"nodejs20.x": "node20",
	"nodejs22.x": "node22",
}

// RuntimeOptions returns the component-level options implied by a Lambda
// runtime. Runtimes up to Node.js 16 ship the v2 SDK, later ones the v3 SDK;
// both are left external. An empty runtime yields empty options.
func RuntimeOptions(runtime string) (Options, error) {
	if runtime == "" {
		return Options{}, nil
	}
	target, ok := runtimeTargets[runtime]
	if !ok {
		return Options{}, fmt.Errorf("unsupported runtime %q", runtime)
	}
	external := "@aws-sdk/*"
	if runtime == "nodejs14.x" || runtime == "nodejs16.x" {
		external = "aws-sdk"
	}
	return Options{
		Target:    ptr(target),
		Externals: []string{external},
	}, nil
}

// SupportedRuntimes lists the runtimes accepted by RuntimeOptions.
func SupportedRuntimes() []string {
	return slices.Sorted(maps.Keys(runtimeTargets))
}

func first[T any](cur, next *T) *T {
	if cur != nil {
		return cur
	}
	if next == nil {
		return nil
	}
	v := *next
	return &v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func ptr[T any](v T) *T {
	return &v
}
