package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/lambdagen/cli/annotations"
	"github.com/fluxbase-eu/lambdagen/cli/bundler"
	"github.com/fluxbase-eu/lambdagen/cli/config"
	"github.com/fluxbase-eu/lambdagen/cli/construct"
	"github.com/fluxbase-eu/lambdagen/cli/ignore"
)

// Option configures the project components.
type Option func(*options)

type options struct {
	logger     zerolog.Logger
	projectDir string
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAnnotations makes the planner read @lambdagen: annotations from each
// entrypoint, resolved relative to projectDir.
func WithAnnotations(projectDir string) Option {
	return func(o *options) { o.projectDir = projectDir }
}

func newOptions(opts []Option) options {
	o := options{logger: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewBuilder creates the bundle-command builder described by cfg. Component
// defaults are the bundle section layered over runtime-derived options.
func NewBuilder(cfg *config.Config, opts ...Option) (*bundler.Builder, error) {
	o := newOptions(opts)
	defaults, err := cfg.ComponentOptions()
	if err != nil {
		return nil, err
	}
	return bundler.NewBuilder(bundler.Config{
		BundleDir:  cfg.BundleDir,
		Extension:  cfg.Extension,
		SourceRoot: sourceRoot(cfg.SrcDir),
		Defaults:   defaults,
	}, bundler.WithLogger(o.logger)), nil
}

// sourceRoot is the first segment of srcdir, the one segment trimmed from
// bundle identifiers.
func sourceRoot(srcDir string) string {
	return strings.SplitN(filepath.ToSlash(filepath.Clean(srcDir)), "/", 2)[0]
}

// Planner builds a Plan. The bundler and the configuration are passed in
// explicitly; nothing is looked up globally.
type Planner struct {
	builder    *bundler.Builder
	cfg        *config.Config
	logger     zerolog.Logger
	projectDir string
}

// NewPlanner returns a planner. A nil builder is a configuration error.
func NewPlanner(builder *bundler.Builder, cfg *config.Config, opts ...Option) (*Planner, error) {
	if builder == nil {
		return nil, bundler.ErrNoBundler
	}
	if cfg == nil {
		cfg = config.New()
	}
	o := newOptions(opts)
	return &Planner{builder: builder, cfg: cfg, logger: o.logger, projectDir: o.projectDir}, nil
}

// Plan computes invocations, construct files, tasks and ignore entries for
// the given entrypoints plus every entrypoint listed under handlers. It
// validates everything and writes nothing.
func (p *Planner) Plan(entrypoints []string) (*Plan, error) {
	plan := &Plan{}

	names := make(map[string]string)
	files := make(map[string]string)
	bundles := make(map[string]string)

	for _, ep := range p.entrypoints(entrypoints) {
		h, _ := p.cfg.HandlerFor(ep)

		ann, err := p.annotations(ep)
		if err != nil {
			return nil, err
		}

		inv, err := p.builder.Build(ep, bundler.Merge(h.Bundle, ann.Bundle))
		if err != nil {
			return nil, err
		}

		// Bundle identifiers name the output directory and the tasks, so
		// two entrypoints must never share one.
		if other, ok := bundles[inv.Name()]; ok {
			return nil, fmt.Errorf("entrypoints %s and %s both map to bundle %s",
				other, bundler.ToPortablePath(ep), inv.Name())
		}
		bundles[inv.Name()] = bundler.ToPortablePath(ep)

		file := h.ConstructFile
		if file == "" && ann.ConstructFile != nil {
			file = *ann.ConstructFile
		}
		if file == "" {
			file = construct.DefaultFile(ep, p.builder.Extension())
		}
		file = filepath.Clean(filepath.FromSlash(file))

		name := h.ConstructName
		if name == "" && ann.ConstructName != nil {
			name = *ann.ConstructName
		}
		if name == "" {
			name = construct.DeriveName(inv.Name())
		}

		c, err := construct.New(file, name, inv.Name(), inv.Outdir(), p.cfg.CDKVersion)
		if err != nil {
			return nil, err
		}

		if other, ok := files[file]; ok {
			return nil, fmt.Errorf("bundles %s and %s both generate %s", other, inv.Name(), bundler.ToPortablePath(file))
		}
		files[file] = inv.Name()

		if other, ok := names[name]; ok {
			p.logger.Warn().
				Str("construct", name).
				Str("bundle", inv.Name()).
				Str("other", other).
				Msg("Construct name is generated for more than one bundle")
		} else {
			names[name] = inv.Name()
		}

		plan.Bundles = append(plan.Bundles, &Bundle{Entrypoint: ep, Invocation: inv, Construct: c})
	}

	plan.Tasks = tasksFor(plan.Bundles)
	plan.Ignores = p.ignores()

	p.logger.Debug().
		Int("bundles", len(plan.Bundles)).
		Int("tasks", len(plan.Tasks)).
		Msg("Planned project")

	return plan, nil
}

// entrypoints merges discovered and configured entrypoints, sorted and
// de-duplicated by forward-slash path.
func (p *Planner) entrypoints(discovered []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ep string) {
		ep = filepath.Clean(filepath.FromSlash(ep))
		key := bundler.ToPortablePath(ep)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, ep)
	}
	for _, ep := range discovered {
		add(ep)
	}
	for _, h := range p.cfg.Handlers {
		add(h.Entrypoint)
	}
	sort.Slice(out, func(i, j int) bool {
		return bundler.ToPortablePath(out[i]) < bundler.ToPortablePath(out[j])
	})
	return out
}

// annotations parses @lambdagen: comments from the entrypoint source.
// Configured handlers take precedence over them. A handler listed in the
// configuration that does not exist yet has no annotations.
func (p *Planner) annotations(ep string) (annotations.HandlerConfig, error) {
	if p.projectDir == "" {
		return annotations.HandlerConfig{}, nil
	}
	code, err := os.ReadFile(filepath.Join(p.projectDir, ep))
	if errors.Is(err, fs.ErrNotExist) {
		return annotations.HandlerConfig{}, nil
	}
	if err != nil {
		return annotations.HandlerConfig{}, fmt.Errorf("failed to read %s: %w", bundler.ToPortablePath(ep), err)
	}

	ann := annotations.Parse(string(code))
	if !ann.IsZero() {
		p.logger.Debug().Str("entrypoint", bundler.ToPortablePath(ep)).Msg("Applied source annotations")
	}
	return ann, nil
}

func (p *Planner) ignores() []IgnoreEntry {
	var out []IgnoreEntry
	if p.cfg.GitIgnore {
		out = append(out, IgnoreEntry{File: ".gitignore", Entry: ignore.GitEntry(p.builder.BundleDir())})
	}
	if p.cfg.NpmIgnore {
		out = append(out, IgnoreEntry{File: ".npmignore", Entry: ignore.NpmEntry(p.builder.BundleDir())})
	}
	return out
}

// tasksFor returns the aggregate bundle task followed by one build task and
// one watch task per bundle.
func tasksFor(bundles []*Bundle) []Task {
	all := Task{Name: BundleTask, Description: "Prepare assets"}
	tasks := []Task{}
	for _, b := range bundles {
		all.Commands = append(all.Commands, b.Invocation.Command())
	}
	tasks = append(tasks, all)

	for _, b := range bundles {
		tasks = append(tasks,
			Task{
				Name:        BundleTask + ":" + b.Name(),
				Description: "Create a JavaScript bundle from " + b.Invocation.Entrypoint(),
				Commands:    []string{b.Invocation.Command()},
			},
			Task{
				Name:        BundleTask + ":" + b.Name() + ":watch",
				Description: "Continuously update the JavaScript bundle from " + b.Invocation.Entrypoint(),
				Commands:    []string{b.Invocation.Watch().Command()},
			},
		)
	}
	return tasks
}
