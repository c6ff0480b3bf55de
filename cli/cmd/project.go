package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
	"github.com/fluxbase-eu/lambdagen/cli/config"
	"github.com/fluxbase-eu/lambdagen/cli/discovery"
	"github.com/fluxbase-eu/lambdagen/cli/project"
)

// loadedProject is the configuration and plan shared by the commands that
// operate on the project.
type loadedProject struct {
	cfg  *config.Config
	plan *project.Plan
}

// loadProject reads the configuration, discovers entrypoints and plans every
// bundle. Nothing is written.
func loadProject() (*loadedProject, error) {
	cfg, err := config.Load(projectDir, cfgFile)
	if err != nil {
		return nil, err
	}

	walker, err := discovery.New(cfg.ProjectDir, cfg.Exclude, discovery.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}
	return planProject(cfg, walker)
}

func planProject(cfg *config.Config, d discovery.Discoverer) (*loadedProject, error) {
	entrypoints, err := d.Discover(cfg.SrcDir, cfg.Extension)
	if err != nil {
		return nil, err
	}

	builder, err := project.NewBuilder(cfg)
	if err != nil {
		return nil, err
	}
	planner, err := project.NewPlanner(builder, cfg, project.WithAnnotations(cfg.ProjectDir))
	if err != nil {
		return nil, err
	}
	plan, err := planner.Plan(entrypoints)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("config", cfg.File).
		Int("bundles", len(plan.Bundles)).
		Msg("Project loaded")

	return &loadedProject{cfg: cfg, plan: plan}, nil
}

// newRunner returns the runner selected by the runner key.
func newRunner(cfg *config.Config) (bundler.Runner, error) {
	opts := []bundler.RunnerOption{
		bundler.WithRunnerLogger(log.Logger),
		bundler.WithTimeout(cfg.BundleTimeout),
		bundler.WithOutput(formatter.ErrWriter),
	}

	switch cfg.Runner {
	case config.RunnerAPI:
		return bundler.NewAPIRunner(cfg.ProjectDir, opts...), nil
	case config.RunnerExec, "":
		runner, err := bundler.NewExecRunner(cfg.ProjectDir, cfg.EsbuildPath, opts...)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("binary", runner.Binary()).Msg("Using esbuild binary")
		return runner, nil
	default:
		return nil, fmt.Errorf("unknown runner: %s", cfg.Runner)
	}
}
