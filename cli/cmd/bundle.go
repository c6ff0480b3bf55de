package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
	"github.com/fluxbase-eu/lambdagen/cli/output"
	"github.com/fluxbase-eu/lambdagen/cli/project"
	"github.com/fluxbase-eu/lambdagen/cli/util"
)

var (
	bundleWatch        bool
	bundleSkipGenerate bool
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [bundle...]",
	Short: "Run esbuild for every handler",
	Long: `Bundle handlers with esbuild. Without arguments every handler is bundled;
otherwise only the named bundles (as printed by 'lambdagen tasks').

Construct files are regenerated first unless --skip-generate is set.

Examples:
  lambdagen bundle
  lambdagen bundle hello-world api/orders
  lambdagen bundle bundle:hello-world --watch
  lambdagen bundle -o json`,
	RunE: runBundle,
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		p, err := loadProject()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var names []string
		for _, b := range p.plan.Bundles {
			names = append(names, b.Name())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	},
}

func init() {
	bundleCmd.Flags().BoolVarP(&bundleWatch, "watch", "w", false, "Rebuild bundles when their sources change")
	bundleCmd.Flags().BoolVar(&bundleSkipGenerate, "skip-generate", false, "Do not regenerate construct files first")
}

func runBundle(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	selected, unknown := p.plan.Select(args)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown %s: %s", util.Pluralize(len(unknown), "bundle", "bundles"), strings.Join(unknown, ", "))
	}
	if len(selected) == 0 {
		formatter.PrintInfo(fmt.Sprintf("No handlers matching *%s found in %s", p.cfg.Extension, p.cfg.SrcDir))
		return nil
	}

	if !bundleSkipGenerate {
		w := project.NewWriter(p.cfg.ProjectDir)
		files, err := w.Render(p.plan)
		if err != nil {
			return err
		}
		written, err := w.Apply(files)
		if err != nil {
			return err
		}
		for _, f := range written {
			log.Info().Str("file", f).Msg("Wrote generated file")
		}
	}

	runner, err := newRunner(p.cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sel := &project.Plan{Bundles: selected}
	if bundleWatch {
		return watchBundles(ctx, runner, p, sel)
	}
	return buildBundles(ctx, runner, p, sel)
}

func buildBundles(ctx context.Context, runner bundler.Runner, p *loadedProject, sel *project.Plan) error {
	var metrics *project.Metrics
	if p.cfg.MetricsFile != "" {
		metrics = project.NewMetrics()
	}

	invs := sel.Invocations()

	log.Info().
		Int("bundles", len(invs)).
		Int("parallelism", p.cfg.Parallelism).
		Str("runner", p.cfg.Runner).
		Msg("Bundling")

	start := time.Now()
	results, runErr := project.NewExecutor(runner, p.cfg.ProjectDir, p.cfg.Parallelism, metrics).Run(ctx, invs)

	if metrics != nil {
		path := p.cfg.MetricsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.cfg.ProjectDir, path)
		}
		if err := metrics.WriteTextfile(path); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Failed to write metrics")
		}
	}

	if runErr != nil {
		var exitErr *bundler.ExitError
		if errors.As(runErr, &exitErr) {
			log.Debug().Int("exit_code", exitErr.ExitCode).Str("bundle", exitErr.Bundle).Msg("esbuild failed")
		}
		return runErr
	}

	if formatter.Format != output.FormatTable {
		return formatter.Print(project.Results(results))
	}
	if err := formatter.Print(project.Results(results)); err != nil {
		return err
	}
	formatter.PrintSuccess(fmt.Sprintf("Bundled %d %s in %s",
		len(results), util.Pluralize(len(results), "handler", "handlers"), util.FormatDuration(time.Since(start))))
	return nil
}

// watchBundles runs every watch invocation at once until interrupted.
func watchBundles(ctx context.Context, runner bundler.Runner, p *loadedProject, sel *project.Plan) error {
	invs := sel.WatchInvocations()

	log.Info().Int("bundles", len(invs)).Msg("Watching for changes, press Ctrl+C to stop")

	_, err := project.NewExecutor(runner, p.cfg.ProjectDir, len(invs), nil).Run(ctx, invs)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
