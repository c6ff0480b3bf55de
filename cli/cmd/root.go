// Package cmd provides the Cobra commands for the lambdagen CLI.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/lambdagen/cli/output"
	"github.com/fluxbase-eu/lambdagen/cli/util"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile    string
	projectDir string
	outputFmt  string
	noHeaders  bool
	quiet      bool
	debug      bool
	logFormat  string

	// Shared across commands
	formatter *output.Formatter
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lambdagen",
	Short: "lambdagen - Bundle Lambda handlers and generate CDK constructs",
	Long: `lambdagen discovers Lambda handler entrypoints in a source tree, bundles
each one with esbuild and writes a TypeScript construct file per handler that
loads the bundle with lambda.Code.fromAsset.

Conventions:
  src/hello-world.lambda.ts   handler entrypoint
  assets/hello-world/         bundle output directory
  src/hello-world-code.ts     generated construct (HelloWorldFunctionCode)

Get started:
  lambdagen init         Write a starter .lambdagen.yaml
  lambdagen generate     Write construct files for every handler
  lambdagen bundle       Run esbuild for every handler`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silence errors only when --quiet is used
		cmd.SilenceErrors = quiet
		if err := initLogging(); err != nil {
			return err
		}
		return initFormatter(cmd)
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./.lambdagen.yaml)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".",
		"project directory")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console",
		"log format: console, json")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// initLogging configures the global zerolog logger. Logs go to stderr so
// structured output on stdout stays machine readable.
func initLogging() error {
	switch logFormat {
	case "console", "":
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			NoColor:    !util.IsTerminal(os.Stderr),
			TimeFormat: time.Kitchen,
		})
	case "json":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid log format: %s (valid: console, json)", logFormat)
	}

	switch {
	case debug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case quiet:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return nil
}

func initFormatter(cmd *cobra.Command) error {
	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	formatter = output.NewFormatter(format, noHeaders, quiet)
	formatter.Writer = cmd.OutOrStdout()
	formatter.ErrWriter = cmd.ErrOrStderr()
	return nil
}
