package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
	"github.com/fluxbase-eu/lambdagen/cli/config"
	"github.com/fluxbase-eu/lambdagen/cli/util"
)

var (
	initForce   bool
	initRuntime string
	initCDK     int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write .lambdagen.yaml with the default settings to the project directory.

Examples:
  lambdagen init
  lambdagen init --runtime nodejs20.x
  lambdagen init --cdk-version 1 --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
	initCmd.Flags().StringVar(&initRuntime, "runtime", "", "Lambda runtime used to derive target and externals")
	initCmd.Flags().IntVar(&initCDK, "cdk-version", 2, "AWS CDK major version (1 or 2)")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.FileName
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectDir, path)
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		if !util.IsInteractive() {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		ok, err := util.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Overwrite %s?", path), false)
		if err != nil {
			return err
		}
		if !ok {
			formatter.PrintInfo("Aborted")
			return nil
		}
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	cfg := config.New()
	cfg.Runtime = initRuntime
	cfg.CDKVersion = initCDK
	cfg.ProjectDir = projectDir
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w (supported runtimes: %v)", err, bundler.SupportedRuntimes())
	}

	if err := cfg.Save(path); err != nil {
		return err
	}

	formatter.PrintSuccess(fmt.Sprintf("Wrote %s", path))
	return nil
}
