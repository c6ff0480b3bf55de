// Package config loads the lambdagen project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fluxbase-eu/lambdagen/cli/bundler"
)

// FileName is the project configuration file looked up in the project
// directory.
const FileName = ".lambdagen.yaml"

// Runner names accepted by the runner key.
const (
	RunnerExec = "exec"
	RunnerAPI  = "api"
)

// Config represents the project configuration
type Config struct {
	SrcDir        string          `mapstructure:"srcdir" yaml:"srcdir"`
	Extension     string          `mapstructure:"extension" yaml:"extension"`
	BundleDir     string          `mapstructure:"bundledir" yaml:"bundledir"`
	Exclude       []string        `mapstructure:"exclude" yaml:"exclude"`
	CDKVersion    int             `mapstructure:"cdk_version" yaml:"cdk_version"`
	Runtime       string          `mapstructure:"runtime" yaml:"runtime,omitempty"`
	Runner        string          `mapstructure:"runner" yaml:"runner"`
	EsbuildPath   string          `mapstructure:"esbuild_path" yaml:"esbuild_path"`
	Parallelism   int             `mapstructure:"parallelism" yaml:"parallelism"`
	BundleTimeout time.Duration   `mapstructure:"bundle_timeout" yaml:"bundle_timeout"`
	GitIgnore     bool            `mapstructure:"gitignore" yaml:"gitignore"`
	NpmIgnore     bool            `mapstructure:"npmignore" yaml:"npmignore"`
	MetricsFile   string          `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`
	Bundle        bundler.Options `mapstructure:"bundle" yaml:"bundle,omitempty"`
	Handlers      []Handler       `mapstructure:"handlers" yaml:"handlers,omitempty"`

	// ProjectDir is the directory the configuration was loaded for.
	ProjectDir string `mapstructure:"-" yaml:"-"`
	// File is the configuration file used, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

// Handler overrides settings for one entrypoint. Entrypoints listed here are
// bundled even when discovery would not find them.
type Handler struct {
	Entrypoint    string          `mapstructure:"entrypoint" yaml:"entrypoint"`
	ConstructFile string          `mapstructure:"construct_file" yaml:"construct_file,omitempty"`
	ConstructName string          `mapstructure:"construct_name" yaml:"construct_name,omitempty"`
	Bundle        bundler.Options `mapstructure:"bundle" yaml:"bundle,omitempty"`
}

// New returns a configuration populated with the defaults.
func New() *Config {
	return &Config{
		SrcDir:        "src",
		Extension:     ".lambda.ts",
		BundleDir:     "assets",
		Exclude:       []string{"**/node_modules/**", "**/.*/**"},
		CDKVersion:    2,
		Runner:        RunnerExec,
		EsbuildPath:   bundler.Command,
		Parallelism:   1,
		BundleTimeout: 2 * time.Minute,
		GitIgnore:     true,
		NpmIgnore:     true,
	}
}

// Load reads the project configuration for projectDir. configFile, when set,
// names the file explicitly; otherwise .lambdagen.yaml is looked up in
// projectDir and a missing file means defaults plus environment.
func Load(projectDir, configFile string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(projectDir); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	// Loader keys such as ".json" contain dots, so nested keys use "::".
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	if configFile != "" {
		if !filepath.IsAbs(configFile) {
			configFile = filepath.Join(projectDir, configFile)
		}
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(projectDir)
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable support with underscore replacer
	v.AutomaticEnv()
	v.SetEnvPrefix("LAMBDAGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("::", "_"))

	// Read config file (if it exists)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Str("dir", projectDir).Msg("No config file found, using environment variables and defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectDir = projectDir
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads environment variables from the project's .env file
func loadEnvFile(projectDir string) error {
	locations := []string{
		filepath.Join(projectDir, ".env"),
		filepath.Join(projectDir, ".env.local"),
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := New()

	// Layout defaults
	v.SetDefault("srcdir", d.SrcDir)
	v.SetDefault("extension", d.Extension)
	v.SetDefault("bundledir", d.BundleDir)
	v.SetDefault("exclude", d.Exclude)

	// Construct defaults
	v.SetDefault("cdk_version", d.CDKVersion)
	v.SetDefault("runtime", "")

	// Bundling defaults
	v.SetDefault("runner", d.Runner)
	v.SetDefault("esbuild_path", d.EsbuildPath)
	v.SetDefault("parallelism", d.Parallelism)
	v.SetDefault("bundle_timeout", d.BundleTimeout.String())

	// Project file defaults
	v.SetDefault("gitignore", d.GitIgnore)
	v.SetDefault("npmignore", d.NpmIgnore)
	v.SetDefault("metrics_file", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SrcDir == "" {
		return fmt.Errorf("srcdir cannot be empty")
	}
	if c.Extension == "" {
		return fmt.Errorf("extension cannot be empty")
	}
	if c.BundleDir == "" {
		return fmt.Errorf("bundledir cannot be empty")
	}
	if filepath.IsAbs(c.BundleDir) {
		return fmt.Errorf("bundledir must be relative to the project directory")
	}

	if c.CDKVersion != 1 && c.CDKVersion != 2 {
		return fmt.Errorf("cdk_version must be 1 or 2")
	}

	if c.Runner != RunnerExec && c.Runner != RunnerAPI {
		return fmt.Errorf("runner must be '%s' or '%s'", RunnerExec, RunnerAPI)
	}

	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1")
	}
	if c.BundleTimeout < 0 {
		return fmt.Errorf("bundle_timeout cannot be negative")
	}

	if _, err := bundler.RuntimeOptions(c.Runtime); err != nil {
		return fmt.Errorf("runtime: %w (supported: %s)", err, strings.Join(bundler.SupportedRuntimes(), ", "))
	}

	seen := make(map[string]bool, len(c.Handlers))
	for i, h := range c.Handlers {
		if h.Entrypoint == "" {
			return fmt.Errorf("handlers[%d]: entrypoint is required", i)
		}
		key := filepath.ToSlash(filepath.Clean(h.Entrypoint))
		if seen[key] {
			return fmt.Errorf("handlers[%d]: duplicate entrypoint %s", i, h.Entrypoint)
		}
		seen[key] = true
	}

	return nil
}

// HandlerFor returns the handler override for an entrypoint, if any.
func (c *Config) HandlerFor(entrypoint string) (Handler, bool) {
	key := filepath.ToSlash(filepath.Clean(entrypoint))
	for _, h := range c.Handlers {
		if filepath.ToSlash(filepath.Clean(h.Entrypoint)) == key {
			return h, true
		}
	}
	return Handler{}, false
}

// ComponentOptions returns the component-level bundle options: the bundle
// section layered over the runtime-derived defaults.
func (c *Config) ComponentOptions() (bundler.Options, error) {
	rt, err := bundler.RuntimeOptions(c.Runtime)
	if err != nil {
		return bundler.Options{}, err
	}
	return bundler.Merge(c.Bundle, rt), nil
}

// Save writes the configuration to the specified path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // project file, checked in
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
