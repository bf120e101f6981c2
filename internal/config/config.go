// Package config loads the fwbuilder application configuration from YAML with
// environment variable expansion and .env support.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
)

// DefaultPath is the config file used when none is given.
const DefaultPath = "fwbuilder.yaml"

// Config is the application configuration.
type Config struct {
	// FirmwareDir is the directory holding platformio.ini.
	FirmwareDir string `yaml:"firmware_dir"`
	// Project is the project file with option values and the build environment.
	Project string        `yaml:"project"`
	Outputs []Output      `yaml:"outputs"`
	Shell   ShellConfig   `yaml:"shell"`
	Tool    ToolConfig    `yaml:"tool"`
	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
	Retry   RetryConfig   `yaml:"retry"`

	// baseDir is the directory of the loaded file; relative paths resolve
	// against it.
	baseDir string
}

// Output maps an embedded template to a generated file. A relative Path is
// resolved against FirmwareDir.
type Output struct {
	Template string `yaml:"template"`
	Path     string `yaml:"path"`
}

// ShellConfig describes the shell that runs build scripts.
type ShellConfig struct {
	Path             string        `yaml:"path"`
	Args             []string      `yaml:"args,omitempty"`
	ExitCommand      string        `yaml:"exit_command"`
	PromptTerminator string        `yaml:"prompt_terminator"`
	OutputEncoding   string        `yaml:"output_encoding"`
	SpawnTimeout     time.Duration `yaml:"spawn_timeout"`
	TeardownTimeout  time.Duration `yaml:"teardown_timeout"`
	PollInterval     time.Duration `yaml:"poll_interval"`
}

// ToolConfig describes the build tool and the markers found in its output.
type ToolConfig struct {
	Command          string `yaml:"command"`
	InvocationMarker string `yaml:"invocation_marker"`
	SuccessMarker    string `yaml:"success_marker"`
	VersionMarker    string `yaml:"version_marker"`
}

// LoggingConfig controls diagnostic logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HistoryConfig controls the session history database.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	MaxSessions int    `yaml:"max_sessions"`
}

// MetricsConfig controls metrics export. An empty Textfile disables export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// RetryConfig controls retries of failed shell spawns.
type RetryConfig struct {
	SpawnRetries int           `yaml:"spawn_retries"`
	Backoff      string        `yaml:"backoff"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// Load reads the configuration at path. A missing file yields the defaults.
// Environment variables are loaded from .env and .env.local next to the file
// first, then ${VAR} references in the file are expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	baseDir := filepath.Dir(path)
	loadEnvFiles(baseDir)

	cfg := baseConfig()
	cfg.baseDir = baseDir

	// #nosec G304 -- the config path is chosen by the user.
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		applyDefaults(cfg)
		return cfg, nil
	case err != nil:
		return nil, ferrors.ConfigError("read config file").WithCause(err).WithContext("path", path).Build()
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, ferrors.ConfigError("parse config file").WithCause(err).WithContext("path", path).Build()
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes a default configuration file. An existing file is kept unless
// force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).
			UserAction().Build()
	}
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return ferrors.InternalError("marshal default config").WithCause(err).Build()
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ferrors.FileSystemError("write config file").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}

// resolve joins a relative path with the config directory.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// FirmwarePath is FirmwareDir resolved against the config directory.
func (c *Config) FirmwarePath() string { return c.resolve(c.FirmwareDir) }

// ProjectPath is Project resolved against the config directory.
func (c *Config) ProjectPath() string { return c.resolve(c.Project) }

// HistoryPath is History.Path resolved against the config directory.
func (c *Config) HistoryPath() string { return c.resolve(c.History.Path) }

// MetricsPath is Metrics.Textfile resolved against the config directory, or
// "" when export is disabled.
func (c *Config) MetricsPath() string { return c.resolve(c.Metrics.Textfile) }

// OutputPath resolves an output path against the firmware directory.
func (c *Config) OutputPath(o Output) string {
	if filepath.IsAbs(o.Path) {
		return o.Path
	}
	return filepath.Join(c.FirmwarePath(), o.Path)
}
