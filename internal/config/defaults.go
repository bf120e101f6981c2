package config

import (
	"path/filepath"
	"runtime"
	"time"
)

// Defaults returns the default configuration.
func Defaults() *Config {
	cfg := baseConfig()
	applyDefaults(cfg)
	return cfg
}

// baseConfig holds the defaults that cannot be derived from zero values.
// Derived defaults such as the invocation marker are filled after decoding.
func baseConfig() *Config {
	return &Config{
		FirmwareDir: "./Marlin",
		Project:     "fwbuilder.project.yaml",
		Outputs: []Output{
			{Template: "Configuration.h", Path: filepath.Join("Marlin", "Configuration.h")},
			{Template: "Configuration_adv.h", Path: filepath.Join("Marlin", "Configuration_adv.h")},
		},
		History: HistoryConfig{Enabled: true},
	}
}

// defaultApplier fills zero values of one configuration section.
type defaultApplier func(cfg *Config)

var appliers = []defaultApplier{
	shellDefaults,
	toolDefaults,
	loggingDefaults,
	historyDefaults,
	retryDefaults,
}

func applyDefaults(cfg *Config) {
	for _, apply := range appliers {
		apply(cfg)
	}
}

// DefaultShell returns the shell for goos: cmd.exe with echo on for Windows so
// prompts and invocations appear on the content stream, /bin/sh elsewhere.
func DefaultShell(goos string) (path string, args []string) {
	if goos == "windows" {
		return "cmd.exe", []string{"/K"}
	}
	return "/bin/sh", []string{"-s"}
}

func shellDefaults(cfg *Config) {
	s := &cfg.Shell
	if s.Path == "" {
		s.Path, s.Args = DefaultShell(runtime.GOOS)
	}
	if s.ExitCommand == "" {
		s.ExitCommand = "exit"
	}
	if s.PromptTerminator == "" {
		s.PromptTerminator = ">"
	}
	if s.OutputEncoding == "" {
		s.OutputEncoding = "utf-8"
	}
	if s.SpawnTimeout == 0 {
		s.SpawnTimeout = 10 * time.Second
	}
	if s.TeardownTimeout == 0 {
		s.TeardownTimeout = 5 * time.Second
	}
	if s.PollInterval == 0 {
		s.PollInterval = 100 * time.Millisecond
	}
}

func toolDefaults(cfg *Config) {
	t := &cfg.Tool
	if t.Command == "" {
		t.Command = "platformio"
	}
	if t.InvocationMarker == "" {
		t.InvocationMarker = t.Command
	}
	if t.SuccessMarker == "" {
		t.SuccessMarker = "succeeded"
	}
	if t.VersionMarker == "" {
		t.VersionMarker = "PlatformIO Core"
	}
}

func loggingDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = string(LogLevelInfo)
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = string(LogFormatText)
	}
}

func historyDefaults(cfg *Config) {
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(".fwbuilder", "history.db")
	}
	if cfg.History.MaxSessions == 0 {
		cfg.History.MaxSessions = 50
	}
}

func retryDefaults(cfg *Config) {
	r := &cfg.Retry
	if r.Backoff == "" {
		r.Backoff = string(RetryBackoffLinear)
	}
	if r.InitialDelay == 0 {
		r.InitialDelay = time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = 10 * time.Second
	}
}
