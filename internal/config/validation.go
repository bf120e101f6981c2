package config

import (
	"fmt"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
)

// Validate checks every section and reports all invalid fields at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.FirmwareDir) == "" {
		add("firmware_dir is required")
	}
	if strings.TrimSpace(c.Project) == "" {
		add("project is required")
	}
	if len(c.Outputs) == 0 {
		add("outputs must list at least one template")
	}
	seen := make(map[string]bool, len(c.Outputs))
	for i, o := range c.Outputs {
		if o.Template == "" {
			add("outputs[%d].template is required", i)
		}
		if o.Path == "" {
			add("outputs[%d].path is required", i)
		}
		if seen[o.Path] {
			add("outputs[%d].path %q is used twice", i, o.Path)
		}
		seen[o.Path] = true
	}

	s := c.Shell
	if s.Path == "" {
		add("shell.path is required")
	}
	if s.ExitCommand == "" {
		add("shell.exit_command is required")
	}
	if _, err := s.Encoding(); err != nil {
		add("shell.output_encoding: %v", err)
	}
	if s.SpawnTimeout <= 0 {
		add("shell.spawn_timeout must be positive")
	}
	if s.TeardownTimeout <= 0 {
		add("shell.teardown_timeout must be positive")
	}
	if s.PollInterval <= 0 || s.PollInterval >= time.Second {
		add("shell.poll_interval must be between 0 and 1s, got %s", s.PollInterval)
	}

	if c.Tool.Command == "" {
		add("tool.command is required")
	}
	if c.Tool.SuccessMarker == "" {
		add("tool.success_marker is required")
	}

	if !logLevels.Valid(c.Logging.Level) {
		add("logging.level %q is not one of %s", c.Logging.Level, strings.Join(logLevels.Keys(), ", "))
	}
	if !logFormats.Valid(c.Logging.Format) {
		add("logging.format %q is not one of %s", c.Logging.Format, strings.Join(logFormats.Keys(), ", "))
	}

	if c.History.Enabled && c.History.Path == "" {
		add("history.path is required when history is enabled")
	}
	if c.History.MaxSessions < 0 {
		add("history.max_sessions cannot be negative")
	}

	r := c.Retry
	if r.SpawnRetries < 0 {
		add("retry.spawn_retries cannot be negative")
	}
	if NormalizeRetryBackoff(r.Backoff) == "" {
		add("retry.backoff %q is not one of %s", r.Backoff, strings.Join(retryBackoffs.Keys(), ", "))
	}
	if r.InitialDelay <= 0 || r.MaxDelay <= 0 {
		add("retry delays must be positive")
	}

	if len(problems) == 0 {
		return nil
	}
	return ferrors.ValidationError("invalid configuration").
		WithCause(fmt.Errorf("%s", strings.Join(problems, "; "))).
		WithContext("problems", problems).
		Build()
}
