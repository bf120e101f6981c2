package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fwbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "fwbuilder.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./Marlin", cfg.FirmwareDir)
	assert.Equal(t, filepath.Join(dir, "Marlin"), cfg.FirmwarePath())
	assert.Equal(t, "platformio", cfg.Tool.Command)
	assert.Equal(t, "platformio", cfg.Tool.InvocationMarker)
	assert.Equal(t, "exit", cfg.Shell.ExitCommand)
	assert.Equal(t, 100*time.Millisecond, cfg.Shell.PollInterval)
	assert.Equal(t, 50, cfg.History.MaxSessions)
	assert.True(t, cfg.History.Enabled)
	assert.Len(t, cfg.Outputs, 2)
	require.NoError(t, cfg.Validate())
}

func TestLoad_OverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("FW_TEST_DIR", "/opt/marlin")
	path := writeConfig(t, `
firmware_dir: ${FW_TEST_DIR}
tool:
  command: pio
shell:
  poll_interval: 250ms
  output_encoding: CP437
logging:
  level: debug
  format: json
retry:
  spawn_retries: 2
  backoff: exponential
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/marlin", cfg.FirmwarePath())
	assert.Equal(t, "pio", cfg.Tool.Command)
	assert.Equal(t, "pio", cfg.Tool.InvocationMarker, "invocation marker follows the command")
	assert.Equal(t, 250*time.Millisecond, cfg.Shell.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Shell.TeardownTimeout)
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel(cfg.Logging.Level))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat(cfg.Logging.Format))
	assert.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff(cfg.Retry.Backoff))

	enc, err := cfg.Shell.Encoding()
	require.NoError(t, err)
	assert.Equal(t, charmap.CodePage437, enc)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FW_TEST_CMD=from-dotenv\nFW_TEST_KEEP=from-dotenv\n"), 0o600))
	t.Setenv("FW_TEST_KEEP", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("FW_TEST_CMD") })

	path := filepath.Join(dir, "fwbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tool:\n  command: ${FW_TEST_CMD}\n  success_marker: ${FW_TEST_KEEP}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Tool.Command)
	assert.Equal(t, "from-env", cfg.Tool.SuccessMarker)
}

func TestLoad_ParseError(t *testing.T) {
	path := writeConfig(t, "firmware_dir: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Shell.PollInterval = 2 * time.Second
	cfg.Shell.OutputEncoding = "ebcdic"
	cfg.Logging.Level = "loud"
	cfg.Retry.Backoff = "random"
	cfg.Outputs = append(cfg.Outputs, Output{Template: "Configuration.h", Path: cfg.Outputs[0].Path})

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	problems, ok := classified.Context().Get("problems")
	require.True(t, ok)
	assert.Len(t, problems, 5)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fwbuilder.yaml")
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults().Tool, cfg.Tool)
	assert.Equal(t, Defaults().Shell.SpawnTimeout, cfg.Shell.SpawnTimeout)
}

func TestOutputPath(t *testing.T) {
	cfg := Defaults()
	cfg.FirmwareDir = "/fw"
	assert.Equal(t, filepath.Join("/fw", "Marlin", "Configuration.h"), cfg.OutputPath(cfg.Outputs[0]))
	assert.Equal(t, "/abs/x.h", cfg.OutputPath(Output{Template: "t", Path: "/abs/x.h"}))
}

func TestDefaultShell(t *testing.T) {
	path, args := DefaultShell("windows")
	assert.Equal(t, "cmd.exe", path)
	assert.Equal(t, []string{"/K"}, args)

	path, args = DefaultShell("linux")
	assert.Equal(t, "/bin/sh", path)
	assert.Equal(t, []string{"-s"}, args)
}

func TestShellEncoding_UTF8NeedsNoDecoder(t *testing.T) {
	enc, err := ShellConfig{OutputEncoding: "UTF-8"}.Encoding()
	require.NoError(t, err)
	assert.Nil(t, enc)
}
