package platformio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
)

func TestScripts(t *testing.T) {
	s := Scripts{FirmwareDir: "/src/Marlin", GOOS: "linux"}

	tests := []struct {
		name string
		got  Script
		want Script
	}{
		{"build", s.Build("mega2560"), Script{OpBuild, []string{`cd "/src/Marlin"`, "platformio run -e mega2560"}, "succeeded"}},
		{"clean", s.Clean("mega2560"), Script{OpClean, []string{`cd "/src/Marlin"`, "platformio run -t clean -e mega2560"}, "succeeded"}},
		{"upload", s.Upload("mega2560"), Script{OpUpload, []string{`cd "/src/Marlin"`, "platformio run -t upload -e mega2560"}, "succeeded"}},
		{"empty env", s.Build(" "), Script{OpBuild, []string{`cd "/src/Marlin"`, "platformio run"}, "succeeded"}},
		{"version", s.Version(), Script{OpVersion, []string{"platformio --version"}, "PlatformIO Core"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestScripts_WindowsAndOverrides(t *testing.T) {
	s := Scripts{Command: "pio", FirmwareDir: `C:\Marlin`, SuccessMarker: "SUCCESS", GOOS: "windows"}

	got := s.Upload("LPC1768")
	assert.Equal(t, []string{`cd /d "C:\Marlin"`, "pio run -t upload -e LPC1768"}, got.Commands)
	assert.Equal(t, "SUCCESS", got.SuccessMarker)
}

func TestScripts_For(t *testing.T) {
	s := Scripts{}
	for _, op := range []Operation{OpBuild, OpClean, OpUpload, OpVersion} {
		got, err := s.For(op, "env")
		require.NoError(t, err)
		assert.Equal(t, op, got.Operation)
	}
	_, err := s.For("flash", "env")
	require.Error(t, err)
}

func TestDetectProject(t *testing.T) {
	dir := t.TempDir()

	err := DetectProject(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoProject))
	assert.Equal(t, ferrors.CategoryProject, ferrors.GetCategory(err))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFile), []byte("[platformio]\n"), 0o600))
	require.NoError(t, DetectProject(dir))
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "6.1.15", ParseVersion("PlatformIO Core, version 6.1.15"))
	assert.Equal(t, "5.2.0", ParseVersion("v5.2.0-dev"))
	assert.Equal(t, "", ParseVersion("command not found"))
	assert.Equal(t, "PlatformIO Core, version 6.1.15", VersionLine([]string{"C:\\>", " PlatformIO Core, version 6.1.15 "}))
}
