package platformio

import (
	"errors"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
)

// ProjectFile is the file marking a PlatformIO project directory.
const ProjectFile = "platformio.ini"

// ErrNoProject is returned when a firmware directory has no platformio.ini.
var ErrNoProject = ferrors.ProjectError("not a PlatformIO project").Build()

// DetectProject checks that dir contains a platformio.ini. The file's content
// is not parsed.
func DetectProject(dir string) error {
	path := filepath.Join(dir, ProjectFile)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ferrors.Wrap(ErrNoProject, err).WithContext("path", path).Build()
	case err != nil:
		return ferrors.FileSystemError("stat project file").WithCause(err).WithContext("path", path).Build()
	case info.IsDir():
		return ferrors.Wrap(ErrNoProject, errors.New(ProjectFile+" is a directory")).WithContext("path", path).Build()
	}
	return nil
}
