package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env and .env.local from dir. Variables already set in
// the process environment are not overwritten. Missing files are skipped.
func loadEnvFiles(dir string) {
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		err := godotenv.Load(path)
		switch {
		case err == nil:
			slog.Debug("Loaded environment file", "path", path)
		case errors.Is(err, os.ErrNotExist):
		default:
			slog.Warn("Could not load environment file", "path", path, "error", err)
		}
	}
}
