package env

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Dir is where per-mode env files live, relative to the working directory
var Dir = filepath.Join("internal", "config", "env")

// Files returns the env files to try for a deployment mode, most specific first
func Files(mode string) []string {
	if mode == "" {
		mode = "development"
	}
	return []string{
		filepath.Join(Dir, fmt.Sprintf(".env.%s", mode)),
		".env",
	}
}

// LoadEnv loads environment variables from the env files for mode.
// Missing files are skipped; variables already set in the process win.
func LoadEnv(mode string) error {
	for _, path := range Files(mode) {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error loading env file %s: %w", path, err)
		}
	}
	return nil
}
