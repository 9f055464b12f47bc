package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory or the nearest
// ancestor, stopping at the enclosing git root. A missing file is not an
// error.
func LoadEnv() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for {
		if envPath := filepath.Join(dir, ".env"); FileExists(envPath) {
			return godotenv.Load(envPath)
		}
		if HasGitRepo(dir) {
			return nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}
