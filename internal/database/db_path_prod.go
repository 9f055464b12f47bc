//go:build prod

package database

import (
	"os"
	"path/filepath"
)

// GetDefaultDBPath places the database under the user's config directory,
// e.g. ~/.config/codepair/codepair.db on Linux. Init creates the directory.
// When no config directory can be determined the working directory is used.
func GetDefaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "codepair.db"
	}
	return filepath.Join(configDir, "codepair", "codepair.db")
}
