//go:build !prod

package database

// GetDefaultDBPath keeps the database in the working directory during
// development so it is easy to inspect and throw away.
func GetDefaultDBPath() string {
	return "codepair.db"
}
