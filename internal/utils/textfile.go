package utils

import (
	"os"
	"strings"
)

// ReadPatternLines loads a pattern-list file: one entry per line, with
// surrounding whitespace trimmed. Blank lines and # comments are skipped.
// An unreadable file yields no patterns.
func ReadPatternLines(path string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var patterns []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
