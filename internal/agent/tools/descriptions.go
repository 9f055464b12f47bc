package tools

import (
	"embed"
	"fmt"
	"strings"
)

// toolDescFS embeds the .txt files in this package as tool descriptions.
// A tool key like "read_file" maps to "read_file.txt".
//
//go:embed *.txt
var toolDescFS embed.FS

// ToolDescription returns the embedded description text for the given tool
// key, or "" when no description file exists.
func ToolDescription(toolKey string) string {
	key := strings.TrimSpace(toolKey)
	if key == "" {
		return ""
	}
	key = strings.TrimSuffix(key, ".txt")
	b, err := toolDescFS.ReadFile(fmt.Sprintf("%s.txt", key))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
