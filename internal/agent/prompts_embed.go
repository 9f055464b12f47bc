package agent

import (
	"embed"
	"fmt"
	"strings"
)

// embeddedPrompts holds the built-in prompt texts so packaged executables
// can load them without access to the source tree.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Prompt returns the embedded prompt with the given name, or "" when it
// does not exist.
func Prompt(name string) string {
	key := strings.TrimSuffix(strings.TrimSpace(name), ".txt")
	if key == "" {
		return ""
	}
	b, err := embeddedPrompts.ReadFile(fmt.Sprintf("prompts/%s.txt", key))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
