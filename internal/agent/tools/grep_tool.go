package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"codepair/internal/events"
	"codepair/internal/workspace"
)

const grepResultLimit = 100

type GrepInput struct {
	// Pattern is compiled as a Go regexp and matched per line.
	Pattern string `json:"pattern" jsonschema:"description=The regex pattern to search for in file contents"`
	// Path is a directory relative to the workspace root to search in.
	Path string `json:"path,omitempty" jsonschema:"description=The directory to search in, relative to the workspace root. Omit for the root."`
	// Include restricts the search to matching file names, e.g. "*.go" or
	// "*.{ts,tsx}". Patterns apply to the root-relative path and to the bare
	// file name.
	Include string `json:"include,omitempty" jsonschema:"description=Optional file pattern to include in the search (e.g. \"*.go\", \"*.{ts,tsx}\")"`
}

type GrepOutput struct {
	Title    string            `json:"title"`
	Output   string            `json:"output"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// grepHit is one matching line, carrying its file's mtime for ordering.
type grepHit struct {
	file string
	num  int
	text string
	mod  int64
}

// Grep scans files under a directory for a regex pattern. Results are
// grouped by file, sorted by file mtime descending, and capped at
// grepResultLimit matches.
func Grep(ctx context.Context, in *GrepInput) (*GrepOutput, error) {
	if in == nil {
		return grepFormatError("", "input is required"), nil
	}

	session, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}

	pattern := strings.TrimSpace(in.Pattern)
	if pattern == "" {
		return grepFormatError("", "pattern is required"), nil
	}
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return grepFormatError(pattern, "invalid regex pattern"), nil
	}

	includes := expandAlternation(strings.TrimSpace(in.Include))

	dir := strings.TrimSpace(in.Path)
	files, _, err := workspace.Walk(session.root, dir, session.ignores, 0)
	if err != nil {
		events.Emit(ctx, events.TopicAgent, events.NewWarn(fmt.Sprintf("Grep: %v", err)))
		return grepFormatError(pattern, err.Error()), nil
	}

	searchPath := session.root.Base()
	if dir != "" {
		searchPath, _ = session.root.Resolve(dir)
	}

	var hits []grepHit
	for _, rel := range files {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if !includeMatch(includes, rel) {
			continue
		}
		hits = scanFileMatches(hits, searchPath, rel, rx)
	}

	if len(hits) == 0 {
		events.Emit(ctx, events.TopicAgent, events.NewToolEvent(events.EventInfo, fmt.Sprintf("Grep '%s': no matches", pattern), "grep", pattern))
		return &GrepOutput{
			Title:  pattern,
			Output: "No files found",
			Metadata: map[string]string{
				"matches":   "0",
				"truncated": "false",
			},
		}, nil
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].mod == hits[j].mod {
			return hits[i].file < hits[j].file
		}
		return hits[i].mod > hits[j].mod
	})

	truncated := len(hits) > grepResultLimit
	if truncated {
		hits = hits[:grepResultLimit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matches", len(hits))
	lastFile := ""
	for _, h := range hits {
		if h.file != lastFile {
			lastFile = h.file
			fmt.Fprintf(&b, "\n\n%s:", h.file)
		}
		fmt.Fprintf(&b, "\n  Line %d: %s", h.num, h.text)
	}
	if truncated {
		b.WriteString("\n\n(Results are truncated. Consider using a more specific path or pattern.)")
	}

	events.Emit(ctx, events.TopicAgent, events.NewToolEvent(events.EventInfo, fmt.Sprintf("Grep '%s' matched %d line(s)", pattern, len(hits)), "grep", pattern))

	return &GrepOutput{
		Title:  pattern,
		Output: b.String(),
		Metadata: map[string]string{
			"matches":   fmt.Sprintf("%d", len(hits)),
			"truncated": fmt.Sprintf("%v", truncated),
		},
	}, nil
}

// scanFileMatches appends a hit for every line of searchPath/rel that rx
// matches. Binary and unreadable files contribute nothing.
func scanFileMatches(hits []grepHit, searchPath, rel string, rx *regexp.Regexp) []grepHit {
	abs := filepath.Join(searchPath, filepath.FromSlash(rel))
	if bin, err := isBinaryFile(abs); err != nil || bin {
		return hits
	}
	st, err := os.Stat(abs)
	if err != nil {
		return hits
	}
	f, err := os.Open(abs)
	if err != nil {
		return hits
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	num := 0
	for scanner.Scan() {
		num++
		text := scanner.Text()
		if rx.MatchString(text) {
			hits = append(hits, grepHit{
				file: rel,
				num:  num,
				text: text,
				mod:  st.ModTime().UnixNano(),
			})
		}
	}
	return hits
}

func grepFormatError(title, msg string) *GrepOutput {
	return &GrepOutput{
		Title:  title,
		Output: "Format error: " + msg,
		Metadata: map[string]string{
			"error":     "format_error",
			"matches":   "0",
			"truncated": "false",
		},
	}
}

// includeMatch reports whether rel passes the include filter. Each pattern
// is tried against the relative path and against the bare file name, so
// "*.go" selects Go files at any depth. An empty filter passes everything.
func includeMatch(patterns []string, rel string) bool {
	if len(patterns) == 0 {
		return true
	}
	base := path.Base(rel)
	for _, p := range patterns {
		if ok, err := path.Match(p, rel); err == nil && ok {
			return true
		}
		if ok, err := path.Match(p, base); err == nil && ok {
			return true
		}
	}
	return false
}

// expandAlternation splits one comma-separated brace section per pass, so
// "*.{ts,tsx}" becomes ["*.ts", "*.tsx"]. Unmatched braces stay literal and
// an empty pattern yields nil.
func expandAlternation(pattern string) []string {
	if pattern == "" {
		return nil
	}
	head, rest, found := strings.Cut(pattern, "{")
	if !found {
		return []string{pattern}
	}
	body, tail, found := strings.Cut(rest, "}")
	if !found {
		return []string{pattern}
	}
	var out []string
	for _, alt := range strings.Split(body, ",") {
		out = append(out, expandAlternation(head+alt+tail)...)
	}
	return out
}
