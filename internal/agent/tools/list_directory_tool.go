package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"codepair/internal/events"
	"codepair/internal/workspace"
)

const listLimit = 100

type ListDirectoryInput struct {
	// Path is a directory relative to the workspace root. Empty lists the
	// root itself.
	Path string `json:"path,omitempty" jsonschema:"description=The directory to list, relative to the workspace root. Omit for the root itself."`
	// Ignore adds glob-like patterns to skip on top of the workspace defaults.
	Ignore []string `json:"ignore,omitempty" jsonschema:"description=Additional patterns to ignore"`
}

type ListDirectoryOutput struct {
	Title    string            `json:"title"`
	Output   string            `json:"output"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ListDirectory produces a textual tree of the files under a directory,
// honoring the workspace ignore patterns and capped at listLimit entries.
func ListDirectory(ctx context.Context, in *ListDirectoryInput) (*ListDirectoryOutput, error) {
	session, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}

	req := "."
	if in != nil && strings.TrimSpace(in.Path) != "" {
		req = strings.TrimSpace(in.Path)
	}

	ignores := append([]string{}, session.ignores...)
	if in != nil {
		ignores = append(ignores, in.Ignore...)
	}

	files, truncated, err := workspace.Walk(session.root, req, ignores, listLimit)
	if err != nil {
		events.Emit(ctx, events.TopicAgent, events.NewWarn(fmt.Sprintf("ListDirectory: %v", err)))
		return &ListDirectoryOutput{
			Title:  req,
			Output: fmt.Sprintf("Format error: %v", err),
			Metadata: map[string]string{
				"error": "format_error",
			},
		}, nil
	}

	title := req
	if req == "." {
		title = session.root.Rel(session.root.Base())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/\n", strings.TrimSuffix(title, "/"))
	buildDirTree(files).render(&b, 1)
	if truncated {
		fmt.Fprintf(&b, "\n(Listing capped at %d files. Use a more specific path.)", listLimit)
	}

	events.Emit(ctx, events.TopicAgent, events.NewToolEvent(events.EventInfo, fmt.Sprintf("Listed %d file(s) under '%s'", len(files), req), "list_directory", req))

	return &ListDirectoryOutput{
		Title:  title,
		Output: b.String(),
		Metadata: map[string]string{
			"files":     fmt.Sprintf("%d", len(files)),
			"truncated": fmt.Sprintf("%v", truncated),
		},
	}, nil
}

// dirNode is one level of the listing: subdirectories render before files,
// both in name order.
type dirNode struct {
	dirs  map[string]*dirNode
	files []string
}

func newDirNode() *dirNode {
	return &dirNode{dirs: make(map[string]*dirNode)}
}

// buildDirTree folds slash-relative file paths into nested dirNodes.
func buildDirTree(files []string) *dirNode {
	root := newDirNode()
	for _, f := range files {
		node := root
		segments := strings.Split(f, "/")
		for _, seg := range segments[:len(segments)-1] {
			child, ok := node.dirs[seg]
			if !ok {
				child = newDirNode()
				node.dirs[seg] = child
			}
			node = child
		}
		node.files = append(node.files, segments[len(segments)-1])
	}
	return root
}

func (n *dirNode) render(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)

	names := make([]string, 0, len(n.dirs))
	for name := range n.dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(indent)
		b.WriteString(name)
		b.WriteString("/\n")
		n.dirs[name].render(b, depth+1)
	}

	sort.Strings(n.files)
	for _, f := range n.files {
		b.WriteString(indent)
		b.WriteString(f)
		b.WriteString("\n")
	}
}
