package tools

import "context"

// WorkspacePreview renders an initial listing of the workspace so the first
// turn of a session starts oriented. Returns "" when no session is bound or
// the listing fails; the turn proceeds without a preview.
func WorkspacePreview(ctx context.Context) string {
	out, err := ListDirectory(ctx, &ListDirectoryInput{})
	if err != nil || out == nil || out.Metadata["error"] != "" {
		return ""
	}
	return "Initial listing of the workspace (capped at 100 files):\n\n" + out.Output
}
