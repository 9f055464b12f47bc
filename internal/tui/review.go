package tui

import (
	"fmt"
	"strings"

	"codepair/internal/review"
)

// renderReview renders the edit ledger: every proposal of the session with
// its review status, the selected one highlighted.
func (m *Shell) renderReview() string {
	state := m.session.Orchestrator().State()

	if len(state.Edits) == 0 {
		return mutedStyle.Render("No proposed edits. Ask for a change in the chat pane.")
	}

	var b strings.Builder
	if state.Err != "" {
		b.WriteString(errorStyle.Render(state.Err))
		b.WriteString("\n\n")
	}

	for i, e := range state.Edits {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderEditLine(e, i == m.reviewIndex))
	}

	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("a accept · r reject · A accept all · R reject all · c clear resolved"))
	return b.String()
}

func (m *Shell) renderEditLine(e review.PendingEdit, selected bool) string {
	diff := e.Diff()
	head := fmt.Sprintf("%s %s  %s  %s %s",
		statusIcon(e.Status),
		e.FilePath,
		string(e.Action),
		addedStyle.Render(fmt.Sprintf("+%d", diff.Added)),
		removedStyle.Render(fmt.Sprintf("-%d", diff.Removed)),
	)

	marker := "  "
	if selected {
		marker = selectedStyle.Render("> ")
		head = selectedStyle.Render(head)
	}

	line := marker + head
	if expl := firstLine(e.Explanation); expl != "" {
		line += "\n    " + mutedStyle.Render(expl)
	}
	return line
}

func statusIcon(s review.Status) string {
	switch s {
	case review.StatusAccepted:
		return successStyle.Render("[applied]")
	case review.StatusRejected:
		return errorStyle.Render("[rejected]")
	default:
		return warnStyle.Render("[pending]")
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}

func (m *Shell) clampReviewIndex() {
	n := len(m.session.Orchestrator().State().Edits)
	m.reviewIndex = clamp(m.reviewIndex, 0, maxIndex(n))
}

// markActive mirrors the selection into the ledger so other surfaces agree
// on which edit is in focus.
func (m *Shell) markActive(edits []review.PendingEdit) {
	if len(edits) == 0 {
		return
	}
	idx := clamp(m.reviewIndex, 0, len(edits)-1)
	m.session.Orchestrator().SetActiveEdit(edits[idx].ID)
}

func (m *Shell) selectedEdit(edits []review.PendingEdit) (string, bool) {
	if len(edits) == 0 {
		return "", false
	}
	idx := clamp(m.reviewIndex, 0, len(edits)-1)
	return edits[idx].ID, true
}

func batchNote(res review.BatchResult) string {
	if res.Failed == 0 {
		return fmt.Sprintf("Applied %d edits", res.Success)
	}
	return fmt.Sprintf("Applied %d edits, %d failed and remain pending", res.Success, res.Failed)
}

// pendingCount is used by the tab bar.
func (m *Shell) pendingCount() int {
	return m.session.Orchestrator().State().PendingCount()
}
