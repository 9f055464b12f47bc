package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"codepair/internal/models"
	"codepair/internal/transcript"
)

// renderTranscript renders the stored history of this conversation followed
// by the live bubbles of the current run.
func (m *Shell) renderTranscript() string {
	var sections []string

	for _, e := range m.prior {
		sections = append(sections, m.renderStored(e))
	}
	for _, b := range m.session.Accumulator().Bubbles() {
		sections = append(sections, m.renderBubble(b))
	}

	if len(sections) == 0 {
		return mutedStyle.Render("No messages yet. Describe a change to get started.")
	}
	return strings.Join(sections, "\n\n")
}

// renderStored renders one persisted entry from an earlier run, dimmed so
// live output stands out.
func (m *Shell) renderStored(e *models.TranscriptEntry) string {
	if e.Role == string(transcript.RoleUser) {
		return mutedStyle.Render("> " + e.Content)
	}
	body := renderMarkdown(e.Content, m.md)
	if tag := intentTag(e.Intent); tag != "" {
		body = mutedStyle.Render(tag) + "\n" + body
	}
	return mutedStyle.Render(body)
}

func (m *Shell) renderBubble(b transcript.Bubble) string {
	if b.Role == transcript.RoleUser {
		return userStyle.Render("> ") + b.Text
	}

	var parts []string
	if tag := intentTag(b.Intent); tag != "" {
		parts = append(parts, mutedStyle.Render(tag))
	}

	if b.IsStreaming {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	} else if b.Text != "" {
		parts = append(parts, renderMarkdown(b.Text, m.md))
	}

	if len(b.Changes) > 0 {
		var sb strings.Builder
		for i, c := range b.Changes {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("  - " + c)
		}
		parts = append(parts, mutedStyle.Render(sb.String()))
	}

	if b.Code != "" {
		parts = append(parts, renderMarkdown("```\n"+strings.TrimRight(b.Code, "\n")+"\n```", m.md))
	}

	if len(parts) == 0 {
		return m.spin.View() + mutedStyle.Render(" thinking")
	}
	return strings.Join(parts, "\n")
}

func intentTag(intent string) string {
	switch intent {
	case "", "chat":
		return ""
	default:
		return "[" + intent + "]"
	}
}

func renderMarkdown(text string, r *glamour.TermRenderer) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(strings.TrimPrefix(out, "\n"), "\n")
}
