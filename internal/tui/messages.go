package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"codepair/internal/events"
	"codepair/internal/models"
	"codepair/internal/review"
	"codepair/internal/services"
)

// transcriptMsg signals that the accumulator changed and the chat pane
// should re-render from a fresh bubble snapshot.
type transcriptMsg struct{}

// engineEventMsg carries one backend event into the program loop.
type engineEventMsg struct {
	topic string
	event events.EngineEvent
}

// priorMsg delivers the persisted transcript of earlier runs.
type priorMsg struct {
	entries []*models.TranscriptEntry
	err     error
}

// sendFailedMsg reports a user message that never reached the agent.
type sendFailedMsg struct{ err error }

// reviewActedMsg reports the outcome of a ledger mutation.
type reviewActedMsg struct {
	note string
	err  error
}

// waitUpdate re-arms after every receipt; the accumulator coalesces bursts
// on its side of the channel.
func waitUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return transcriptMsg{}
	}
}

func waitEvent(ch <-chan engineEventMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func loadPrior(session *services.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		entries, err := session.PriorTranscript(ctx)
		return priorMsg{entries: entries, err: err}
	}
}

func sendMessage(session *services.Session, text string) tea.Cmd {
	return func() tea.Msg {
		if err := session.Send(text); err != nil {
			return sendFailedMsg{err: err}
		}
		return nil
	}
}

func acceptEdit(orch *review.Orchestrator, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := orch.AcceptEdit(ctx, id); err != nil {
			return reviewActedMsg{err: err}
		}
		return reviewActedMsg{note: "Edit applied"}
	}
}

func rejectEdit(orch *review.Orchestrator, id string) tea.Cmd {
	return func() tea.Msg {
		if err := orch.RejectEdit(id); err != nil {
			return reviewActedMsg{err: err}
		}
		return reviewActedMsg{note: "Edit rejected"}
	}
}

func acceptAll(orch *review.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res := orch.AcceptAll(ctx)
		note := batchNote(res)
		return reviewActedMsg{note: note}
	}
}

func rejectAll(orch *review.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		orch.RejectAll()
		return reviewActedMsg{note: "All pending edits rejected"}
	}
}

func clearCompleted(orch *review.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		orch.ClearCompleted()
		return reviewActedMsg{note: "Resolved edits cleared"}
	}
}
