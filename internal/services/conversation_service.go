package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codepair/internal/models"
	"codepair/internal/repositories"
	"codepair/internal/review"
)

// DefaultConversationTitle names the thread a workspace opens into when the
// user never picked one explicitly.
const DefaultConversationTitle = "default"

type ConversationService interface {
	Startup(ctx context.Context)
	Ensure(ctx context.Context, workspaceID uint, title, provider, modelKey, generation string) (*models.Conversation, error)
	ListByWorkspace(ctx context.Context, workspaceID uint) ([]models.Conversation, error)
	SaveMessages(ctx context.Context, conversationID uint, messagesJSON string) error
	AppendEntry(ctx context.Context, entry *models.TranscriptEntry) error
	Transcript(ctx context.Context, conversationID uint) ([]*models.TranscriptEntry, error)
	RecordApplied(ctx context.Context, conversationID uint, e review.PendingEdit) error
	AppliedEdits(ctx context.Context, conversationID uint) ([]models.AppliedEdit, error)
	DeleteThread(ctx context.Context, workspaceID uint, title string) error
	ClearHistory(ctx context.Context) error
}

type conversationService struct {
	conversations repositories.ConversationRepository
	transcripts   repositories.TranscriptRepository
	appliedEdits  repositories.AppliedEditRepository
}

func NewConversationService(
	conversations repositories.ConversationRepository,
	transcripts repositories.TranscriptRepository,
	appliedEdits repositories.AppliedEditRepository,
) ConversationService {
	return &conversationService{
		conversations: conversations,
		transcripts:   transcripts,
		appliedEdits:  appliedEdits,
	}
}

// Startup is a lifecycle no-op; every operation threads its own context.
func (s *conversationService) Startup(ctx context.Context) {}

// Ensure returns the conversation for (workspace, title), creating or
// refreshing it with the session's provider and model.
func (s *conversationService) Ensure(ctx context.Context, workspaceID uint, title, provider, modelKey, generation string) (*models.Conversation, error) {
	if workspaceID == 0 {
		return nil, errors.New("workspace id is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultConversationTitle
	}

	existing, err := s.conversations.GetByWorkspaceAndTitle(ctx, workspaceID, title)
	if err != nil {
		return nil, err
	}
	messagesJSON := ""
	if existing != nil {
		messagesJSON = existing.MessagesJSON
	}

	conv, err := s.conversations.Upsert(ctx, workspaceID, title, provider, modelKey, generation, messagesJSON)
	if err != nil {
		return nil, err
	}
	if conv.ID == 0 {
		// The upsert hit the conflict path; re-read for the row id.
		stored, err := s.conversations.GetByWorkspaceAndTitle(ctx, workspaceID, title)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			conv = stored
		}
	}
	return conv, nil
}

func (s *conversationService) ListByWorkspace(ctx context.Context, workspaceID uint) ([]models.Conversation, error) {
	return s.conversations.ListByWorkspace(ctx, workspaceID)
}

func (s *conversationService) SaveMessages(ctx context.Context, conversationID uint, messagesJSON string) error {
	if conversationID == 0 {
		return errors.New("conversation id is required")
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %d not found", conversationID)
	}
	_, err = s.conversations.Upsert(ctx, conv.WorkspaceID, conv.Title, conv.Provider, conv.ModelKey, conv.Generation, messagesJSON)
	return err
}

func (s *conversationService) AppendEntry(ctx context.Context, entry *models.TranscriptEntry) error {
	if entry == nil {
		return errors.New("entry is required")
	}
	if entry.ConversationID == 0 {
		return errors.New("conversation id is required")
	}
	return s.transcripts.Append(ctx, entry)
}

func (s *conversationService) Transcript(ctx context.Context, conversationID uint) ([]*models.TranscriptEntry, error) {
	return s.transcripts.ListByConversation(ctx, conversationID)
}

// RecordApplied persists one accepted edit, mirroring the review record at
// the moment of acceptance.
func (s *conversationService) RecordApplied(ctx context.Context, conversationID uint, e review.PendingEdit) error {
	diff := e.Diff()
	return s.appliedEdits.Create(ctx, &models.AppliedEdit{
		ConversationID: conversationID,
		EditID:         e.ID,
		FilePath:       e.FilePath,
		Action:         string(e.Action),
		Explanation:    e.Explanation,
		LinesAdded:     diff.Added,
		LinesRemoved:   diff.Removed,
	})
}

func (s *conversationService) AppliedEdits(ctx context.Context, conversationID uint) ([]models.AppliedEdit, error) {
	if conversationID == 0 {
		return s.appliedEdits.List(ctx, 0, 0)
	}
	return s.appliedEdits.ListByConversation(ctx, conversationID)
}

// DeleteThread removes one conversation and everything recorded under it:
// transcript entries first, then applied-edit records, then the row itself.
func (s *conversationService) DeleteThread(ctx context.Context, workspaceID uint, title string) error {
	if workspaceID == 0 {
		return errors.New("workspace id is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultConversationTitle
	}

	conv, err := s.conversations.GetByWorkspaceAndTitle(ctx, workspaceID, title)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %q not found", title)
	}

	if err := s.transcripts.DeleteByConversation(ctx, conv.ID); err != nil {
		return err
	}
	if err := s.appliedEdits.DeleteByConversation(ctx, conv.ID); err != nil {
		return err
	}
	return s.conversations.DeleteByWorkspaceAndTitle(ctx, workspaceID, title)
}

// ClearHistory wipes transcripts, applied-edit records, and conversations.
// Workspaces and settings survive.
func (s *conversationService) ClearHistory(ctx context.Context) error {
	if err := s.transcripts.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.appliedEdits.DeleteAll(ctx); err != nil {
		return err
	}
	return s.conversations.DeleteAll(ctx)
}
