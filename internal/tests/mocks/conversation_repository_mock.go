package mocks

import (
	"context"

	"codepair/internal/models"
)

type ConversationRepositoryMock struct {
	ListByWorkspaceFunc           func(ctx context.Context, workspaceID uint) ([]models.Conversation, error)
	GetByWorkspaceAndTitleFunc    func(ctx context.Context, workspaceID uint, title string) (*models.Conversation, error)
	GetByIDFunc                   func(ctx context.Context, id uint) (*models.Conversation, error)
	UpsertFunc                    func(ctx context.Context, workspaceID uint, title, provider, modelKey, generation, messagesJSON string) (*models.Conversation, error)
	DeleteByWorkspaceAndTitleFunc func(ctx context.Context, workspaceID uint, title string) error
	DeleteAllFunc                 func(ctx context.Context) error
}

func (m *ConversationRepositoryMock) ListByWorkspace(ctx context.Context, workspaceID uint) ([]models.Conversation, error) {
	if m.ListByWorkspaceFunc != nil {
		return m.ListByWorkspaceFunc(ctx, workspaceID)
	}
	return nil, nil
}

func (m *ConversationRepositoryMock) GetByWorkspaceAndTitle(ctx context.Context, workspaceID uint, title string) (*models.Conversation, error) {
	if m.GetByWorkspaceAndTitleFunc != nil {
		return m.GetByWorkspaceAndTitleFunc(ctx, workspaceID, title)
	}
	return nil, nil
}

func (m *ConversationRepositoryMock) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *ConversationRepositoryMock) Upsert(ctx context.Context, workspaceID uint, title, provider, modelKey, generation, messagesJSON string) (*models.Conversation, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, workspaceID, title, provider, modelKey, generation, messagesJSON)
	}
	return &models.Conversation{
		ID:           1,
		WorkspaceID:  workspaceID,
		Title:        title,
		Provider:     provider,
		ModelKey:     modelKey,
		Generation:   generation,
		MessagesJSON: messagesJSON,
	}, nil
}

func (m *ConversationRepositoryMock) DeleteByWorkspaceAndTitle(ctx context.Context, workspaceID uint, title string) error {
	if m.DeleteByWorkspaceAndTitleFunc != nil {
		return m.DeleteByWorkspaceAndTitleFunc(ctx, workspaceID, title)
	}
	return nil
}

func (m *ConversationRepositoryMock) DeleteAll(ctx context.Context) error {
	if m.DeleteAllFunc != nil {
		return m.DeleteAllFunc(ctx)
	}
	return nil
}
