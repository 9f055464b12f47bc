package mocks

import (
	"context"

	"codepair/internal/models"
)

type TranscriptRepositoryMock struct {
	AppendFunc               func(ctx context.Context, entry *models.TranscriptEntry) error
	ListByConversationFunc   func(ctx context.Context, conversationID uint) ([]*models.TranscriptEntry, error)
	DeleteByConversationFunc func(ctx context.Context, conversationID uint) error
	DeleteAllFunc            func(ctx context.Context) error
}

func (m *TranscriptRepositoryMock) Append(ctx context.Context, entry *models.TranscriptEntry) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, entry)
	}
	return nil
}

func (m *TranscriptRepositoryMock) ListByConversation(ctx context.Context, conversationID uint) ([]*models.TranscriptEntry, error) {
	if m.ListByConversationFunc != nil {
		return m.ListByConversationFunc(ctx, conversationID)
	}
	return nil, nil
}

func (m *TranscriptRepositoryMock) DeleteByConversation(ctx context.Context, conversationID uint) error {
	if m.DeleteByConversationFunc != nil {
		return m.DeleteByConversationFunc(ctx, conversationID)
	}
	return nil
}

func (m *TranscriptRepositoryMock) DeleteAll(ctx context.Context) error {
	if m.DeleteAllFunc != nil {
		return m.DeleteAllFunc(ctx)
	}
	return nil
}
