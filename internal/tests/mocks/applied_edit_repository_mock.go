package mocks

import (
	"context"

	"codepair/internal/models"
)

type AppliedEditRepositoryMock struct {
	CreateFunc               func(ctx context.Context, e *models.AppliedEdit) error
	ListByConversationFunc   func(ctx context.Context, conversationID uint) ([]models.AppliedEdit, error)
	ListFunc                 func(ctx context.Context, limit, offset int) ([]models.AppliedEdit, error)
	DeleteByConversationFunc func(ctx context.Context, conversationID uint) error
	DeleteAllFunc            func(ctx context.Context) error
}

func (m *AppliedEditRepositoryMock) Create(ctx context.Context, e *models.AppliedEdit) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, e)
	}
	return nil
}

func (m *AppliedEditRepositoryMock) ListByConversation(ctx context.Context, conversationID uint) ([]models.AppliedEdit, error) {
	if m.ListByConversationFunc != nil {
		return m.ListByConversationFunc(ctx, conversationID)
	}
	return nil, nil
}

func (m *AppliedEditRepositoryMock) List(ctx context.Context, limit, offset int) ([]models.AppliedEdit, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *AppliedEditRepositoryMock) DeleteByConversation(ctx context.Context, conversationID uint) error {
	if m.DeleteByConversationFunc != nil {
		return m.DeleteByConversationFunc(ctx, conversationID)
	}
	return nil
}

func (m *AppliedEditRepositoryMock) DeleteAll(ctx context.Context) error {
	if m.DeleteAllFunc != nil {
		return m.DeleteAllFunc(ctx)
	}
	return nil
}
