package mocks

import (
	"context"

	"codepair/internal/models"
)

type WorkspaceRepositoryMock struct {
	UpsertFunc      func(ctx context.Context, ws *models.Workspace) error
	FindByIDFunc    func(ctx context.Context, id uint) (*models.Workspace, error)
	FindByRootFunc  func(ctx context.Context, rootPath string) (*models.Workspace, error)
	ListFunc        func(ctx context.Context, limit, offset int) ([]models.Workspace, error)
	UpdateOrderFunc func(ctx context.Context, updates []models.WorkspaceOrderUpdate) error
	DeleteFunc      func(ctx context.Context, id uint) error
}

func (m *WorkspaceRepositoryMock) Upsert(ctx context.Context, ws *models.Workspace) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, ws)
	}
	if ws.ID == 0 {
		ws.ID = 1
	}
	return nil
}

func (m *WorkspaceRepositoryMock) FindByID(ctx context.Context, id uint) (*models.Workspace, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return &models.Workspace{ID: id}, nil
}

func (m *WorkspaceRepositoryMock) FindByRoot(ctx context.Context, rootPath string) (*models.Workspace, error) {
	if m.FindByRootFunc != nil {
		return m.FindByRootFunc(ctx, rootPath)
	}
	return nil, nil
}

func (m *WorkspaceRepositoryMock) List(ctx context.Context, limit, offset int) ([]models.Workspace, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *WorkspaceRepositoryMock) UpdateOrder(ctx context.Context, updates []models.WorkspaceOrderUpdate) error {
	if m.UpdateOrderFunc != nil {
		return m.UpdateOrderFunc(ctx, updates)
	}
	return nil
}

func (m *WorkspaceRepositoryMock) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}
