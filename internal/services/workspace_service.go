package services

import (
	"context"
	"errors"
	"path/filepath"

	"codepair/internal/models"
	"codepair/internal/repositories"
	"codepair/internal/workspace"
)

type WorkspaceService interface {
	Open(ctx context.Context, path string) (*models.Workspace, workspace.Root, error)
	Get(ctx context.Context, id uint) (*models.Workspace, error)
	List(ctx context.Context, limit, offset int) ([]models.Workspace, error)
	Reorder(ctx context.Context, updates []models.WorkspaceOrderUpdate) error
	Forget(ctx context.Context, id uint) error
}

type workspaceService struct {
	workspaces repositories.WorkspaceRepository
}

func NewWorkspaceService(workspaces repositories.WorkspaceRepository) WorkspaceService {
	return &workspaceService{workspaces: workspaces}
}

// Open canonicalizes the path, records (or refreshes) the workspace row, and
// returns the confinement root every file operation resolves against.
func (s *workspaceService) Open(ctx context.Context, path string) (*models.Workspace, workspace.Root, error) {
	if path == "" {
		return nil, workspace.Root{}, errors.New("workspace path is required")
	}

	root, err := workspace.NewRoot(path)
	if err != nil {
		return nil, workspace.Root{}, err
	}

	ws := &models.Workspace{
		Name:     filepath.Base(root.Base()),
		RootPath: root.Base(),
	}
	if err := s.workspaces.Upsert(ctx, ws); err != nil {
		return nil, workspace.Root{}, err
	}
	if ws.ID == 0 {
		// The upsert hit the conflict path; fetch the existing row.
		existing, err := s.workspaces.FindByRoot(ctx, root.Base())
		if err != nil {
			return nil, workspace.Root{}, err
		}
		if existing != nil {
			ws = existing
		}
	}
	return ws, root, nil
}

func (s *workspaceService) Get(ctx context.Context, id uint) (*models.Workspace, error) {
	return s.workspaces.FindByID(ctx, id)
}

func (s *workspaceService) List(ctx context.Context, limit, offset int) ([]models.Workspace, error) {
	return s.workspaces.List(ctx, limit, offset)
}

func (s *workspaceService) Reorder(ctx context.Context, updates []models.WorkspaceOrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return s.workspaces.UpdateOrder(ctx, updates)
}

func (s *workspaceService) Forget(ctx context.Context, id uint) error {
	if id == 0 {
		return errors.New("workspace id is required")
	}
	return s.workspaces.Delete(ctx, id)
}
