package unit_tests

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codepair/internal/models"
	"codepair/internal/services"
	"codepair/internal/tests/mocks"
)

func TestWorkspaceService_Open_RequiresPath(t *testing.T) {
	service := services.NewWorkspaceService(&mocks.WorkspaceRepositoryMock{})

	_, _, err := service.Open(context.Background(), "")
	assert.EqualError(t, err, "workspace path is required")
}

func TestWorkspaceService_Open_RejectsMissingDirectory(t *testing.T) {
	service := services.NewWorkspaceService(&mocks.WorkspaceRepositoryMock{})

	_, _, err := service.Open(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWorkspaceService_Open_RecordsCanonicalRoot(t *testing.T) {
	dir := t.TempDir()
	var upserted *models.Workspace
	repo := &mocks.WorkspaceRepositoryMock{
		UpsertFunc: func(ctx context.Context, ws *models.Workspace) error {
			ws.ID = 2
			upserted = ws
			return nil
		},
	}
	service := services.NewWorkspaceService(repo)

	ws, root, err := service.Open(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, uint(2), ws.ID)
	assert.Equal(t, root.Base(), ws.RootPath)
	assert.Equal(t, filepath.Base(root.Base()), ws.Name)
	assert.Equal(t, upserted, ws)
}

func TestWorkspaceService_Open_FetchesExistingRowOnConflict(t *testing.T) {
	dir := t.TempDir()
	existing := &models.Workspace{ID: 8, Name: "kept", RootPath: dir}
	repo := &mocks.WorkspaceRepositoryMock{
		UpsertFunc: func(ctx context.Context, ws *models.Workspace) error {
			// Conflict path: gorm leaves the id unset.
			return nil
		},
		FindByRootFunc: func(ctx context.Context, rootPath string) (*models.Workspace, error) {
			return existing, nil
		},
	}
	service := services.NewWorkspaceService(repo)

	ws, _, err := service.Open(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, uint(8), ws.ID)
	assert.Equal(t, "kept", ws.Name)
}

func TestWorkspaceService_Reorder_SkipsEmptyBatch(t *testing.T) {
	called := false
	repo := &mocks.WorkspaceRepositoryMock{
		UpdateOrderFunc: func(ctx context.Context, updates []models.WorkspaceOrderUpdate) error {
			called = true
			return nil
		},
	}
	service := services.NewWorkspaceService(repo)

	err := service.Reorder(context.Background(), nil)
	assert.NoError(t, err)
	assert.False(t, called)

	err = service.Reorder(context.Background(), []models.WorkspaceOrderUpdate{{ID: 1, Index: 0}})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestWorkspaceService_Forget_RequiresID(t *testing.T) {
	service := services.NewWorkspaceService(&mocks.WorkspaceRepositoryMock{})

	err := service.Forget(context.Background(), 0)
	assert.EqualError(t, err, "workspace id is required")
}

func TestWorkspaceService_Forget_DeletesRow(t *testing.T) {
	var deleted uint
	repo := &mocks.WorkspaceRepositoryMock{
		DeleteFunc: func(ctx context.Context, id uint) error {
			deleted = id
			return nil
		},
	}
	service := services.NewWorkspaceService(repo)

	err := service.Forget(context.Background(), 6)
	assert.NoError(t, err)
	assert.Equal(t, uint(6), deleted)
}

func TestWorkspaceService_List_PropagatesRepositoryError(t *testing.T) {
	repo := &mocks.WorkspaceRepositoryMock{
		ListFunc: func(ctx context.Context, limit, offset int) ([]models.Workspace, error) {
			return nil, errors.New("database closed")
		},
	}
	service := services.NewWorkspaceService(repo)

	_, err := service.List(context.Background(), 10, 0)
	assert.EqualError(t, err, "database closed")
}
