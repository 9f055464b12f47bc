package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codepair/internal/models"
)

type WorkspaceRepository interface {
	Upsert(ctx context.Context, ws *models.Workspace) error
	FindByID(ctx context.Context, id uint) (*models.Workspace, error)
	FindByRoot(ctx context.Context, rootPath string) (*models.Workspace, error)
	List(ctx context.Context, limit, offset int) ([]models.Workspace, error)
	UpdateOrder(ctx context.Context, updates []models.WorkspaceOrderUpdate) error
	Delete(ctx context.Context, id uint) error
}

type workspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

// Upsert keys on the root path so reopening a project refreshes the existing
// row instead of duplicating it.
func (r *workspaceRepository) Upsert(ctx context.Context, ws *models.Workspace) error {
	if ws.RootPath == "" {
		return fmt.Errorf("root path is required")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "root_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(ws).Error
}

func (r *workspaceRepository) FindByID(ctx context.Context, id uint) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.WithContext(ctx).First(&ws, id).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *workspaceRepository) FindByRoot(ctx context.Context, rootPath string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.WithContext(ctx).Where("root_path = ?", rootPath).Take(&ws).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ws, nil
}

func (r *workspaceRepository) List(ctx context.Context, limit, offset int) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	q := r.db.WithContext(ctx).Order("`index`, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Find(&workspaces).Error
	return workspaces, err
}

func (r *workspaceRepository) UpdateOrder(ctx context.Context, updates []models.WorkspaceOrderUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Model(&models.Workspace{}).Where("id = ?", u.ID).Update("index", u.Index).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *workspaceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Workspace{}, id).Error
}
