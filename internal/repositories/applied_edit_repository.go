package repositories

import (
	"context"

	"gorm.io/gorm"

	"codepair/internal/models"
)

type AppliedEditRepository interface {
	Create(ctx context.Context, e *models.AppliedEdit) error
	ListByConversation(ctx context.Context, conversationID uint) ([]models.AppliedEdit, error)
	List(ctx context.Context, limit, offset int) ([]models.AppliedEdit, error)
	DeleteByConversation(ctx context.Context, conversationID uint) error
	DeleteAll(ctx context.Context) error
}

type appliedEditRepository struct {
	db *gorm.DB
}

func NewAppliedEditRepository(db *gorm.DB) AppliedEditRepository {
	return &appliedEditRepository{db: db}
}

func (r *appliedEditRepository) Create(ctx context.Context, e *models.AppliedEdit) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *appliedEditRepository) ListByConversation(ctx context.Context, conversationID uint) ([]models.AppliedEdit, error) {
	var edits []models.AppliedEdit
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Find(&edits).Error
	if err != nil {
		return nil, err
	}
	return edits, nil
}

func (r *appliedEditRepository) List(ctx context.Context, limit, offset int) ([]models.AppliedEdit, error) {
	var edits []models.AppliedEdit
	q := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&edits).Error; err != nil {
		return nil, err
	}
	return edits, nil
}

func (r *appliedEditRepository) DeleteByConversation(ctx context.Context, conversationID uint) error {
	return r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&models.AppliedEdit{}).Error
}

func (r *appliedEditRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.AppliedEdit{}).Error
}
