package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"codepair/internal/models"
)

type TranscriptRepository interface {
	Append(ctx context.Context, entry *models.TranscriptEntry) error
	ListByConversation(ctx context.Context, conversationID uint) ([]*models.TranscriptEntry, error)
	DeleteByConversation(ctx context.Context, conversationID uint) error
	DeleteAll(ctx context.Context) error
}

type transcriptRepository struct {
	db *gorm.DB
}

func NewTranscriptRepository(db *gorm.DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

func (r *transcriptRepository) Append(ctx context.Context, entry *models.TranscriptEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("appending transcript entry: %w", err)
	}
	return nil
}

func (r *transcriptRepository) ListByConversation(ctx context.Context, conversationID uint) ([]*models.TranscriptEntry, error) {
	var list []*models.TranscriptEntry
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing transcript for conversation %d: %w", conversationID, err)
	}
	return list, nil
}

func (r *transcriptRepository) DeleteByConversation(ctx context.Context, conversationID uint) error {
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&models.TranscriptEntry{}).Error; err != nil {
		return fmt.Errorf("deleting transcript for conversation %d: %w", conversationID, err)
	}
	return nil
}

func (r *transcriptRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.TranscriptEntry{}).Error; err != nil {
		return fmt.Errorf("clearing transcript entries: %w", err)
	}
	return nil
}
