package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codepair/internal/models"
)

type ConversationRepository interface {
	ListByWorkspace(ctx context.Context, workspaceID uint) ([]models.Conversation, error)
	GetByWorkspaceAndTitle(ctx context.Context, workspaceID uint, title string) (*models.Conversation, error)
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	Upsert(ctx context.Context, workspaceID uint, title, provider, modelKey, generation, messagesJSON string) (*models.Conversation, error)
	DeleteByWorkspaceAndTitle(ctx context.Context, workspaceID uint, title string) error
	DeleteAll(ctx context.Context) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) ListByWorkspace(ctx context.Context, workspaceID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	res := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Order("updated_at desc").Find(&conversations)
	if res.Error != nil {
		return nil, res.Error
	}
	return conversations, nil
}

func (r *conversationRepository) GetByWorkspaceAndTitle(ctx context.Context, workspaceID uint, title string) (*models.Conversation, error) {
	var conv models.Conversation
	res := r.db.WithContext(ctx).Where("workspace_id = ? AND title = ?", workspaceID, title).Take(&conv)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &conv, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) Upsert(ctx context.Context, workspaceID uint, title, provider, modelKey, generation, messagesJSON string) (*models.Conversation, error) {
	if workspaceID == 0 {
		return nil, fmt.Errorf("workspace id is required")
	}
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if provider == "" {
		return nil, errProviderRequired
	}
	conv := models.Conversation{
		WorkspaceID:  workspaceID,
		Title:        title,
		Provider:     provider,
		ModelKey:     modelKey,
		Generation:   generation,
		MessagesJSON: messagesJSON,
	}
	// A conflict on (workspace_id, title) updates the row in place, so
	// reopening a conversation keeps its id stable.
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "title"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider", "model_key", "generation", "messages_json", "updated_at"}),
	}).Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) DeleteByWorkspaceAndTitle(ctx context.Context, workspaceID uint, title string) error {
	return r.db.WithContext(ctx).Where("workspace_id = ? AND title = ?", workspaceID, title).Delete(&models.Conversation{}).Error
}

func (r *conversationRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Conversation{}).Error
}
