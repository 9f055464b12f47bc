package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codepair/internal/models"
)

var (
	errModelKeyRequired = errors.New("model key is required")
	errProviderRequired = errors.New("provider is required")
)

// ModelSettingRepository persists per-model enablement rows keyed by the
// catalog model key.
type ModelSettingRepository interface {
	List(ctx context.Context) ([]models.ModelSetting, error)
	Upsert(ctx context.Context, modelKey, provider string, enabled bool) (*models.ModelSetting, error)
	SetProviderEnabled(ctx context.Context, provider string, enabled bool) error
}

type modelSettingRepository struct {
	db *gorm.DB
}

func NewModelSettingRepository(db *gorm.DB) ModelSettingRepository {
	return &modelSettingRepository{db: db}
}

func (r *modelSettingRepository) List(ctx context.Context) ([]models.ModelSetting, error) {
	var rows []models.ModelSetting
	err := r.db.WithContext(ctx).Order("provider, model_key").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert inserts the row or, when the model key already exists, flips its
// enabled flag and bumps updated_at.
func (r *modelSettingRepository) Upsert(ctx context.Context, modelKey, provider string, enabled bool) (*models.ModelSetting, error) {
	if modelKey == "" {
		return nil, errModelKeyRequired
	}
	if provider == "" {
		return nil, errProviderRequired
	}
	onDup := clause.OnConflict{
		Columns: []clause.Column{{Name: "model_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"enabled":    enabled,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}
	row := models.ModelSetting{ModelKey: modelKey, Provider: provider, Enabled: enabled}
	if err := r.db.WithContext(ctx).Clauses(onDup).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *modelSettingRepository) SetProviderEnabled(ctx context.Context, provider string, enabled bool) error {
	if provider == "" {
		return errProviderRequired
	}
	q := r.db.WithContext(ctx).Model(&models.ModelSetting{}).Where("provider = ?", provider)
	return q.Update("enabled", enabled).Error
}
