package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"codepair/internal/models"
)

// The app_settings table holds exactly one row; every read and write
// targets it by this fixed id.
const appSettingsRowID = 1

type AppSettingsRepository interface {
	Get(ctx context.Context) (*models.AppSettings, error)
	Update(ctx context.Context, settings *models.AppSettings) error
}

type appSettingsRepository struct {
	db *gorm.DB
}

func NewAppSettingsRepository(db *gorm.DB) AppSettingsRepository {
	return &appSettingsRepository{db: db}
}

// defaultAppSettings is what a fresh install sees before the first save.
func defaultAppSettings() *models.AppSettings {
	return &models.AppSettings{
		ID:             appSettingsRowID,
		Version:        1,
		Theme:          "system",
		ActiveProvider: "anthropic",
		Generation:     "rich",
	}
}

func (r *appSettingsRepository) Get(ctx context.Context) (*models.AppSettings, error) {
	var row models.AppSettings
	err := r.db.WithContext(ctx).Take(&row, appSettingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultAppSettings(), nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *appSettingsRepository) Update(ctx context.Context, settings *models.AppSettings) error {
	settings.ID = appSettingsRowID
	return r.db.WithContext(ctx).Save(settings).Error
}
