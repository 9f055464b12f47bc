package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codepair/internal/models"
	"codepair/internal/repositories"
)

type SettingsService interface {
	Get() (*models.AppSettings, error)
	UpdateTheme(theme string) (*models.AppSettings, error)
	SetActiveModel(provider, modelKey string) (*models.AppSettings, error)
	SetGeneration(generation string) (*models.AppSettings, error)
	SetAgentAddr(addr string) (*models.AppSettings, error)
	Startup(ctx context.Context)
}

type settingsService struct {
	settings repositories.AppSettingsRepository
	bootCtx  context.Context
}

func (s *settingsService) Startup(ctx context.Context) {
	s.bootCtx = ctx
}

// startupCtx bounds settings reads and writes by the process lifetime.
func (s *settingsService) startupCtx() context.Context {
	if s.bootCtx != nil {
		return s.bootCtx
	}
	return context.Background()
}

func NewSettingsService(settings repositories.AppSettingsRepository) SettingsService {
	return &settingsService{settings: settings}
}

func (s *settingsService) Get() (*models.AppSettings, error) {
	return s.settings.Get(s.startupCtx())
}

func (s *settingsService) UpdateTheme(theme string) (*models.AppSettings, error) {
	if theme == "" {
		return nil, errors.New("theme is required")
	}
	switch theme {
	case "light", "dark", "system":
	default:
		return nil, fmt.Errorf("unknown theme %q", theme)
	}
	return s.mutate(func(current *models.AppSettings) {
		current.Theme = theme
	})
}

func (s *settingsService) SetActiveModel(provider, modelKey string) (*models.AppSettings, error) {
	if provider == "" {
		return nil, errors.New("provider is required")
	}
	return s.mutate(func(current *models.AppSettings) {
		current.ActiveProvider = provider
		current.ActiveModelKey = modelKey
	})
}

func (s *settingsService) SetGeneration(generation string) (*models.AppSettings, error) {
	if generation != "flat" && generation != "rich" {
		return nil, fmt.Errorf("unknown generation %q", generation)
	}
	return s.mutate(func(current *models.AppSettings) {
		current.Generation = generation
	})
}

func (s *settingsService) SetAgentAddr(addr string) (*models.AppSettings, error) {
	return s.mutate(func(current *models.AppSettings) {
		current.AgentAddr = addr
	})
}

func (s *settingsService) mutate(apply func(*models.AppSettings)) (*models.AppSettings, error) {
	current, err := s.settings.Get(s.startupCtx())
	if err != nil {
		return nil, err
	}

	apply(current)
	current.UpdatedAt = time.Now()

	if err := s.settings.Update(s.startupCtx(), current); err != nil {
		return nil, err
	}
	return current, nil
}
