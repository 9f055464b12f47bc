package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"codepair/internal/assets"
	"codepair/internal/models"
	"codepair/internal/repositories"
)

type ModelConfigService interface {
	Startup(ctx context.Context) error
	ListModelGroups() ([]models.LLMModelGroup, error)
	SetModelEnabled(modelKey string, enabled bool) (*models.LLMModel, error)
	SetProviderEnabled(provider string, enabled bool) ([]models.LLMModel, error)
	GetModel(modelKey string) (*models.LLMModel, error)
	DefaultModelForProvider(provider string) (*models.LLMModel, error)
}

type modelConfigService struct {
	store   repositories.ModelSettingRepository
	bootCtx context.Context

	mu      sync.RWMutex
	order   []string          // provider IDs in catalog order
	names   map[string]string // provider ID -> display name
	catalog map[string]models.LLMModel
	enabled map[string]bool // model key -> persisted enablement
}

func NewModelConfigService(repo repositories.ModelSettingRepository) ModelConfigService {
	return &modelConfigService{
		store:   repo,
		names:   make(map[string]string),
		catalog: make(map[string]models.LLMModel),
		enabled: make(map[string]bool),
	}
}

// Startup parses the embedded catalog and overlays persisted enablement.
// Models missing a settings row are seeded with their catalog default.
func (s *modelConfigService) Startup(ctx context.Context) error {
	s.bootCtx = ctx

	var groups []models.LLMModelGroup
	if err := json.Unmarshal(assets.ModelCatalog, &groups); err != nil {
		return fmt.Errorf("decode model catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]string, 0, len(groups))
	for _, g := range groups {
		pid := strings.TrimSpace(g.ProviderID)
		if pid == "" {
			continue
		}
		s.names[pid] = strings.TrimSpace(g.ProviderName)
		s.order = append(s.order, pid)
		for _, m := range g.Models {
			key := strings.TrimSpace(m.Key)
			if key == "" {
				key = pid + "|" + strings.TrimSpace(m.APIName)
			}
			m.Key = key
			m.ProviderID = pid
			if m.ProviderName == "" {
				m.ProviderName = s.names[pid]
			}
			s.catalog[key] = m
		}
	}

	existing, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("read stored model settings: %w", err)
	}
	for _, row := range existing {
		s.enabled[row.ModelKey] = row.Enabled
	}
	for key, def := range s.catalog {
		if _, seen := s.enabled[key]; seen {
			continue
		}
		if _, err := s.store.Upsert(ctx, key, def.ProviderID, def.Enabled); err != nil {
			return fmt.Errorf("seed settings row for %s: %w", key, err)
		}
		s.enabled[key] = def.Enabled
	}

	return nil
}

func (s *modelConfigService) ListModelGroups() ([]models.LLMModelGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]models.LLMModelGroup, 0, len(s.order))
	for _, pid := range s.order {
		groups = append(groups, models.LLMModelGroup{
			ProviderID:   pid,
			ProviderName: s.providerName(pid),
			Models:       s.providerModels(pid),
		})
	}
	return groups, nil
}

func (s *modelConfigService) SetModelEnabled(modelKey string, enabled bool) (*models.LLMModel, error) {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return nil, errors.New("model key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.catalog[modelKey]
	if !ok {
		return nil, fmt.Errorf("model %s not found", modelKey)
	}

	if _, err := s.store.Upsert(s.startupCtx(), modelKey, entry.ProviderID, enabled); err != nil {
		return nil, err
	}
	s.enabled[modelKey] = enabled
	model := s.withSetting(entry)
	return &model, nil
}

func (s *modelConfigService) SetProviderEnabled(provider string, enabled bool) ([]models.LLMModel, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, errors.New("provider is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetProviderEnabled(s.startupCtx(), provider, enabled); err != nil {
		return nil, err
	}
	for key, entry := range s.catalog {
		if entry.ProviderID == provider {
			s.enabled[key] = enabled
		}
	}
	return s.providerModels(provider), nil
}

func (s *modelConfigService) GetModel(modelKey string) (*models.LLMModel, error) {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return nil, errors.New("model key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.catalog[modelKey]
	if !ok {
		return nil, fmt.Errorf("model %s not found", modelKey)
	}
	model := s.withSetting(entry)
	return &model, nil
}

// DefaultModelForProvider picks the first enabled catalog entry for the
// provider, by display name, for sessions that name a provider but no model.
func (s *modelConfigService) DefaultModelForProvider(provider string) (*models.LLMModel, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, errors.New("provider is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, candidate := range s.providerModels(provider) {
		if candidate.Enabled {
			model := candidate
			return &model, nil
		}
	}
	return nil, fmt.Errorf("no enabled model for provider %s", provider)
}

// providerModels returns the provider's catalog entries with enablement
// applied, ordered by display name. Callers must hold at least a read lock.
func (s *modelConfigService) providerModels(provider string) []models.LLMModel {
	var list []models.LLMModel
	for _, entry := range s.catalog {
		if entry.ProviderID == provider {
			list = append(list, s.withSetting(entry))
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].DisplayName) < strings.ToLower(list[j].DisplayName)
	})
	return list
}

func (s *modelConfigService) providerName(pid string) string {
	if name := s.names[pid]; strings.TrimSpace(name) != "" {
		return name
	}
	return pid
}

func (s *modelConfigService) withSetting(m models.LLMModel) models.LLMModel {
	if enabled, ok := s.enabled[m.Key]; ok {
		m.Enabled = enabled
	}
	return m
}

func (s *modelConfigService) startupCtx() context.Context {
	if s.bootCtx != nil {
		return s.bootCtx
	}
	return context.Background()
}
