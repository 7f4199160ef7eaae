package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/tenant"
)

// SettingsService manages the assistant settings of the tenant in scope
type SettingsService struct {
	repo AISettingsRepositoryInterface
}

func NewSettingsService(repo AISettingsRepositoryInterface) *SettingsService {
	return &SettingsService{repo: repo}
}

type UpdateSettingsInput struct {
	Tone          *string
	Language      *string
	DetailLevel   *string
	SecurityRules *[]string
}

// Get returns the stored settings with defaults filled in.
func (s *SettingsService) Get(ctx context.Context) (*domain.AISettings, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrSettingsNotFound) {
			return domain.DefaultAISettings(tenantID), nil
		}
		return nil, err
	}
	return settings.WithDefaults(), nil
}

// Update merges input into the stored settings.
func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput) (*domain.AISettings, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, domain.ErrSettingsNotFound) {
			return nil, err
		}
		settings = &domain.AISettings{TenantID: tenantID}
	}

	if input.Tone != nil {
		settings.Tone = strings.TrimSpace(*input.Tone)
	}
	if input.Language != nil {
		settings.Language = strings.TrimSpace(*input.Language)
	}
	if input.DetailLevel != nil {
		settings.DetailLevel = strings.TrimSpace(*input.DetailLevel)
	}
	if input.SecurityRules != nil {
		rules := make([]string, 0, len(*input.SecurityRules))
		for _, r := range *input.SecurityRules {
			if r = strings.TrimSpace(r); r != "" {
				rules = append(rules, r)
			}
		}
		settings.SecurityRules = rules
	}
	settings.UpdatedAt = utcNow()

	if err := domain.ValidateAISettings(settings); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, err
	}
	return settings.WithDefaults(), nil
}
