package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/google/uuid"
)


type TenantRepository interface {
	Create(ctx context.Context, t *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByName(ctx context.Context, name string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
}

type PlanRepository interface {
	Create(ctx context.Context, p *domain.Plan) error
	GetByName(ctx context.Context, name string) (*domain.Plan, error)
	List(ctx context.Context) ([]*domain.Plan, error)
	CreateSubscription(ctx context.Context, s *domain.Subscription) error
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// AuthService provisions tenants, plans and API keys and validates keys
type AuthService struct {
	tenantRepo TenantRepository
	planRepo   PlanRepository
	keyRepo    APIKeyRepository
	uuidGen    UUIDGenerator
}

func NewAuthService(tenantRepo TenantRepository, planRepo PlanRepository, keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		tenantRepo: tenantRepo,
		planRepo:   planRepo,
		keyRepo:    keyRepo,
		uuidGen:    uuidGen,
	}
}

type CreatePlanInput struct {
	Name              string
	MonthlyTokenLimit int64
	PriceCents        int64
	OverageAllowed    bool
}

func (s *AuthService) CreatePlan(ctx context.Context, input CreatePlanInput) (*domain.Plan, error) {
	plan := &domain.Plan{
		ID:                s.uuidGen.NewString(),
		Name:              strings.TrimSpace(input.Name),
		MonthlyTokenLimit: input.MonthlyTokenLimit,
		PriceCents:        input.PriceCents,
		OverageAllowed:    input.OverageAllowed,
		CreatedAt:         time.Now().UTC(),
	}

	if err := domain.ValidatePlan(plan); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *AuthService) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	return s.planRepo.List(ctx)
}

// CreateTenant creates a tenant and, when planName is set, subscribes it to
// that plan for the given number of months.
func (s *AuthService) CreateTenant(ctx context.Context, name, planName string, months int) (*domain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant name is required")
	}

	var plan *domain.Plan
	if planName != "" {
		p, err := s.planRepo.GetByName(ctx, planName)
		if err != nil {
			return nil, err
		}
		plan = p
	}

	t := domain.NewTenant(s.uuidGen.NewString(), name, time.Now().UTC())
	if err := domain.ValidateTenant(t); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	if plan != nil {
		if _, err := s.subscribe(ctx, t.ID, plan, months); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Subscribe starts a new active subscription of the tenant to planName.
func (s *AuthService) Subscribe(ctx context.Context, tenantID, planName string, months int) (*domain.Subscription, error) {
	if _, err := s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	plan, err := s.planRepo.GetByName(ctx, planName)
	if err != nil {
		return nil, err
	}
	return s.subscribe(ctx, tenantID, plan, months)
}

func (s *AuthService) subscribe(ctx context.Context, tenantID string, plan *domain.Plan, months int) (*domain.Subscription, error) {
	if months <= 0 {
		months = 1
	}
	now := time.Now().UTC()
	sub := &domain.Subscription{
		ID:                 s.uuidGen.NewString(),
		TenantID:           tenantID,
		PlanID:             plan.ID,
		Status:             domain.SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, months, 0),
	}
	if err := s.planRepo.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *AuthService) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	return s.tenantRepo.List(ctx)
}

// ResolveTenant accepts a tenant id or name.
func (s *AuthService) ResolveTenant(ctx context.Context, idOrName string) (*domain.Tenant, error) {
	if _, err := uuid.Parse(idOrName); err == nil {
		t, err := s.tenantRepo.GetByID(ctx, idOrName)
		if !errors.Is(err, domain.ErrTenantNotFound) {
			return t, err
		}
	}
	return s.tenantRepo.GetByName(ctx, idOrName)
}

// CreateAPIKey returns the plaintext token. Only its hash is stored.
func (s *AuthService) CreateAPIKey(ctx context.Context, tenantID, name string) (string, error) {
	if tenantID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}

	if _, err := s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return "", err
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	key := domain.NewAPIKey(s.uuidGen.NewString(), tenantID, name, hashToken(token), time.Now().UTC(), nil)
	if err := domain.ValidateAPIKey(key); err != nil {
		return "", err
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return "", err
	}

	return token, nil
}

// ValidateAPIKey returns the tenant that owns token.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if !domain.WellFormedAPIToken(token) {
		return "", domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return "", domain.ErrInvalidAPIKey
		}
		return "", err
	}

	return key.Authenticate()
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	if tenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}

	return s.keyRepo.ListByTenant(ctx, tenantID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return domain.APIKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
