package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/telemetry"
	"github.com/cloo-solutions/askbase/internal/tenant"
	"go.uber.org/zap"
)

// UsageRepositoryInterface is the monthly token ledger
type UsageRepositoryInterface interface {
	Increment(ctx context.Context, tenantID, month string, tokens int64) (*domain.UsageMonthly, error)
	GetMonth(ctx context.Context, tenantID, month string) (*domain.UsageMonthly, error)
}

// PlanReader resolves the plan in force for a tenant
type PlanReader interface {
	GetActivePlan(ctx context.Context, tenantID string, now time.Time) (*domain.ActivePlan, error)
}

// BillingEventRepositoryInterface stores billing audit events
type BillingEventRepositoryInterface interface {
	Create(ctx context.Context, e *domain.BillingEvent) error
}

// BillingEventPublisher fans billing events out to other systems
type BillingEventPublisher interface {
	Publish(ctx context.Context, e *domain.BillingEvent) error
}

// BillingConfig holds the overage and hard-limit policy
type BillingConfig struct {
	OverageBilled     bool
	HardLimit         bool
	OverageCentsPer1K int64
}

// MonthlyUsage summarises the current month for a tenant
type MonthlyUsage struct {
	Month           string  `json:"month"`
	TokensUsed      int64   `json:"tokens_used"`
	RequestsCount   int64   `json:"requests_count"`
	TokensLimit     int64   `json:"tokens_limit"`
	TokensRemaining int64   `json:"tokens_remaining"`
	PercentUsed     float64 `json:"percent_used"`
}

// MeteringService records token usage and enforces plan limits
type MeteringService struct {
	usage     UsageRepositoryInterface
	plans     PlanReader
	events    BillingEventRepositoryInterface
	publisher BillingEventPublisher
	cfg       BillingConfig
	uuidGen   UUIDGenerator
	logger    *zap.Logger
	now       func() time.Time
}

// NewMeteringService creates a MeteringService. publisher may be nil.
func NewMeteringService(
	usage UsageRepositoryInterface,
	plans PlanReader,
	events BillingEventRepositoryInterface,
	publisher BillingEventPublisher,
	cfg BillingConfig,
	logger *zap.Logger,
) *MeteringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeteringService{
		usage:     usage,
		plans:     plans,
		events:    events,
		publisher: publisher,
		cfg:       cfg,
		uuidGen:   &DefaultUUIDGenerator{},
		logger:    logger,
		now:       utcNow,
	}
}

// RecordUsage adds tokens to the current month and applies the plan policy.
// The ledger increment stands even when ErrQuotaExceeded is returned.
func (s *MeteringService) RecordUsage(ctx context.Context, tokens int) (*domain.UsageMonthly, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if tokens < 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tokens cannot be negative")
	}

	ctx, span := telemetry.StartSpan(ctx, "MeteringService.RecordUsage", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "record_usage",
	})
	defer span.End()

	now := s.now()
	month := domain.MonthKey(now)

	usage, err := s.usage.Increment(ctx, tenantID, month, int64(tokens))
	if err != nil {
		return nil, err
	}

	active, err := s.plans.GetActivePlan(ctx, tenantID, now)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSubscription) {
			return usage, nil
		}
		return usage, err
	}

	limit := active.Plan.MonthlyTokenLimit
	if usage.TokensUsed <= limit {
		return usage, nil
	}

	if err := s.emit(ctx, tenantID, domain.BillingEventPlanLimitExceeded, map[string]any{
		"tokens_used": usage.TokensUsed,
		"limit":       limit,
		"month":       month,
	}); err != nil {
		return usage, err
	}

	if active.Plan.OverageAllowed {
		if !s.cfg.OverageBilled {
			return usage, nil
		}
		overage := min(int64(tokens), usage.TokensUsed-limit)
		if overage <= 0 {
			return usage, nil
		}
		err := s.emit(ctx, tenantID, domain.BillingEventOverageCharged, map[string]any{
			"overage_tokens": overage,
			"amount_cents":   overageCents(overage, s.cfg.OverageCentsPer1K),
			"month":          month,
		})
		return usage, err
	}

	if s.cfg.HardLimit {
		return usage, domain.ErrQuotaExceeded
	}
	return usage, nil
}

// CheckQuota is the pre-request gate. It fails with ErrNoActiveSubscription
// or ErrQuotaExceeded and otherwise reports the remaining allowance.
func (s *MeteringService) CheckQuota(ctx context.Context) (*domain.QuotaStatus, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	active, err := s.plans.GetActivePlan(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}

	used, _, err := s.currentUsage(ctx, tenantID, domain.MonthKey(now))
	if err != nil {
		return nil, err
	}

	limit := active.Plan.MonthlyTokenLimit
	status := &domain.QuotaStatus{
		Limit:     limit,
		Used:      used,
		Remaining: max(0, limit-used),
		ResetDate: active.Subscription.CurrentPeriodEnd,
	}

	if used >= limit && !active.Plan.OverageAllowed && s.cfg.HardLimit {
		return status, domain.ErrQuotaExceeded
	}
	return status, nil
}

// MonthlyUsage reports the current month against the tenant's plan.
func (s *MeteringService) MonthlyUsage(ctx context.Context) (*MonthlyUsage, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	month := domain.MonthKey(now)

	used, requests, err := s.currentUsage(ctx, tenantID, month)
	if err != nil {
		return nil, err
	}

	var limit int64
	active, err := s.plans.GetActivePlan(ctx, tenantID, now)
	switch {
	case err == nil:
		limit = active.Plan.MonthlyTokenLimit
	case !errors.Is(err, domain.ErrNoActiveSubscription):
		return nil, err
	}

	out := &MonthlyUsage{
		Month:           month,
		TokensUsed:      used,
		RequestsCount:   requests,
		TokensLimit:     limit,
		TokensRemaining: max(0, limit-used),
	}
	if limit > 0 {
		out.PercentUsed = math.Round(float64(used)/float64(limit)*10000) / 100
	}
	return out, nil
}

func (s *MeteringService) currentUsage(ctx context.Context, tenantID, month string) (int64, int64, error) {
	usage, err := s.usage.GetMonth(ctx, tenantID, month)
	if err != nil {
		if errors.Is(err, domain.ErrUsageNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return usage.TokensUsed, usage.RequestsCount, nil
}

// emit stores the event and then publishes it. Publishing is best effort.
func (s *MeteringService) emit(ctx context.Context, tenantID, eventType string, payload map[string]any) error {
	event := &domain.BillingEvent{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: s.now(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish billing event",
				zap.String("tenant_id", tenantID),
				zap.String("event_type", eventType),
				zap.Error(err),
			)
		}
	}
	return nil
}

func overageCents(tokens, centsPer1K int64) int64 {
	if tokens <= 0 || centsPer1K <= 0 {
		return 0
	}
	return (tokens*centsPer1K + 999) / 1000
}
