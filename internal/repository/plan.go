package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlanRepository handles plans and the subscriptions that bind tenants to them.
type PlanRepository struct {
	db dbtx
}

func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: pool}
}

func (r *PlanRepository) Create(ctx context.Context, p *domain.Plan) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO plans (id, name, monthly_token_limit, price_cents, overage_allowed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.MonthlyTokenLimit, p.PriceCents, p.OverageAllowed, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrPlanAlreadyExists
	}
	return err
}

func (r *PlanRepository) GetByName(ctx context.Context, name string) (*domain.Plan, error) {
	var p domain.Plan
	err := r.db.QueryRow(ctx,
		`SELECT id, name, monthly_token_limit, price_cents, overage_allowed, created_at
		 FROM plans WHERE name = $1`,
		name,
	).Scan(&p.ID, &p.Name, &p.MonthlyTokenLimit, &p.PriceCents, &p.OverageAllowed, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]*domain.Plan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, monthly_token_limit, price_cents, overage_allowed, created_at
		 FROM plans ORDER BY monthly_token_limit`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*domain.Plan
	for rows.Next() {
		var p domain.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.MonthlyTokenLimit, &p.PriceCents, &p.OverageAllowed, &p.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) CreateSubscription(ctx context.Context, s *domain.Subscription) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO subscriptions (id, tenant_id, plan_id, status, current_period_start, current_period_end)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.TenantID, s.PlanID, s.Status, s.CurrentPeriodStart, s.CurrentPeriodEnd,
	)
	return err
}

// GetActivePlan returns the plan of the tenant's latest active subscription
// whose period has not ended at now.
func (r *PlanRepository) GetActivePlan(ctx context.Context, tenantID string, now time.Time) (*domain.ActivePlan, error) {
	var ap domain.ActivePlan
	err := r.db.QueryRow(ctx,
		`SELECT p.id, p.name, p.monthly_token_limit, p.price_cents, p.overage_allowed, p.created_at,
		        s.id, s.tenant_id, s.plan_id, s.status, s.current_period_start, s.current_period_end
		 FROM subscriptions s
		 JOIN plans p ON p.id = s.plan_id
		 WHERE s.tenant_id = $1 AND s.status = $2 AND s.current_period_end >= $3
		 ORDER BY s.current_period_end DESC
		 LIMIT 1`,
		tenantID, domain.SubscriptionStatusActive, now,
	).Scan(
		&ap.Plan.ID, &ap.Plan.Name, &ap.Plan.MonthlyTokenLimit, &ap.Plan.PriceCents, &ap.Plan.OverageAllowed, &ap.Plan.CreatedAt,
		&ap.Subscription.ID, &ap.Subscription.TenantID, &ap.Subscription.PlanID, &ap.Subscription.Status,
		&ap.Subscription.CurrentPeriodStart, &ap.Subscription.CurrentPeriodEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveSubscription
		}
		return nil, err
	}
	return &ap, nil
}
