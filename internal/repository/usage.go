package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository is the monthly token ledger.
type UsageRepository struct {
	db dbtx
}

func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: pool}
}

// Increment adds tokens and one request to the (tenant, month) row, creating
// it on first use, and returns the row after the update.
func (r *UsageRepository) Increment(ctx context.Context, tenantID, month string, tokens int64) (*domain.UsageMonthly, error) {
	var u domain.UsageMonthly
	err := r.db.QueryRow(ctx,
		`INSERT INTO usage_monthly (tenant_id, month, tokens_used, requests_count, updated_at)
		 VALUES ($1, $2, $3, 1, NOW())
		 ON CONFLICT (tenant_id, month)
		 DO UPDATE SET tokens_used = usage_monthly.tokens_used + EXCLUDED.tokens_used,
		               requests_count = usage_monthly.requests_count + 1,
		               updated_at = NOW()
		 RETURNING tenant_id, month, tokens_used, requests_count, updated_at`,
		tenantID, month, tokens,
	).Scan(&u.TenantID, &u.Month, &u.TokensUsed, &u.RequestsCount, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsageRepository) GetMonth(ctx context.Context, tenantID, month string) (*domain.UsageMonthly, error) {
	var u domain.UsageMonthly
	err := r.db.QueryRow(ctx,
		`SELECT tenant_id, month, tokens_used, requests_count, updated_at
		 FROM usage_monthly WHERE tenant_id = $1 AND month = $2`,
		tenantID, month,
	).Scan(&u.TenantID, &u.Month, &u.TokensUsed, &u.RequestsCount, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUsageNotFound
		}
		return nil, err
	}
	return &u, nil
}
