package repository

import (
	"context"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BillingEventRepository struct {
	db dbtx
}

func NewBillingEventRepository(pool *pgxpool.Pool) *BillingEventRepository {
	return &BillingEventRepository{db: pool}
}

func (r *BillingEventRepository) Create(ctx context.Context, e *domain.BillingEvent) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO billing_events (id, tenant_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.TenantID, e.EventType, payload, e.CreatedAt,
	)
	return err
}

func (r *BillingEventRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.BillingEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, event_type, payload, created_at
		 FROM billing_events
		 WHERE tenant_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.BillingEvent
	for rows.Next() {
		var e domain.BillingEvent
		if err := rows.Scan(&e.ID, &e.TenantID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
