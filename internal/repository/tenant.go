package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantPageResult struct {
	Items      []*domain.Tenant
	NextCursor string
	HasMore    bool
}

type TenantRepository struct {
	db dbtx
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: pool}
}

func NewTenantRepositoryWithTx(tx pgx.Tx) *TenantRepository {
	return &TenantRepository{db: tx}
}

func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)`,
		t.ID, t.Name, t.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrTenantAlreadyExists
	}
	return err
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM tenants WHERE name = $1`,
		name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, created_at FROM tenants ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTenants(rows)
}

func (r *TenantRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*TenantPageResult, error) {
	limit = pagination.Limit(limit, 20, 100)

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, name, created_at FROM tenants
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, name, created_at FROM tenants
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants, err := scanTenants(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(tenants) > limit
	if hasMore {
		tenants = tenants[:limit]
	}

	var nextCursor string
	if hasMore && len(tenants) > 0 {
		last := tenants[len(tenants)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &TenantPageResult{
		Items:      tenants,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func scanTenants(rows pgx.Rows) ([]*domain.Tenant, error) {
	var tenants []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}
