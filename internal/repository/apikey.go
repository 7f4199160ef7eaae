package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const apiKeyColumns = `id, tenant_id, name, key_hash, created_at, revoked_at`

type APIKeyRepository struct {
	db dbtx
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{db: pool}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.TenantID, key.Name, key.KeyHash, key.CreatedAt, key.RevokedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAPIKeyAlreadyExists
	}
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	return r.getOne(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
}

// GetByHash looks a key up by the sha256 of its token, revoked or not.
func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	return r.getOne(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, hash)
}

func (r *APIKeyRepository) getOne(ctx context.Context, query, arg string) (*domain.APIKey, error) {
	key, err := scanAPIKey(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAPIKeyNotFound
	}
	return key, err
}

// ListByTenant returns the tenant's keys, newest first.
func (r *APIKeyRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.APIKey, error) {
		return scanAPIKey(row)
	})
}

// Revoke stamps revoked_at once. Revoking twice reports ErrAPIKeyNotFound.
func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	var key domain.APIKey
	if err := row.Scan(&key.ID, &key.TenantID, &key.Name, &key.KeyHash, &key.CreatedAt, &key.RevokedAt); err != nil {
		return nil, err
	}
	return &key, nil
}
