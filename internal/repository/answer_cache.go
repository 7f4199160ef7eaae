package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const answerCacheColumns = `id, tenant_id, question_normalized, answer, hits, tokens_saved, created_at, updated_at`

// AnswerCacheRepository stores one answer per (tenant, normalized question).
type AnswerCacheRepository struct {
	db dbtx
}

func NewAnswerCacheRepository(pool *pgxpool.Pool) *AnswerCacheRepository {
	return &AnswerCacheRepository{db: pool}
}

// Get returns the cached entry, or false when there is none.
func (r *AnswerCacheRepository) Get(ctx context.Context, tenantID, normalized string) (*domain.AnswerCacheEntry, bool, error) {
	e, err := scanAnswerCacheEntry(r.db.QueryRow(ctx,
		`SELECT `+answerCacheColumns+`
		 FROM answer_cache
		 WHERE tenant_id = $1 AND question_normalized = $2`,
		tenantID, normalized,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return e, true, nil
}

// Put inserts an entry with hits = 1. When a concurrent caller already
// inserted the same question the existing row keeps its answer and its hit
// counter is incremented instead.
func (r *AnswerCacheRepository) Put(ctx context.Context, tenantID, normalized, answer string, tokensSaved int) (*domain.AnswerCacheEntry, error) {
	return scanAnswerCacheEntry(r.db.QueryRow(ctx,
		`INSERT INTO answer_cache (tenant_id, question_normalized, answer, hits, tokens_saved)
		 VALUES ($1, $2, $3, 1, $4)
		 ON CONFLICT (tenant_id, question_normalized)
		 DO UPDATE SET hits = answer_cache.hits + 1, updated_at = NOW()
		 RETURNING `+answerCacheColumns,
		tenantID, normalized, answer, tokensSaved,
	))
}

// IncrementHits bumps the hit counter and returns the new value.
func (r *AnswerCacheRepository) IncrementHits(ctx context.Context, tenantID, id string) (int, error) {
	var hits int
	err := r.db.QueryRow(ctx,
		`UPDATE answer_cache SET hits = hits + 1, updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2
		 RETURNING hits`,
		tenantID, id,
	).Scan(&hits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NewDomainError(domain.ErrCodeNotFound, "cache entry not found")
		}
		return 0, err
	}
	return hits, nil
}

// TopQuestions lists the most requested questions of the tenant.
func (r *AnswerCacheRepository) TopQuestions(ctx context.Context, tenantID string, limit int) ([]*domain.AnswerCacheEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+answerCacheColumns+`
		 FROM answer_cache
		 WHERE tenant_id = $1
		 ORDER BY hits DESC, updated_at DESC
		 LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.AnswerCacheEntry, 0, limit)
	for rows.Next() {
		e, err := scanAnswerCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteByAnswer drops every entry of the tenant whose answer equals answer.
func (r *AnswerCacheRepository) DeleteByAnswer(ctx context.Context, tenantID, answer string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM answer_cache WHERE tenant_id = $1 AND answer = $2`,
		tenantID, answer,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanAnswerCacheEntry(row pgx.Row) (*domain.AnswerCacheEntry, error) {
	var e domain.AnswerCacheEntry
	if err := row.Scan(&e.ID, &e.TenantID, &e.QuestionNormalized, &e.Answer, &e.Hits, &e.TokensSaved, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
