package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AISettingsRepository struct {
	db dbtx
}

func NewAISettingsRepository(pool *pgxpool.Pool) *AISettingsRepository {
	return &AISettingsRepository{db: pool}
}

func (r *AISettingsRepository) Get(ctx context.Context, tenantID string) (*domain.AISettings, error) {
	var s domain.AISettings
	var tone, language, detail *string
	err := r.db.QueryRow(ctx,
		`SELECT tenant_id, tone, language, detail_level, security_rules, updated_at
		 FROM ai_settings WHERE tenant_id = $1`,
		tenantID,
	).Scan(&s.TenantID, &tone, &language, &detail, &s.SecurityRules, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettingsNotFound
		}
		return nil, err
	}
	s.Tone = derefString(tone)
	s.Language = derefString(language)
	s.DetailLevel = derefString(detail)
	return &s, nil
}

func (r *AISettingsRepository) Upsert(ctx context.Context, s *domain.AISettings) error {
	rules := s.SecurityRules
	if rules == nil {
		rules = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO ai_settings (tenant_id, tone, language, detail_level, security_rules, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (tenant_id)
		 DO UPDATE SET tone = EXCLUDED.tone,
		               language = EXCLUDED.language,
		               detail_level = EXCLUDED.detail_level,
		               security_rules = EXCLUDED.security_rules,
		               updated_at = EXCLUDED.updated_at`,
		s.TenantID, nullableString(s.Tone), nullableString(s.Language), nullableString(s.DetailLevel), rules, s.UpdatedAt,
	)
	return err
}
