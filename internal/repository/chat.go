package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	chatColumns        = `id, tenant_id, owner_id, title, created_at, updated_at`
	chatMessageColumns = `id, tenant_id, chat_id, role, content, tokens, created_at`
)

// ChatRepository stores chats and their messages, scoped by tenant_id.
type ChatRepository struct {
	db dbtx
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: pool}
}

func (r *ChatRepository) Create(ctx context.Context, c *domain.Chat) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chats (`+chatColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.TenantID, nullableString(c.OwnerID), nullableString(c.Title), c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ChatRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Chat, error) {
	c, err := scanChat(r.db.QueryRow(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns the tenant's chats, most recently active first.
func (r *ChatRepository) List(ctx context.Context, tenantID string, limit int) ([]*domain.Chat, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chatColumns+`
		 FROM chats
		 WHERE tenant_id = $1
		 ORDER BY updated_at DESC, id DESC
		 LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Chat, error) {
		return scanChat(row)
	})
}

// AddMessage appends m to its chat and marks the chat active. A chat that
// does not exist for the tenant yields ErrChatNotFound.
func (r *ChatRepository) AddMessage(ctx context.Context, m *domain.ChatMessage) error {
	if err := domain.ValidateChatMessage(m); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid chat message", err)
	}
	cmdTag, err := r.db.Exec(ctx,
		`WITH touched AS (
		     UPDATE chats SET updated_at = $7::timestamptz
		     WHERE tenant_id = $2::uuid AND id = $3::uuid
		     RETURNING id
		 )
		 INSERT INTO chat_messages (`+chatMessageColumns+`)
		 SELECT $1::uuid, $2::uuid, touched.id, $4::text, $5::text, $6::integer, $7::timestamptz
		 FROM touched`,
		m.ID, m.TenantID, m.ChatID, string(m.Role), m.Content, m.Tokens, m.CreatedAt,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChatNotFound
	}
	return nil
}

// RecentMessages returns up to limit of the chat's latest messages, oldest
// first.
func (r *ChatRepository) RecentMessages(ctx context.Context, tenantID, chatID string, limit int) ([]*domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chatMessageColumns+` FROM (
		     SELECT `+chatMessageColumns+`
		     FROM chat_messages
		     WHERE tenant_id = $1 AND chat_id = $2
		     ORDER BY created_at DESC, id DESC
		     LIMIT $3
		 ) recent
		 ORDER BY created_at, id`,
		tenantID, chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.ChatMessage, error) {
		var m domain.ChatMessage
		var role string
		if err := row.Scan(&m.ID, &m.TenantID, &m.ChatID, &role, &m.Content, &m.Tokens, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.ChatRole(role)
		return &m, nil
	})
}

func scanChat(row pgx.Row) (*domain.Chat, error) {
	var c domain.Chat
	var owner, title *string
	if err := row.Scan(&c.ID, &c.TenantID, &owner, &title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.OwnerID = derefString(owner)
	c.Title = derefString(title)
	return &c, nil
}
