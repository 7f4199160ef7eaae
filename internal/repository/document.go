package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/pagination"
	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, tenant_id, owner_id, title, original_filename, path, mime_type, size_bytes,
	content_text, checksum, status, error_message, tokens, tags, created_at, updated_at`

// DocumentRepository persists documents. Every query is scoped by tenant_id.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		d.ID, d.TenantID, nullableString(d.OwnerID), d.Title, d.OriginalFilename, d.Path, d.MimeType, d.SizeBytes,
		d.ContentText, nullableString(d.Checksum), d.Status, nullableString(d.ErrorMessage), d.Tokens, tags,
		d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 15
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE tenant_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			tenantID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE tenant_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			tenantID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// Update writes the user-editable fields.
func (r *DocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET title = $1, tags = $2, updated_at = $3
		 WHERE tenant_id = $4 AND id = $5`,
		d.Title, tags, d.UpdatedAt, d.TenantID, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// UpdateStatus moves the document to status. errMsg is stored only for
// failed documents and cleared otherwise.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, tenantID, id string, status domain.DocumentStatus, errMsg string) error {
	if status != domain.DocumentStatusFailed {
		errMsg = ""
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, error_message = $2, updated_at = $3
		 WHERE tenant_id = $4 AND id = $5`,
		status, nullableString(errMsg), time.Now().UTC(), tenantID, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// MarkChunked stores the normalized text and its derived fields and sets the
// status to chunked.
func (r *DocumentRepository) MarkChunked(ctx context.Context, d *domain.Document) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET content_text = $1, checksum = $2, tokens = $3, status = $4, error_message = NULL, updated_at = $5
		 WHERE tenant_id = $6 AND id = $7`,
		d.ContentText, nullableString(d.Checksum), d.Tokens, domain.DocumentStatusChunked, d.UpdatedAt,
		d.TenantID, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE tenant_id = $1`,
		tenantID,
	).Scan(&n)
	return n, err
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var ownerID, checksum, errMsg *string
	err := row.Scan(
		&d.ID, &d.TenantID, &ownerID, &d.Title, &d.OriginalFilename, &d.Path, &d.MimeType, &d.SizeBytes,
		&d.ContentText, &checksum, &d.Status, &errMsg, &d.Tokens, &d.Tags, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.OwnerID = derefString(ownerID)
	d.Checksum = derefString(checksum)
	d.ErrorMessage = derefString(errMsg)
	return &d, nil
}
