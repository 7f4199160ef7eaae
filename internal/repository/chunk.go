package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const chunkColumns = `id, tenant_id, document_id, chunk_index, content, content_hash, tokens_estimated,
	embedding, embedding_tokens, created_at, updated_at`

// ChunkRepository handles document chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes the document's chunks and inserts the given ones.
// Run it inside a transaction so readers never see a partial set.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, tenantID, documentID string, chunks []domain.Chunk) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM document_chunks WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID,
	)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, tenant_id, document_id, chunk_index, content, content_hash, tokens_estimated, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			c.ID, tenantID, documentID, c.ChunkIndex, c.Content, c.ContentHash, c.TokensEstimated, createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *ChunkRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Chunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	c, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return c, nil
}

// UpdateEmbedding overwrites the chunk's vector and token count.
func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, tenantID, id string, embedding []float32, tokens int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE document_chunks SET embedding = $1, embedding_tokens = $2, updated_at = $3
		 WHERE tenant_id = $4 AND id = $5`,
		pgvector.NewVector(embedding), tokens, time.Now().UTC(), tenantID, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) CountByDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID,
	).Scan(&n)
	return n, err
}

func (r *ChunkRepository) ListByDocument(ctx context.Context, tenantID, documentID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`
		 FROM document_chunks
		 WHERE tenant_id = $1 AND document_id = $2
		 ORDER BY chunk_index`,
		tenantID, documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SearchSimilar returns the k embedded chunks of the tenant nearest to query
// by L2 distance, closest first. Ties are broken by id.
func (r *ChunkRepository) SearchSimilar(ctx context.Context, tenantID string, query []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`, embedding <-> $2 AS distance
		 FROM document_chunks
		 WHERE tenant_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <-> $2, id
		 LIMIT $3`,
		tenantID, pgvector.NewVector(query), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, k)
	for rows.Next() {
		var sc domain.ScoredChunk
		var vec *pgvector.Vector
		if err := rows.Scan(
			&sc.ID, &sc.TenantID, &sc.DocumentID, &sc.ChunkIndex, &sc.Content, &sc.ContentHash, &sc.TokensEstimated,
			&vec, &sc.EmbeddingTokens, &sc.CreatedAt, &sc.UpdatedAt, &sc.Distance,
		); err != nil {
			return nil, err
		}
		if vec != nil {
			sc.Embedding = vec.Slice()
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

func scanChunk(row pgx.Row) (*domain.Chunk, error) {
	var c domain.Chunk
	var vec *pgvector.Vector
	if err := row.Scan(
		&c.ID, &c.TenantID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.ContentHash, &c.TokensEstimated,
		&vec, &c.EmbeddingTokens, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if vec != nil {
		c.Embedding = vec.Slice()
	}
	return &c, nil
}
