package service

import (
	"context"
	"errors"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/telemetry"
	"github.com/cloo-solutions/askbase/internal/tenant"
	"github.com/cloo-solutions/askbase/internal/textproc"
)

// EmbeddingService computes and stores chunk embeddings
type EmbeddingService struct {
	client    EmbeddingClient
	chunkRepo ChunkRepositoryInterface
	cache     AnswerCacheRepositoryInterface
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, chunkRepo ChunkRepositoryInterface, cache AnswerCacheRepositoryInterface) *EmbeddingService {
	return &EmbeddingService{
		client:    client,
		chunkRepo: chunkRepo,
		cache:     cache,
	}
}

// EmbedChunk embeds one chunk of the tenant in scope. Running it twice
// overwrites the same row; a chunk removed in the meantime is skipped.
func (s *EmbeddingService) EmbedChunk(ctx context.Context, chunkID string) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.EmbedChunk", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "embed_chunk",
	})
	defer span.End()

	chunk, err := s.chunkRepo.GetByID(ctx, tenantID, chunkID)
	if err != nil {
		if errors.Is(err, domain.ErrChunkNotFound) {
			return nil
		}
		return err
	}

	embedding, err := s.client.EmbedText(ctx, chunk.Content)
	if err != nil {
		return domain.ErrEmbeddingProvider.WithCause(err)
	}

	tokens := embedding.Tokens
	if tokens <= 0 {
		tokens = textproc.EstimateChunkTokens(chunk.Content)
	}

	err = s.chunkRepo.UpdateEmbedding(ctx, tenantID, chunk.ID, embedding.Vector, tokens)
	if err != nil {
		if errors.Is(err, domain.ErrChunkNotFound) {
			return nil
		}
		return err
	}

	// Questions asked before this chunk became searchable may have cached
	// the fallback answer.
	dropFallbackAnswers(ctx, s.cache, tenantID)
	return nil
}
