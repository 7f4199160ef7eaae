// Package service holds the business logic of askbase. Every tenant-owned
// operation reads the tenant from the request context.
package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/openai"
	"github.com/cloo-solutions/askbase/internal/pagination"
	"github.com/google/uuid"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error)
	ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Update(ctx context.Context, d *domain.Document) error
	UpdateStatus(ctx context.Context, tenantID, id string, status domain.DocumentStatus, errMsg string) error
	MarkChunked(ctx context.Context, d *domain.Document) error
	Delete(ctx context.Context, tenantID, id string) error
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	ReplaceChunks(ctx context.Context, tenantID, documentID string, chunks []domain.Chunk) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Chunk, error)
	UpdateEmbedding(ctx context.Context, tenantID, id string, embedding []float32, tokens int) error
	CountByDocument(ctx context.Context, tenantID, documentID string) (int, error)
	SearchSimilar(ctx context.Context, tenantID string, query []float32, k int) ([]domain.ScoredChunk, error)
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// AnswerCacheRepositoryInterface is the per-tenant answer cache
type AnswerCacheRepositoryInterface interface {
	Get(ctx context.Context, tenantID, normalized string) (*domain.AnswerCacheEntry, bool, error)
	Put(ctx context.Context, tenantID, normalized, answer string, tokensSaved int) (*domain.AnswerCacheEntry, error)
	IncrementHits(ctx context.Context, tenantID, id string) (int, error)
	TopQuestions(ctx context.Context, tenantID string, limit int) ([]*domain.AnswerCacheEntry, error)
	DeleteByAnswer(ctx context.Context, tenantID, answer string) (int64, error)
}

// AISettingsRepositoryInterface stores per-tenant prompt settings
type AISettingsRepositoryInterface interface {
	Get(ctx context.Context, tenantID string) (*domain.AISettings, error)
	Upsert(ctx context.Context, s *domain.AISettings) error
}

// ChatRepositoryInterface stores chats and their messages
type ChatRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Chat) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Chat, error)
	List(ctx context.Context, tenantID string, limit int) ([]*domain.Chat, error)
	AddMessage(ctx context.Context, m *domain.ChatMessage) error
	RecentMessages(ctx context.Context, tenantID, chatID string, limit int) ([]*domain.ChatMessage, error)
}

// BlobStore keeps original uploads, addressed by path
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, error)
	DeleteDirectory(ctx context.Context, prefix string) error
}

// DocumentTask asks a worker to process one document
type DocumentTask struct {
	TenantID   string
	DocumentID string
}

// DocumentQueue hands documents to background processing
type DocumentQueue interface {
	Enqueue(ctx context.Context, task DocumentTask) error
}

// EmbeddingClient produces vectors for text
type EmbeddingClient interface {
	EmbedText(ctx context.Context, text string) (*openai.Embedding, error)
}

// CompletionClient answers chat prompts
type CompletionClient interface {
	Complete(ctx context.Context, messages []openai.Message) (*openai.Completion, error)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
