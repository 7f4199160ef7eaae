package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/openai"
	"github.com/cloo-solutions/askbase/internal/pagination"
	"github.com/stretchr/testify/mock"
)

type MockUUIDGenerator struct {
	uuids     []string
	callCount int
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, tenantID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, tenantID, id string, status domain.DocumentStatus, errMsg string) error {
	args := m.Called(ctx, tenantID, id, status, errMsg)
	return args.Error(0)
}

func (m *MockDocumentRepository) MarkChunked(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) ReplaceChunks(ctx context.Context, tenantID, documentID string, chunks []domain.Chunk) error {
	args := m.Called(ctx, tenantID, documentID, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Chunk, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) UpdateEmbedding(ctx context.Context, tenantID, id string, embedding []float32, tokens int) error {
	args := m.Called(ctx, tenantID, id, embedding, tokens)
	return args.Error(0)
}

func (m *MockChunkRepository) CountByDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	args := m.Called(ctx, tenantID, documentID)
	return args.Int(0), args.Error(1)
}

func (m *MockChunkRepository) SearchSimilar(ctx context.Context, tenantID string, query []float32, k int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, tenantID, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockAnswerCacheRepository struct {
	mock.Mock
}

func (m *MockAnswerCacheRepository) Get(ctx context.Context, tenantID, normalized string) (*domain.AnswerCacheEntry, bool, error) {
	args := m.Called(ctx, tenantID, normalized)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.AnswerCacheEntry), args.Bool(1), args.Error(2)
}

func (m *MockAnswerCacheRepository) Put(ctx context.Context, tenantID, normalized, answer string, tokensSaved int) (*domain.AnswerCacheEntry, error) {
	args := m.Called(ctx, tenantID, normalized, answer, tokensSaved)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnswerCacheEntry), args.Error(1)
}

func (m *MockAnswerCacheRepository) IncrementHits(ctx context.Context, tenantID, id string) (int, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Int(0), args.Error(1)
}

func (m *MockAnswerCacheRepository) TopQuestions(ctx context.Context, tenantID string, limit int) ([]*domain.AnswerCacheEntry, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AnswerCacheEntry), args.Error(1)
}

func (m *MockAnswerCacheRepository) DeleteByAnswer(ctx context.Context, tenantID, answer string) (int64, error) {
	args := m.Called(ctx, tenantID, answer)
	return args.Get(0).(int64), args.Error(1)
}

type MockAISettingsRepository struct {
	mock.Mock
}

func (m *MockAISettingsRepository) Get(ctx context.Context, tenantID string) (*domain.AISettings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AISettings), args.Error(1)
}

func (m *MockAISettingsRepository) Upsert(ctx context.Context, s *domain.AISettings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, c *domain.Chat) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockChatRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Chat, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) List(ctx context.Context, tenantID string, limit int) ([]*domain.Chat, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) AddMessage(ctx context.Context, msg *domain.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockChatRepository) RecentMessages(ctx context.Context, tenantID, chatID string, limit int) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, tenantID, chatID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	args := m.Called(ctx, path, data, contentType)
	return args.Error(0)
}

func (m *MockBlobStore) Get(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBlobStore) DeleteDirectory(ctx context.Context, prefix string) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

type MockDocumentQueue struct {
	mock.Mock
}

func (m *MockDocumentQueue) Enqueue(ctx context.Context, task DocumentTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) EmbedText(ctx context.Context, text string) (*openai.Embedding, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.Embedding), args.Error(1)
}

type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, messages []openai.Message) (*openai.Completion, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.Completion), args.Error(1)
}

type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) Increment(ctx context.Context, tenantID, month string, tokens int64) (*domain.UsageMonthly, error) {
	args := m.Called(ctx, tenantID, month, tokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UsageMonthly), args.Error(1)
}

func (m *MockUsageRepository) GetMonth(ctx context.Context, tenantID, month string) (*domain.UsageMonthly, error) {
	args := m.Called(ctx, tenantID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UsageMonthly), args.Error(1)
}

type MockPlanReader struct {
	mock.Mock
}

func (m *MockPlanReader) GetActivePlan(ctx context.Context, tenantID string, now time.Time) (*domain.ActivePlan, error) {
	args := m.Called(ctx, tenantID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActivePlan), args.Error(1)
}

type MockBillingEventRepository struct {
	mock.Mock
}

func (m *MockBillingEventRepository) Create(ctx context.Context, e *domain.BillingEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type MockBillingEventPublisher struct {
	mock.Mock
}

func (m *MockBillingEventPublisher) Publish(ctx context.Context, e *domain.BillingEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type MockUsageRecorder struct {
	mock.Mock
}

func (m *MockUsageRecorder) RecordUsage(ctx context.Context, tokens int) (*domain.UsageMonthly, error) {
	args := m.Called(ctx, tokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UsageMonthly), args.Error(1)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tenant), args.Error(1)
}

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, p *domain.Plan) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPlanRepository) GetByName(ctx context.Context, name string) (*domain.Plan, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *MockPlanRepository) List(ctx context.Context) ([]*domain.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Plan), args.Error(1)
}

func (m *MockPlanRepository) CreateSubscription(ctx context.Context, s *domain.Subscription) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
