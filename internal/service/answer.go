package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/telemetry"
	"github.com/cloo-solutions/askbase/internal/tenant"
	"github.com/cloo-solutions/askbase/internal/textproc"
)

// DefaultRetrievalTopK is the number of chunks given to the model
const DefaultRetrievalTopK = 5

// DocumentCounter reports whether a tenant has a knowledge base at all
type DocumentCounter interface {
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

// SimilaritySearcher finds the chunks nearest to a query vector
type SimilaritySearcher interface {
	SearchSimilar(ctx context.Context, tenantID string, query []float32, k int) ([]domain.ScoredChunk, error)
}

// UsageRecorder meters tokens spent on an answer
type UsageRecorder interface {
	RecordUsage(ctx context.Context, tokens int) (*domain.UsageMonthly, error)
}

// AnswerService resolves questions through quick replies, the answer cache,
// the knowledge-base gate and retrieval-augmented generation, in that order.
type AnswerService struct {
	cache    AnswerCacheRepositoryInterface
	docs     DocumentCounter
	search   SimilaritySearcher
	embedder EmbeddingClient
	chat     CompletionClient
	settings AISettingsRepositoryInterface
	metering UsageRecorder
	topK     int
}

func NewAnswerService(
	cache AnswerCacheRepositoryInterface,
	docs DocumentCounter,
	search SimilaritySearcher,
	embedder EmbeddingClient,
	chat CompletionClient,
	settings AISettingsRepositoryInterface,
	metering UsageRecorder,
	topK int,
) *AnswerService {
	if topK <= 0 {
		topK = DefaultRetrievalTopK
	}
	return &AnswerService{
		cache:    cache,
		docs:     docs,
		search:   search,
		embedder: embedder,
		chat:     chat,
		settings: settings,
		metering: metering,
		topK:     topK,
	}
}

// Ask answers a question for the tenant in scope. When metering trips the
// hard limit the answer is returned together with ErrQuotaExceeded.
func (s *AnswerService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Ask", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "ask",
	})
	defer span.End()

	normalized := textproc.NormalizeQuestion(question)
	answer := &domain.Answer{Question: question, Normalized: normalized}

	if reply, ok := quickReply(normalized); ok {
		entry, err := s.cache.Put(ctx, tenantID, normalized, reply, 0)
		if err != nil {
			return nil, err
		}
		answer.Text = reply
		answer.Source = domain.AnswerSourceQuickReply
		answer.CacheHits = entry.Hits
		return answer, nil
	}

	entry, found, err := s.cache.Get(ctx, tenantID, normalized)
	if err != nil {
		return nil, err
	}
	if found {
		hits, err := s.cache.IncrementHits(ctx, tenantID, entry.ID)
		switch {
		case err == nil:
			answer.Text = entry.Answer
			answer.Source = domain.AnswerSourceCache
			answer.CacheHits = hits
			return answer, nil
		case domain.CodeOf(err) != domain.ErrCodeNotFound:
			return nil, err
		}
		// Invalidated between Get and IncrementHits: answer as a miss.
	}

	count, err := s.docs.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return s.noKnowledgeBase(ctx, tenantID, answer)
	}

	query, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrEmbeddingProvider.WithCause(err)
	}

	chunks, err := s.search.SearchSimilar(ctx, tenantID, query.Vector, s.topK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return s.noKnowledgeBase(ctx, tenantID, answer)
	}

	settings, err := settingsOrDefault(ctx, s.settings, tenantID)
	if err != nil {
		return nil, err
	}

	completion, err := s.chat.Complete(ctx, buildMessages(settings, chunks, question))
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrChatProvider.WithCause(err)
	}

	tokens := completion.Tokens
	if tokens <= 0 {
		tokens = textproc.EstimateTokens(completion.Text)
	}

	answer.Chunks = chunks
	return s.finish(ctx, tenantID, answer, completion.Text, domain.AnswerSourceGenerated, tokens)
}

func (s *AnswerService) noKnowledgeBase(ctx context.Context, tenantID string, answer *domain.Answer) (*domain.Answer, error) {
	text := domain.InsufficientKnowledgeAnswer
	return s.finish(ctx, tenantID, answer, text, domain.AnswerSourceNoKnowledgeBase, textproc.EstimateTokens(text))
}

// dropFallbackAnswers removes the tenant's cached no-knowledge-base answers.
// A failure leaves them stale until the next invalidation, so it is reported
// rather than returned.
func dropFallbackAnswers(ctx context.Context, cache AnswerCacheRepositoryInterface, tenantID string) {
	if _, err := cache.DeleteByAnswer(ctx, tenantID, domain.InsufficientKnowledgeAnswer); err != nil {
		telemetry.CaptureError(ctx, fmt.Errorf("failed to invalidate fallback answers for tenant %s: %w", tenantID, err))
	}
}

// finish caches the answer and meters its tokens.
func (s *AnswerService) finish(ctx context.Context, tenantID string, answer *domain.Answer, text string, source domain.AnswerSource, tokens int) (*domain.Answer, error) {
	entry, err := s.cache.Put(ctx, tenantID, answer.Normalized, text, tokens)
	if err != nil {
		return nil, err
	}

	answer.Text = text
	answer.Source = source
	answer.TokensUsed = tokens
	answer.CacheHits = entry.Hits

	if _, err := s.metering.RecordUsage(ctx, tokens); err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			return answer, err
		}
		return nil, err
	}
	return answer, nil
}

const (
	defaultTopQuestions = 10
	maxTopQuestions     = 50
)

// TopQuestions lists the tenant's most frequently asked questions by cache hits.
func (s *AnswerService) TopQuestions(ctx context.Context, limit int) ([]*domain.AnswerCacheEntry, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopQuestions
	}
	return s.cache.TopQuestions(ctx, tenantID, min(limit, maxTopQuestions))
}

// settingsOrDefault loads the tenant's assistant settings, falling back to
// the defaults when none are stored.
func settingsOrDefault(ctx context.Context, repo AISettingsRepositoryInterface, tenantID string) (*domain.AISettings, error) {
	settings, err := repo.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrSettingsNotFound) {
			return domain.DefaultAISettings(tenantID), nil
		}
		return nil, err
	}
	return settings, nil
}
