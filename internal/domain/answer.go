package domain

import "time"

// AnswerSource names the funnel stage that produced an answer
type AnswerSource string

const (
	AnswerSourceQuickReply      AnswerSource = "quick_reply"
	AnswerSourceCache           AnswerSource = "cache"
	AnswerSourceNoKnowledgeBase AnswerSource = "no_knowledge_base"
	AnswerSourceGenerated       AnswerSource = "generated"
)

// InsufficientKnowledgeAnswer is returned when the tenant has nothing to
// retrieve from.
const InsufficientKnowledgeAnswer = "Não encontrei base de conhecimento suficiente para responder à sua pergunta."

// AnswerCacheEntry is unique per (tenant, normalized question).
type AnswerCacheEntry struct {
	ID                 string
	TenantID           string
	QuestionNormalized string
	Answer             string
	Hits               int
	TokensSaved        int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Answer is the outcome of resolving one question.
type Answer struct {
	Question   string
	Normalized string
	Text       string
	Source     AnswerSource
	TokensUsed int
	CacheHits  int
	Chunks     []ScoredChunk
}
