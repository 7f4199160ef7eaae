package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/domain"
)

type AnswerService interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
	TopQuestions(ctx context.Context, limit int) ([]*domain.AnswerCacheEntry, error)
}

type AskHandler struct {
	svc AnswerService
}

func NewAskHandler(svc AnswerService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Question string `json:"question"`
}

type SourceChunk struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
}

type AskResponse struct {
	Question      string        `json:"question"`
	Answer        string        `json:"answer"`
	Source        string        `json:"source"`
	TokensUsed    int           `json:"tokens_used"`
	CacheHits     int           `json:"cache_hits"`
	Sources       []SourceChunk `json:"sources"`
	QuotaExceeded bool          `json:"quota_exceeded,omitempty"`
}

// Ask answers a question. An answer that pushed the tenant past its hard
// limit is still delivered, flagged with quota_exceeded; later requests
// are then rejected by the quota gate.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.svc.Ask(r.Context(), req.Question)
	quotaExceeded := errors.Is(err, domain.ErrQuotaExceeded) && answer != nil
	if err != nil && !quotaExceeded {
		api.HandleError(w, r, err)
		return
	}

	sources := make([]SourceChunk, len(answer.Chunks))
	for i, c := range answer.Chunks {
		sources[i] = SourceChunk{
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			Distance:   c.Distance,
		}
	}

	if quotaExceeded {
		w.Header().Set("X-Quota-Exceeded", "true")
	}
	api.Success(w, http.StatusOK, AskResponse{
		Question:      answer.Question,
		Answer:        answer.Text,
		Source:        string(answer.Source),
		TokensUsed:    answer.TokensUsed,
		CacheHits:     answer.CacheHits,
		Sources:       sources,
		QuotaExceeded: quotaExceeded,
	})
}
