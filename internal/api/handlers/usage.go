package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/service"
)

type UsageReader interface {
	MonthlyUsage(ctx context.Context) (*service.MonthlyUsage, error)
}

type UsageHandler struct {
	usage   UsageReader
	answers AnswerService
}

func NewUsageHandler(usage UsageReader, answers AnswerService) *UsageHandler {
	return &UsageHandler{usage: usage, answers: answers}
}

type TopQuestionResponse struct {
	Question    string `json:"question"`
	Hits        int    `json:"hits"`
	TokensSaved int    `json:"tokens_saved"`
	LastAskedAt string `json:"last_asked_at"`
}

func (h *UsageHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	usage, err := h.usage.MonthlyUsage(r.Context())
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, usage)
}

func (h *UsageHandler) TopQuestions(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	entries, err := h.answers.TopQuestions(r.Context(), limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := make([]TopQuestionResponse, len(entries))
	for i, e := range entries {
		resp[i] = TopQuestionResponse{
			Question:    e.QuestionNormalized,
			Hits:        e.Hits,
			TokensSaved: e.TokensSaved,
			LastAskedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	api.Success(w, http.StatusOK, resp)
}
