package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/go-chi/chi/v5"
)

type ChatService interface {
	Create(ctx context.Context, input service.CreateChatInput) (*domain.Chat, error)
	List(ctx context.Context, limit int) ([]*domain.Chat, error)
	Messages(ctx context.Context, chatID string, limit int) ([]*domain.ChatMessage, error)
	Send(ctx context.Context, chatID, content string) (*service.ChatReply, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type CreateChatRequest struct {
	Title   string `json:"title"`
	OwnerID string `json:"owner_id"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	OwnerID   string `json:"owner_id,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ChatMessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Tokens    int    `json:"tokens"`
	CreatedAt string `json:"created_at"`
}

type SendMessageResponse struct {
	Message       ChatMessageResponse `json:"message"`
	TokensUsed    int                 `json:"tokens_used"`
	QuotaExceeded bool                `json:"quota_exceeded,omitempty"`
}

func chatToResponse(c *domain.Chat) ChatResponse {
	return ChatResponse{
		ID:        c.ID,
		Title:     c.Title,
		OwnerID:   c.OwnerID,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func chatMessageToResponse(m *domain.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Tokens:    m.Tokens,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	chat, err := h.svc.Create(r.Context(), service.CreateChatInput{Title: req.Title, OwnerID: req.OwnerID})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, chatToResponse(chat))
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	chats, err := h.svc.List(r.Context(), limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := make([]ChatResponse, len(chats))
	for i, c := range chats {
		resp[i] = chatToResponse(c)
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	msgs, err := h.svc.Messages(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := make([]ChatMessageResponse, len(msgs))
	for i, m := range msgs {
		resp[i] = chatMessageToResponse(m)
	}
	api.Success(w, http.StatusOK, resp)
}

// Send posts a user message and answers with the assistant's reply. Like
// /ask, a reply that crossed the hard limit is delivered with quota_exceeded.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.svc.Send(r.Context(), chi.URLParam(r, "id"), req.Message)
	quotaExceeded := errors.Is(err, domain.ErrQuotaExceeded) && reply != nil
	if err != nil && !quotaExceeded {
		api.HandleError(w, r, err)
		return
	}

	if quotaExceeded {
		w.Header().Set("X-Quota-Exceeded", "true")
	}
	api.Success(w, http.StatusOK, SendMessageResponse{
		Message:       chatMessageToResponse(reply.Message),
		TokensUsed:    reply.TokensUsed,
		QuotaExceeded: quotaExceeded,
	})
}
