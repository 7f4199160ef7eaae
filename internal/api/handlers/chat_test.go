package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Create(ctx context.Context, input service.CreateChatInput) (*domain.Chat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatService) List(ctx context.Context, limit int) ([]*domain.Chat, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chat), args.Error(1)
}

func (m *MockChatService) Messages(ctx context.Context, chatID string, limit int) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, chatID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

func (m *MockChatService) Send(ctx context.Context, chatID, content string) (*service.ChatReply, error) {
	args := m.Called(ctx, chatID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatReply), args.Error(1)
}

var chatTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func assistantReply() *service.ChatReply {
	return &service.ChatReply{
		Message: &domain.ChatMessage{
			ID: "msg-2", ChatID: "chat-1", Role: domain.ChatRoleAssistant,
			Content: "Sim, em até três períodos.", Tokens: 57, CreatedAt: chatTime,
		},
		TokensUsed: 57,
	}
}

func TestChatHandler_Create(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Create", mock.Anything, service.CreateChatInput{Title: "Férias"}).
		Return(&domain.Chat{ID: "chat-1", Title: "Férias", CreatedAt: chatTime, UpdatedAt: chatTime}, nil)

	req := httptest.NewRequest(http.MethodPost, "/chats", strings.NewReader(`{"title":"Férias"}`))
	w := httptest.NewRecorder()
	NewChatHandler(svc).Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w.Body.Bytes())
	assert.Equal(t, "chat-1", data["id"])
	assert.Equal(t, "2026-03-15T12:00:00Z", data["created_at"])
}

func TestChatHandler_Create_EmptyBody(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Create", mock.Anything, service.CreateChatInput{}).Return(&domain.Chat{ID: "chat-1"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/chats", nil)
	w := httptest.NewRecorder()
	NewChatHandler(svc).Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestChatHandler_Send(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Send", mock.Anything, "chat-1", "E posso dividir?").Return(assistantReply(), nil)

	req := httptest.NewRequest(http.MethodPost, "/chats/chat-1/messages", strings.NewReader(`{"message":"E posso dividir?"}`))
	w := httptest.NewRecorder()
	NewChatHandler(svc).Send(w, withURLParam(req, "id", "chat-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Quota-Exceeded"))
	data := decodeData(t, w.Body.Bytes())
	assert.EqualValues(t, 57, data["tokens_used"])
	assert.NotContains(t, data, "quota_exceeded")
	msg := data["message"].(map[string]any)
	assert.Equal(t, "assistant", msg["role"])
	assert.Equal(t, "Sim, em até três períodos.", msg["content"])
}

func TestChatHandler_Send_QuotaExceeded(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Send", mock.Anything, "chat-1", "oi").Return(assistantReply(), domain.ErrQuotaExceeded)

	req := httptest.NewRequest(http.MethodPost, "/chats/chat-1/messages", strings.NewReader(`{"message":"oi"}`))
	w := httptest.NewRecorder()
	NewChatHandler(svc).Send(w, withURLParam(req, "id", "chat-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Quota-Exceeded"))
	assert.Equal(t, true, decodeData(t, w.Body.Bytes())["quota_exceeded"])
}

func TestChatHandler_Send_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"empty message", `{"message":""}`, domain.ErrEmptyMessage, http.StatusBadRequest},
		{"unknown chat", `{"message":"oi"}`, domain.ErrChatNotFound, http.StatusNotFound},
		{"provider down", `{"message":"oi"}`, domain.ErrChatProvider, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockChatService)
			svc.On("Send", mock.Anything, "chat-1", mock.Anything).Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/chats/chat-1/messages", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			NewChatHandler(svc).Send(w, withURLParam(req, "id", "chat-1"))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestChatHandler_Messages(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Messages", mock.Anything, "chat-1", 5).Return([]*domain.ChatMessage{
		{ID: "msg-1", Role: domain.ChatRoleUser, Content: "oi", Tokens: 1, CreatedAt: chatTime},
		assistantReply().Message,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/chats/chat-1/messages?limit=5", nil)
	w := httptest.NewRecorder()
	NewChatHandler(svc).Messages(w, withURLParam(req, "id", "chat-1"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []ChatMessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "user", resp.Data[0].Role)
	assert.Equal(t, "assistant", resp.Data[1].Role)
}

func TestChatHandler_List_InvalidLimit(t *testing.T) {
	svc := new(MockChatService)

	req := httptest.NewRequest(http.MethodGet, "/chats?limit=-1", nil)
	w := httptest.NewRecorder()
	NewChatHandler(svc).List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
