package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/telemetry"
	"github.com/cloo-solutions/askbase/internal/tenant"
	"github.com/cloo-solutions/askbase/internal/textproc"
)

const (
	defaultChatPageSize = 20
	maxChatPageSize     = 100
)

// ChatService runs metered multi-turn conversations. Unlike Ask it does not
// consult the cache or the knowledge base; the model sees the tenant's
// system prompt and the latest messages of the chat.
type ChatService struct {
	chats      ChatRepositoryInterface
	completion CompletionClient
	settings   AISettingsRepositoryInterface
	metering   UsageRecorder
	uuidGen    UUIDGenerator
}

func NewChatService(
	chats ChatRepositoryInterface,
	completion CompletionClient,
	settings AISettingsRepositoryInterface,
	metering UsageRecorder,
	uuidGen UUIDGenerator,
) *ChatService {
	return &ChatService{
		chats:      chats,
		completion: completion,
		settings:   settings,
		metering:   metering,
		uuidGen:    uuidGen,
	}
}

type CreateChatInput struct {
	Title   string
	OwnerID string
}

// ChatReply is the assistant turn produced by Send
type ChatReply struct {
	Message    *domain.ChatMessage
	TokensUsed int
}

func (s *ChatService) Create(ctx context.Context, input CreateChatInput) (*domain.Chat, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	now := utcNow()
	chat := &domain.Chat{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		OwnerID:   strings.TrimSpace(input.OwnerID),
		Title:     strings.TrimSpace(input.Title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := domain.ValidateChat(chat); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}

	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) List(ctx context.Context, limit int) ([]*domain.Chat, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultChatPageSize
	}
	return s.chats.List(ctx, tenantID, min(limit, maxChatPageSize))
}

// Messages returns the latest messages of a chat, oldest first.
func (s *ChatService) Messages(ctx context.Context, chatID string, limit int) ([]*domain.ChatMessage, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.chats.GetByID(ctx, tenantID, chatID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultChatPageSize
	}
	return s.chats.RecentMessages(ctx, tenantID, chatID, min(limit, maxChatPageSize))
}

// Send stores the user's message, replays the last ChatHistoryLimit messages
// to the model, stores its reply and meters the completion. As with Ask, a
// reply that trips the hard limit is returned together with ErrQuotaExceeded.
func (s *ChatService) Send(ctx context.Context, chatID, content string) (*ChatReply, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}

	ctx, span := telemetry.StartSpan(ctx, "ChatService.Send", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "chat_message",
	})
	defer span.End()

	if _, err := s.chats.GetByID(ctx, tenantID, chatID); err != nil {
		return nil, err
	}

	userMsg := s.newMessage(tenantID, chatID, domain.ChatRoleUser, content, textproc.EstimateTokens(content))
	if err := s.chats.AddMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	history, err := s.chats.RecentMessages(ctx, tenantID, chatID, domain.ChatHistoryLimit)
	if err != nil {
		return nil, err
	}

	settings, err := settingsOrDefault(ctx, s.settings, tenantID)
	if err != nil {
		return nil, err
	}

	completion, err := s.completion.Complete(ctx, buildChatMessages(settings, history))
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrChatProvider.WithCause(err)
	}

	if strings.TrimSpace(completion.Text) == "" {
		return nil, domain.ErrChatProvider.WithCause(errors.New("empty completion"))
	}

	tokens := completion.Tokens
	if tokens <= 0 {
		tokens = textproc.EstimateTokens(completion.Text)
	}

	reply := s.newMessage(tenantID, chatID, domain.ChatRoleAssistant, completion.Text, tokens)
	if err := s.chats.AddMessage(ctx, reply); err != nil {
		return nil, err
	}

	out := &ChatReply{Message: reply, TokensUsed: tokens}
	if _, err := s.metering.RecordUsage(ctx, tokens); err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			return out, err
		}
		return nil, err
	}
	return out, nil
}

func (s *ChatService) newMessage(tenantID, chatID string, role domain.ChatRole, content string, tokens int) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Tokens:    tokens,
		CreatedAt: utcNow(),
	}
}
