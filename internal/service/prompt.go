package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/openai"
)

const contextSeparator = "\n\n"

// systemPrompt renders the tenant's assistant settings.
func systemPrompt(settings *domain.AISettings) string {
	s := settings.WithDefaults()

	var rules string
	if len(s.SecurityRules) > 0 {
		rules = " Regras de segurança: " + strings.Join(s.SecurityRules, " | ") + "."
	}

	return fmt.Sprintf("Você é o assistente de conhecimento da empresa. Tom: %s. Idioma: %s. Detalhe: %s.%s",
		s.Tone, s.Language, s.DetailLevel, rules)
}

// buildMessages assembles the system and user turns for a retrieved context.
func buildMessages(settings *domain.AISettings, chunks []domain.ScoredChunk, question string) []openai.Message {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}

	return []openai.Message{
		{Role: openai.RoleSystem, Content: systemPrompt(settings)},
		{Role: openai.RoleUser, Content: "Contexto:\n" + strings.Join(parts, contextSeparator) + "\n\nPergunta: " + question},
	}
}

// buildChatMessages puts the system prompt ahead of the replayed history.
func buildChatMessages(settings *domain.AISettings, history []*domain.ChatMessage) []openai.Message {
	messages := make([]openai.Message, 0, len(history)+1)
	messages = append(messages, openai.Message{Role: openai.RoleSystem, Content: systemPrompt(settings)})
	for _, m := range history {
		role := openai.RoleUser
		if m.Role == domain.ChatRoleAssistant {
			role = openai.RoleAssistant
		}
		messages = append(messages, openai.Message{Role: role, Content: m.Content})
	}
	return messages
}
