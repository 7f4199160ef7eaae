package domain

import (
	"fmt"
	"time"
)

// ChatHistoryLimit is how many stored messages are replayed to the model.
const ChatHistoryLimit = 10

const maxChatTitleRunes = 200

// ChatRole is the author of a chat message
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

func (r ChatRole) Valid() bool {
	return r == ChatRoleUser || r == ChatRoleAssistant
}

// Chat is a multi-turn conversation owned by a tenant
type Chat struct {
	ID        string
	TenantID  string
	OwnerID   string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one turn of a chat. Tokens is the estimate for user turns
// and the metered completion cost for assistant turns.
type ChatMessage struct {
	ID        string
	TenantID  string
	ChatID    string
	Role      ChatRole
	Content   string
	Tokens    int
	CreatedAt time.Time
}

func ValidateChat(c *Chat) error {
	if c == nil {
		return fmt.Errorf("chat cannot be nil")
	}
	if c.ID == "" || c.TenantID == "" {
		return fmt.Errorf("chat ID and TenantID are required")
	}
	if len([]rune(c.Title)) > maxChatTitleRunes {
		return fmt.Errorf("chat title exceeds %d characters", maxChatTitleRunes)
	}
	return nil
}

func ValidateChatMessage(m *ChatMessage) error {
	if m == nil {
		return fmt.Errorf("chat message cannot be nil")
	}
	if m.ChatID == "" || m.TenantID == "" {
		return fmt.Errorf("chat message ChatID and TenantID are required")
	}
	if !m.Role.Valid() {
		return fmt.Errorf("chat message role is invalid: %s", m.Role)
	}
	if m.Content == "" {
		return ErrEmptyMessage
	}
	return nil
}
