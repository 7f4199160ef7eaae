package domain

import (
	"fmt"
	"time"
)

// Defaults applied when a tenant has not configured its assistant.
const (
	DefaultTone        = "direto"
	DefaultLanguage    = "pt-BR"
	DefaultDetailLevel = "medio"
)

const (
	maxSecurityRules     = 20
	maxSecurityRuleRunes = 200
)

// AISettings configures the system prompt for a tenant
type AISettings struct {
	TenantID      string
	Tone          string
	Language      string
	DetailLevel   string
	SecurityRules []string
	UpdatedAt     time.Time
}

// DefaultAISettings returns the settings used when none are stored
func DefaultAISettings(tenantID string) *AISettings {
	return &AISettings{
		TenantID:    tenantID,
		Tone:        DefaultTone,
		Language:    DefaultLanguage,
		DetailLevel: DefaultDetailLevel,
	}
}

// WithDefaults fills every empty option with its default.
func (s *AISettings) WithDefaults() *AISettings {
	out := *s
	if out.Tone == "" {
		out.Tone = DefaultTone
	}
	if out.Language == "" {
		out.Language = DefaultLanguage
	}
	if out.DetailLevel == "" {
		out.DetailLevel = DefaultDetailLevel
	}
	return &out
}

// IsValidDetailLevel checks the recognised detail levels
func IsValidDetailLevel(level string) bool {
	switch level {
	case "curto", "medio", "detalhado":
		return true
	}
	return false
}

// ValidateAISettings validates an AISettings instance
func ValidateAISettings(s *AISettings) error {
	if s == nil {
		return fmt.Errorf("ai settings cannot be nil")
	}
	if s.TenantID == "" {
		return fmt.Errorf("ai settings TenantID is required")
	}
	if s.DetailLevel != "" && !IsValidDetailLevel(s.DetailLevel) {
		return fmt.Errorf("ai settings DetailLevel is invalid: %s", s.DetailLevel)
	}
	if len(s.SecurityRules) > maxSecurityRules {
		return fmt.Errorf("ai settings allow at most %d security rules", maxSecurityRules)
	}
	for _, rule := range s.SecurityRules {
		if len([]rune(rule)) > maxSecurityRuleRunes {
			return fmt.Errorf("ai settings security rule exceeds %d characters", maxSecurityRuleRunes)
		}
	}
	return nil
}
