package domain

import (
	"encoding/hex"
	"strings"
	"time"
)

// APIKeyPrefix marks askbase tokens so malformed ones are rejected before a lookup.
const APIKeyPrefix = "akb_"

// apiKeySecretLen is the hex length of the random part of a token.
const apiKeySecretLen = 64

// APIKey authenticates requests on behalf of its tenant. The plaintext token
// is shown once at creation and only its hash is persisted.
type APIKey struct {
	ID        string
	TenantID  string
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

func NewAPIKey(id, tenantID, name, keyHash string, createdAt time.Time, revokedAt *time.Time) *APIKey {
	return &APIKey{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		KeyHash:   keyHash,
		CreatedAt: createdAt,
		RevokedAt: revokedAt,
	}
}

func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// Authenticate returns the owning tenant, or ErrAPIKeyRevoked.
func (a *APIKey) Authenticate() (string, error) {
	if a.IsRevoked() {
		return "", ErrAPIKeyRevoked
	}
	return a.TenantID, nil
}

// ValidateAPIKey checks that every stored field of a is set.
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return NewDomainError(ErrCodeValidation, "api key cannot be nil")
	}

	for _, f := range [...]struct{ name, value string }{
		{"ID", a.ID},
		{"TenantID", a.TenantID},
		{"Name", a.Name},
		{"KeyHash", a.KeyHash},
	} {
		if strings.TrimSpace(f.value) == "" {
			return NewDomainError(ErrCodeValidation, "api key "+f.name+" is required")
		}
	}
	return nil
}

// WellFormedAPIToken reports whether token has the prefix followed by
// apiKeySecretLen hex characters.
func WellFormedAPIToken(token string) bool {
	secret, ok := strings.CutPrefix(token, APIKeyPrefix)
	if !ok || len(secret) != apiKeySecretLen {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}
