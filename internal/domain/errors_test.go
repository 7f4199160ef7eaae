package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("ask: %w", ErrQuotaExceeded.WithCause(errors.New("limit 10")))

	assert.True(t, errors.Is(wrapped, ErrQuotaExceeded))
	assert.False(t, errors.Is(wrapped, ErrNoActiveSubscription))
	assert.Equal(t, ErrCodeQuotaExceeded, CodeOf(wrapped))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "[NOT_FOUND] document not found", ErrDocumentNotFound.Error())
	assert.Equal(t, "[PROVIDER_ERROR] embedding provider failed: boom", ErrEmbeddingProvider.WithCause(errors.New("boom")).Error())
}
