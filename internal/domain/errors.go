package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by code and message so that wrapped copies
// created with WithCause still compare equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCause returns a copy of the error carrying an underlying cause
func (e *DomainError) WithCause(err error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Err: err}
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeTenantNotSet     = "TENANT_NOT_SET"
	ErrCodeProvider         = "PROVIDER_ERROR"
	ErrCodeQuotaExceeded    = "QUOTA_EXCEEDED"
	ErrCodePaymentRequired  = "PAYMENT_REQUIRED"
)

// Validation errors
var (
	ErrInvalidDocumentStatus     = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
	ErrUnsupportedFileType       = NewDomainError(ErrCodeValidation, "unsupported file type")
	ErrFileTooLarge              = NewDomainError(ErrCodeValidation, "file exceeds maximum upload size")
	ErrEmptyFile                 = NewDomainError(ErrCodeValidation, "file is empty")
	ErrEmptyQuestion             = NewDomainError(ErrCodeValidation, "question is required")
	ErrEmptyMessage              = NewDomainError(ErrCodeValidation, "message is required")
	ErrInvalidChunkConfig        = NewDomainError(ErrCodeValidation, "chunk overlap must be >= 0 and smaller than chunk size")
	ErrUndecodableText           = NewDomainError(ErrCodeValidation, "text encoding could not be detected")
)

// Not found errors
var (
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound     = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrTenantNotFound    = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrPlanNotFound      = NewDomainError(ErrCodeNotFound, "plan not found")
	ErrAPIKeyNotFound    = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrUsageNotFound     = NewDomainError(ErrCodeNotFound, "usage not found")
	ErrSettingsNotFound  = NewDomainError(ErrCodeNotFound, "ai settings not found")
	ErrStoredFileMissing = NewDomainError(ErrCodeNotFound, "stored file not found")
	ErrChatNotFound      = NewDomainError(ErrCodeNotFound, "chat not found")
)

// Already exists errors
var (
	ErrTenantAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrPlanAlreadyExists   = NewDomainError(ErrCodeAlreadyExists, "plan already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrTenantNotSet  = NewDomainError(ErrCodeTenantNotSet, "no tenant in scope")
)

// Operation errors
var (
	ErrDocumentBusy      = NewDomainError(ErrCodeInvalidOperation, "document is already being processed")
	ErrNoContentToChunk  = NewDomainError(ErrCodeInvalidOperation, "document has no text after normalization")
	ErrStorageOperation  = NewDomainError(ErrCodeInternalError, "storage operation failed")
	ErrQueueUnavailable  = NewDomainError(ErrCodeInternalError, "document queue is not configured")
	ErrEmbeddingProvider = NewDomainError(ErrCodeProvider, "embedding provider failed")
	ErrChatProvider      = NewDomainError(ErrCodeProvider, "completion provider failed")
)

// Billing errors
var (
	ErrQuotaExceeded        = NewDomainError(ErrCodeQuotaExceeded, "monthly token limit exceeded")
	ErrNoActiveSubscription = NewDomainError(ErrCodePaymentRequired, "no active subscription")
)
