package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/telemetry"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors, including wrapped ones, to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeTenantNotSet:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists, domain.ErrCodeInvalidOperation:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	case domain.ErrCodePaymentRequired:
		return http.StatusPaymentRequired
	case domain.ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.ErrCodeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the client-facing text for err. Causes stay server-side.
func ErrorMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && domainErr.Code != domain.ErrCodeInternalError {
		return domainErr.Message
	}
	return "internal server error"
}

// HandleError writes an appropriate error response based on the error type.
// Server-side failures are reported to Sentry.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status := DomainErrorToHTTP(err)
	if status >= http.StatusInternalServerError {
		telemetry.CaptureError(r.Context(), err)
	}
	Error(w, status, ErrorMessage(err))
}
