package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
)

func TestSentry_PassesThroughWithoutClient(t *testing.T) {
	var hubSet bool
	handler := Sentry(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hubSet = sentry.GetHubFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusAccepted)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, hubSet)
}

func TestSentry_RepanicsAfterRecording(t *testing.T) {
	handler := Sentry(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestHTTPStatusToSpanStatus(t *testing.T) {
	tests := map[int]sentry.SpanStatus{
		200: sentry.SpanStatusOK,
		400: sentry.SpanStatusInvalidArgument,
		401: sentry.SpanStatusUnauthenticated,
		402: sentry.SpanStatusPermissionDenied,
		404: sentry.SpanStatusNotFound,
		409: sentry.SpanStatusAlreadyExists,
		429: sentry.SpanStatusResourceExhausted,
		500: sentry.SpanStatusInternalError,
		502: sentry.SpanStatusUnavailable,
		504: sentry.SpanStatusDeadlineExceeded,
	}
	for code, want := range tests {
		assert.Equal(t, want, httpStatusToSpanStatus(code), "status %d", code)
	}
}
