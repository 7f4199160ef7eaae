package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// Sentry starts a transaction per request on a cloned hub and tags it with the
// request id and, once authentication has run, the tenant. Panics are reported
// and re-raised for the recoverer. Without an initialized client it is a no-op
// apart from the bookkeeping.
func Sentry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if sentryTrace := r.Header.Get(sentry.SentryTraceHeader); sentryTrace != "" {
			options = append(options, sentry.ContinueFromHeaders(sentryTrace, r.Header.Get(sentry.SentryBaggageHeader)))
		}

		ctx := sentry.SetHubOnContext(r.Context(), hub)
		transaction := sentry.StartTransaction(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path), options...)
		defer transaction.Finish()
		r = r.WithContext(transaction.Context())

		hub.Scope().SetRequest(r)
		if requestID := GetRequestID(r.Context()); requestID != "" {
			hub.Scope().SetTag("request_id", requestID)
			transaction.SetTag("request_id", requestID)
		}

		defer func() {
			if err := recover(); err != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				panic(err)
			}
		}()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		transaction.Status = httpStatusToSpanStatus(status)
		transaction.SetData("http.response.status_code", status)

		if tenantID := requestTenant(r.Context()); tenantID != "" {
			hub.Scope().SetTag("tenant_id", tenantID)
			transaction.SetTag("tenant_id", tenantID)
		}
	})
}

func httpStatusToSpanStatus(status int) sentry.SpanStatus {
	switch {
	case status >= 200 && status < 300:
		return sentry.SpanStatusOK
	case status == http.StatusUnauthorized:
		return sentry.SpanStatusUnauthenticated
	case status == http.StatusPaymentRequired, status == http.StatusForbidden:
		return sentry.SpanStatusPermissionDenied
	case status == http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case status == http.StatusConflict:
		return sentry.SpanStatusAlreadyExists
	case status == http.StatusTooManyRequests:
		return sentry.SpanStatusResourceExhausted
	case status == 499:
		return sentry.SpanStatusCanceled
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	case status == http.StatusGatewayTimeout:
		return sentry.SpanStatusDeadlineExceeded
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
