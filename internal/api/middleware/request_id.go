package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const requestInfoKey contextKey = "request_info"

// requestInfo is shared by pointer so outer middleware can read what inner
// middleware learned, such as the authenticated tenant.
type requestInfo struct {
	ID       string
	TenantID string
}

// RequestID injects a request ID into context and response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestInfoKey, &requestInfo{ID: requestID})
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID from context.
func GetRequestID(ctx context.Context) string {
	if info := getRequestInfo(ctx); info != nil {
		return info.ID
	}
	return ""
}

// requestTenant returns the tenant authenticated further down the chain
func requestTenant(ctx context.Context) string {
	if info := getRequestInfo(ctx); info != nil {
		return info.TenantID
	}
	return ""
}

func getRequestInfo(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return info
}
