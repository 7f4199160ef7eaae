package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/domain"
)

type QuotaChecker interface {
	CheckQuota(ctx context.Context) (*domain.QuotaStatus, error)
}

// QuotaGate rejects requests from tenants without an active subscription or
// over their monthly token limit. Reads pass through unchecked.
func QuotaGate(checker QuotaChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			status, err := checker.CheckQuota(r.Context())
			if status != nil {
				h := w.Header()
				h.Set("X-Quota-Limit", strconv.FormatInt(status.Limit, 10))
				h.Set("X-Quota-Remaining", strconv.FormatInt(status.Remaining, 10))
				h.Set("X-Quota-Reset", status.ResetDate.UTC().Format(time.RFC3339))
			}
			if err != nil {
				api.HandleError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
