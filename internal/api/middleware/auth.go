package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/tenant"
)

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// APIKeyAuth resolves the bearer key to a tenant and scopes the request to it.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			tenantID, err := validator.ValidateAPIKey(r.Context(), strings.TrimSpace(token))
			switch {
			case errors.Is(err, domain.ErrAPIKeyRevoked):
				api.Error(w, http.StatusUnauthorized, "api key has been revoked")
				return
			case domain.CodeOf(err) == domain.ErrCodeUnauthorized:
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			case err != nil:
				api.HandleError(w, r, err)
				return
			}

			if info := getRequestInfo(r.Context()); info != nil {
				info.TenantID = tenantID
			}
			next.ServeHTTP(w, r.WithContext(tenant.WithTenant(r.Context(), tenantID)))
		})
	}
}
