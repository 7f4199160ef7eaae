// Package tenant carries the per-request tenant identity through context.
package tenant

import (
	"context"

	"github.com/cloo-solutions/askbase/internal/domain"
)

type contextKey struct{}

// WithTenant returns a copy of ctx scoped to tenantID.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, contextKey{}, tenantID)
}

// FromContext returns the tenant in scope, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Require returns the tenant in scope or domain.ErrTenantNotSet.
func Require(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", domain.ErrTenantNotSet
	}
	return id, nil
}
