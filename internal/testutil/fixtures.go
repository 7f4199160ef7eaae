package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedTenant inserts a tenant with a unique name and returns its id
func SeedTenant(ctx context.Context, t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)`,
		id, "tenant-"+id[:8], time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}
	return id
}

// SeedDocument inserts a processed text document for tenantID and returns its id
func SeedDocument(ctx context.Context, t *testing.T, pool *pgxpool.Pool, tenantID, title string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := pool.Exec(ctx,
		`INSERT INTO documents (id, tenant_id, title, original_filename, path, mime_type, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 'text/plain', 'processed', $6, $6)`,
		id, tenantID, title, title+".txt", "knowledge/tenant_"+tenantID+"/"+id+"/original.txt", now,
	)
	if err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}
	return id
}

// UnitVector returns a vector of length dims with 1 at position i
func UnitVector(dims, i int) []float32 {
	v := make([]float32, dims)
	v[i%dims] = 1
	return v
}
