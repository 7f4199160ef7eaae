//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/askbase/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	return testutil.NewTestPool(ctx, t, testutil.NewPostgresContainer(ctx, t), "../../migrations")
}
