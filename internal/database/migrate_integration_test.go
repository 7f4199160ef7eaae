//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/cloo-solutions/askbase/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMigrateAndConnect(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	logger := zaptest.NewLogger(t)
	require.NoError(t, Migrate(pc.ConnectionString(), "file://../../migrations", logger))
	require.NoError(t, Migrate(pc.ConnectionString(), "file://../../migrations", logger))

	pool, err := NewPool(ctx, Config{URL: pc.ConnectionString(), MaxConns: 4})
	require.NoError(t, err)
	defer pool.Close()

	for _, table := range []string{"document_chunks", "answer_cache", "chat_messages"} {
		var exists bool
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&exists))
		assert.True(t, exists, table)
	}
}

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), Config{URL: "://not-a-url"})
	assert.Error(t, err)
}
