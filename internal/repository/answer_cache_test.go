//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerCacheRepository_PutAndGet(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewAnswerCacheRepository(pool)
	tenantID := testutil.SeedTenant(ctx, t, pool)

	_, found, err := repo.Get(ctx, tenantID, "qual o horário?")
	require.NoError(t, err)
	assert.False(t, found)

	entry, err := repo.Put(ctx, tenantID, "qual o horário?", "Das 9h às 18h.", 40)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Hits)
	assert.Equal(t, 40, entry.TokensSaved)

	got, found, err := repo.Get(ctx, tenantID, "qual o horário?")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Das 9h às 18h.", got.Answer)

	hits, err := repo.IncrementHits(ctx, tenantID, got.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)

	again, err := repo.Put(ctx, tenantID, "qual o horário?", "outra resposta", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Hits)
	assert.Equal(t, "Das 9h às 18h.", again.Answer)
}

func TestAnswerCacheRepository_Put_Concurrent(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewAnswerCacheRepository(pool)
	tenantID := testutil.SeedTenant(ctx, t, pool)

	const askers = 20
	var wg sync.WaitGroup
	for range askers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Put(ctx, tenantID, "qual o prazo de reembolso?", "30 dias.", 25)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var rows int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM answer_cache WHERE tenant_id = $1`, tenantID).Scan(&rows))
	assert.Equal(t, 1, rows)

	entry, found, err := repo.Get(ctx, tenantID, "qual o prazo de reembolso?")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, askers, entry.Hits)
}

func TestAnswerCacheRepository_TenantScoped(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewAnswerCacheRepository(pool)
	tenantA := testutil.SeedTenant(ctx, t, pool)
	tenantB := testutil.SeedTenant(ctx, t, pool)

	entry, err := repo.Put(ctx, tenantA, "oi", "Olá!", 0)
	require.NoError(t, err)

	_, found, err := repo.Get(ctx, tenantB, "oi")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = repo.IncrementHits(ctx, tenantB, entry.ID)
	assert.Equal(t, domain.ErrCodeNotFound, domain.CodeOf(err))
}

func TestAnswerCacheRepository_TopQuestions(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewAnswerCacheRepository(pool)
	tenantID := testutil.SeedTenant(ctx, t, pool)

	for q, n := range map[string]int{"a": 1, "b": 3, "c": 2} {
		for range n {
			_, err := repo.Put(ctx, tenantID, q, "resposta "+q, 0)
			require.NoError(t, err)
		}
	}

	top, err := repo.TopQuestions(ctx, tenantID, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].QuestionNormalized)
	assert.Equal(t, 3, top[0].Hits)
	assert.Equal(t, "c", top[1].QuestionNormalized)
}

func TestAnswerCacheRepository_DeleteByAnswer(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewAnswerCacheRepository(pool)
	tenantID := testutil.SeedTenant(ctx, t, pool)
	other := testutil.SeedTenant(ctx, t, pool)

	_, err := repo.Put(ctx, tenantID, "q1", domain.InsufficientKnowledgeAnswer, 12)
	require.NoError(t, err)
	_, err = repo.Put(ctx, tenantID, "q2", domain.InsufficientKnowledgeAnswer, 12)
	require.NoError(t, err)
	_, err = repo.Put(ctx, tenantID, "q3", "resposta real", 12)
	require.NoError(t, err)
	_, err = repo.Put(ctx, other, "q1", domain.InsufficientKnowledgeAnswer, 12)
	require.NoError(t, err)

	n, err := repo.DeleteByAnswer(ctx, tenantID, domain.InsufficientKnowledgeAnswer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, found, err := repo.Get(ctx, other, "q1")
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = repo.Get(ctx, tenantID, "q3")
	require.NoError(t, err)
	assert.True(t, found)
}
