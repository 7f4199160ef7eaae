package tenant

import (
	"context"
	"sync"
	"testing"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequire(t *testing.T) {
	t.Run("fails fast without a tenant", func(t *testing.T) {
		_, err := Require(context.Background())
		assert.ErrorIs(t, err, domain.ErrTenantNotSet)
	})

	t.Run("empty id is not a tenant", func(t *testing.T) {
		_, err := Require(WithTenant(context.Background(), ""))
		assert.ErrorIs(t, err, domain.ErrTenantNotSet)
	})

	t.Run("returns scoped tenant", func(t *testing.T) {
		id, err := Require(WithTenant(context.Background(), "tenant-1"))
		require.NoError(t, err)
		assert.Equal(t, "tenant-1", id)
	})
}

func TestWithTenant_DoesNotLeakBetweenRequests(t *testing.T) {
	base := context.Background()
	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d"}
	got := make([]string, len(ids))

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			ctx := WithTenant(base, id)
			got[i], _ = FromContext(ctx)
		}(i, id)
	}
	wg.Wait()

	assert.Equal(t, ids, got)
	_, ok := FromContext(base)
	assert.False(t, ok)
}
