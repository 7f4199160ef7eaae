//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageRepository_Increment(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewUsageRepository(pool)
	tenantID := testutil.SeedTenant(ctx, t, pool)

	_, err := repo.GetMonth(ctx, tenantID, "2026-03")
	assert.ErrorIs(t, err, domain.ErrUsageNotFound)

	u, err := repo.Increment(ctx, tenantID, "2026-03", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.TokensUsed)
	assert.Equal(t, int64(1), u.RequestsCount)

	u, err = repo.Increment(ctx, tenantID, "2026-03", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.TokensUsed)
	assert.Equal(t, int64(2), u.RequestsCount)

	_, err = repo.Increment(ctx, tenantID, "2026-04", 5)
	require.NoError(t, err)

	march, err := repo.GetMonth(ctx, tenantID, "2026-03")
	require.NoError(t, err)
	assert.Equal(t, int64(100), march.TokensUsed)
}

func TestUsageRepository_Increment_Concurrent(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewUsageRepository(pool)
	tenantID := testutil.SeedTenant(ctx, t, pool)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Increment(ctx, tenantID, "2026-03", 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, err := repo.GetMonth(ctx, tenantID, "2026-03")
	require.NoError(t, err)
	assert.Equal(t, int64(200), u.TokensUsed)
	assert.Equal(t, int64(20), u.RequestsCount)
}

func TestPlanRepository_ActivePlan(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewPlanRepository(pool)
	tenantID := testutil.SeedTenant(ctx, t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	plan := &domain.Plan{ID: uuid.NewString(), Name: "pro", MonthlyTokenLimit: 1000, PriceCents: 4900, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, plan))
	assert.ErrorIs(t, repo.Create(ctx, &domain.Plan{ID: uuid.NewString(), Name: "pro", MonthlyTokenLimit: 1, CreatedAt: now}),
		domain.ErrPlanAlreadyExists)

	_, err := repo.GetActivePlan(ctx, tenantID, now)
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)

	require.NoError(t, repo.CreateSubscription(ctx, &domain.Subscription{
		ID: uuid.NewString(), TenantID: tenantID, PlanID: plan.ID, Status: domain.SubscriptionStatusActive,
		CurrentPeriodStart: now.AddDate(0, -2, 0), CurrentPeriodEnd: now.AddDate(0, -1, 0),
	}))
	_, err = repo.GetActivePlan(ctx, tenantID, now)
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)

	end := now.AddDate(0, 1, 0)
	require.NoError(t, repo.CreateSubscription(ctx, &domain.Subscription{
		ID: uuid.NewString(), TenantID: tenantID, PlanID: plan.ID, Status: domain.SubscriptionStatusActive,
		CurrentPeriodStart: now, CurrentPeriodEnd: end,
	}))

	active, err := repo.GetActivePlan(ctx, tenantID, now)
	require.NoError(t, err)
	assert.Equal(t, "pro", active.Plan.Name)
	assert.Equal(t, int64(1000), active.Plan.MonthlyTokenLimit)
	assert.True(t, end.Equal(active.Subscription.CurrentPeriodEnd))

	plans, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	_, err = repo.GetByName(ctx, "enterprise")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestBillingEventRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewBillingEventRepository(pool)
	tenantID := testutil.SeedTenant(ctx, t, pool)

	require.NoError(t, repo.Create(ctx, &domain.BillingEvent{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		EventType: domain.BillingEventOverageCharged,
		Payload:   map[string]any{"overage_tokens": 200, "amount_cents": 1, "month": "2026-03"},
		CreatedAt: time.Now().UTC(),
	}))

	events, err := repo.ListByTenant(ctx, tenantID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.BillingEventOverageCharged, events[0].EventType)
	assert.Equal(t, "2026-03", events[0].Payload["month"])
	assert.EqualValues(t, 200, events[0].Payload["overage_tokens"])
}

func TestAISettingsRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewAISettingsRepository(pool)
	tenantID := testutil.SeedTenant(ctx, t, pool)

	_, err := repo.Get(ctx, tenantID)
	assert.ErrorIs(t, err, domain.ErrSettingsNotFound)

	require.NoError(t, repo.Upsert(ctx, &domain.AISettings{TenantID: tenantID, Tone: "formal", UpdatedAt: time.Now().UTC()}))
	got, err := repo.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "formal", got.Tone)
	assert.Empty(t, got.Language)
	assert.Empty(t, got.SecurityRules)

	require.NoError(t, repo.Upsert(ctx, &domain.AISettings{
		TenantID: tenantID, Tone: "amigável", DetailLevel: "curto",
		SecurityRules: []string{"não cite valores"}, UpdatedAt: time.Now().UTC(),
	}))
	got, err = repo.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "amigável", got.Tone)
	assert.Equal(t, "curto", got.DetailLevel)
	assert.Equal(t, []string{"não cite valores"}, got.SecurityRules)
}
