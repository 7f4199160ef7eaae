package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/askbase/internal/config"
	"github.com/cloo-solutions/askbase/internal/database"
	"github.com/cloo-solutions/askbase/internal/repository"
	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// adminEnv is what every provisioning command needs
type adminEnv struct {
	pool    *pgxpool.Pool
	tenants *repository.TenantRepository
	keys    *repository.APIKeyRepository
	auth    *service.AuthService
}

func openAdminEnv(ctx context.Context) (*adminEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		return nil, err
	}

	tenants := repository.NewTenantRepository(pool)
	keys := repository.NewAPIKeyRepository(pool)
	return &adminEnv{
		pool:    pool,
		tenants: tenants,
		keys:    keys,
		auth:    service.NewAuthService(tenants, repository.NewPlanRepository(pool), keys, &service.DefaultUUIDGenerator{}),
	}, nil
}

func (e *adminEnv) Close() {
	e.pool.Close()
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
