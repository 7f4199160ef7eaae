package testutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgUser     = "askbase"
	pgPassword = "askbase"
	pgDatabase = "askbase"

	// RustFSCredential is both the access key and the secret of the test store.
	RustFSCredential = "rustfsadmin"
)

// startContainer runs req, removes it when t finishes and returns the host
// and mapped port of port.
func startContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port string) (string, string) {
	t.Helper()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if c != nil {
		t.Cleanup(func() { _ = testcontainers.TerminateContainer(c) })
	}
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("%s host: %v", req.Image, err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("%s port %s: %v", req.Image, port, err)
	}
	return host, mapped.Port()
}

// PostgresContainer is a pgvector-enabled PostgreSQL owned by a test
type PostgresContainer struct {
	Host string
	Port string
}

func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:0.8.1-pg18",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgUser,
			"POSTGRES_PASSWORD": pgPassword,
			"POSTGRES_DB":       pgDatabase,
		},
		// The entrypoint restarts the server once after init.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")

	return &PostgresContainer{Host: host, Port: port}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", pgUser, pgPassword, pc.Host, pc.Port, pgDatabase)
}

// RustFSContainer is an S3-compatible object store
type RustFSContainer struct {
	endpoint string
}

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "rustfs/rustfs:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSCredential,
			"RUSTFS_SECRET_KEY": RustFSCredential,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000/tcp")

	return &RustFSContainer{endpoint: "http://" + host + ":" + port}
}

func (rc *RustFSContainer) Endpoint() string {
	return rc.endpoint
}

// NewRabbitMQContainer starts a broker and returns its AMQP URL.
func NewRabbitMQContainer(ctx context.Context, t *testing.T) string {
	host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:4-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(60 * time.Second),
	}, "5672/tcp")

	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port)
}

// NewTestPool migrates the database in pc with the files in migrationsDir
// and returns a pool that is closed when t finishes.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	if err := migrateUp(pc.ConnectionString(), migrationsDir); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, pc.ConnectionString())
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	deadline := time.Now().Add(10 * time.Second)
	for {
		err := pool.Ping(ctx)
		if err == nil {
			return pool
		}
		if time.Now().After(deadline) {
			t.Fatalf("ping postgres: %v", err)
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func migrateUp(databaseURL, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+abs, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
