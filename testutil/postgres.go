// Package testutil starts disposable PostgreSQL servers for integration tests.
package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var suppressedLogger = log.New(io.Discard, "", 0)

// postgresVersion reads PGMERGE_POSTGRES_VERSION, defaulting to 17.
func postgresVersion() string {
	if version := os.Getenv("PGMERGE_POSTGRES_VERSION"); version != "" {
		return version
	}
	return "17"
}

// ContainerInfo holds the connection details of a running test server.
type ContainerInfo struct {
	Container testcontainers.Container
	Host      string
	Port      int
	DSN       string
	DB        *sqlx.DB
}

// SetupPostgresContainer starts a server with database testdb. The test is
// skipped under -short.
func SetupPostgresContainer(ctx context.Context, t *testing.T) *ContainerInfo {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	container, err := postgres.Run(ctx,
		"postgres:"+postgresVersion()+"-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(suppressedLogger),
	)
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	// One connection, as in a reconciliation run.
	db.SetMaxOpenConns(1)

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	info := &ContainerInfo{
		Container: container,
		Host:      host,
		Port:      port.Int(),
		DSN:       dsn,
		DB:        db,
	}
	t.Cleanup(func() { info.Terminate(context.Background(), t) })
	return info
}

// Terminate closes the connection and stops the container.
func (ci *ContainerInfo) Terminate(ctx context.Context, t *testing.T) {
	ci.DB.Close()
	if err := ci.Container.Terminate(ctx); err != nil {
		t.Logf("Failed to terminate container: %v", err)
	}
}

// MustExec runs setup statements, failing the test on error.
func (ci *ContainerInfo) MustExec(ctx context.Context, t *testing.T, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		if _, err := ci.DB.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to execute %q: %v", stmt, err)
		}
	}
}
