// Package pgtest points integration tests at a real Postgres. TEST_DATABASE
// names the database to use; without it a disposable container is started
// once per test process, and tests skip when that is not possible either.
package pgtest

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// DSN returns the connection string tests run against, skipping the test
// when no database can be had.
func DSN(t testing.TB) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE"); dsn != "" {
		return dsn
	}

	containerOnce.Do(func() {
		ctr, err := tcpostgres.Run(context.Background(), "postgres:16-alpine",
			tcpostgres.WithDatabase("restq_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			containerErr = err
			return
		}
		containerDSN, containerErr = ctr.ConnectionString(context.Background(), "sslmode=disable")
	})
	if containerErr != nil {
		t.Skipf("TEST_DATABASE not set and no container runtime: %v", containerErr)
	}
	return containerDSN
}

// ParseConfig returns a test connection config with notices logged through t.
func ParseConfig(t testing.TB) *pgx.ConnConfig {
	t.Helper()
	config, err := pgx.ParseConfig(DSN(t))
	require.NoError(t, err)

	config.OnNotice = func(_ *pgconn.PgConn, n *pgconn.Notice) {
		t.Logf("PostgreSQL %s: %s", n.Severity, n.Message)
	}
	return config
}

// Connect opens a connection to the test database and closes it when the
// test ends.
func Connect(ctx context.Context, t testing.TB) *pgx.Conn {
	t.Helper()
	conn, err := pgx.ConnectConfig(ctx, ParseConfig(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		Close(t, conn)
	})
	return conn
}

// Close closes a test connection.
func Close(t testing.TB, conn *pgx.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Close(ctx))
}

// WithConn runs fn with a test connection.
func WithConn(t testing.TB, fn func(*pgx.Conn)) {
	conn := Connect(context.Background(), t)
	fn(conn)
}
