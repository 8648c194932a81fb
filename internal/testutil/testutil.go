// Package testutil runs the ledger schema in a disposable postgres for package tests.
package testutil

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/adriandotdev/pnc-topup/internal/db"
)

const (
	postgresImage    = "postgres:17-alpine"
	postgresDB       = "pnctopup-test"
	postgresUser     = "pnctopup"
	postgresPassword = "pwd"
)

// RandomPort returns a port free on 127.0.0.1 at the moment of the call
func RandomPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close() // nolint:errcheck

	return ln.Addr().(*net.TCPAddr).Port, nil
}

// PostgresContainer is migrated database with wallets, topups and api clients tables
type PostgresContainer struct {
	DSN  string
	Pool *pgxpool.Pool

	// Closes the pool and removes the container
	Terminate func()
}

func requireDocker(t *testing.T) {
	t.Helper()

	out, err := exec.Command("docker", "info", "--format", "{{.ServerVersion}}").CombinedOutput()
	if err != nil {
		t.Fatalf("docker is required to run ledger tests. Err: %s", out)
	}
}

// StartPostgresContainer fails the test if postgres can't be started or migrated,
// so callers always get a ready pool
func StartPostgresContainer(t *testing.T) PostgresContainer {
	t.Helper()
	requireDocker(t)

	port, err := RandomPort()
	require.NoError(t, err, "no free port for postgres")

	ctx := t.Context()
	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase(postgresDB),
		postgres.WithUsername(postgresUser),
		postgres.WithPassword(postgresPassword),
		postgres.BasicWaitStrategies(),
		testcontainers.CustomizeRequestOption(func(req *testcontainers.GenericContainerRequest) error {
			req.ExposedPorts = []string{fmt.Sprintf("%d:5432", port)}
			return nil
		}),
	)
	require.NoError(t, err, "postgres container not started")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "postgres container has no connection string")

	pool, err := db.ConnectAndMigrate(ctx, dsn)
	require.NoError(t, err, "ledger schema not migrated")
	t.Logf("Ledger postgres ready, DSN=%s", dsn)

	return PostgresContainer{
		DSN:  dsn,
		Pool: pool,
		Terminate: func() {
			pool.Close()
			testcontainers.CleanupContainer(t, container)
		},
	}
}

type beginner interface {
	Begin(context.Context) (pgx.Tx, error)
}

// WithTx runs fn inside a transaction that is always rolled back,
// so ledger rows created by one case are never seen by another
func WithTx(conn beginner, t *testing.T, fn func(tx pgx.Tx)) {
	t.Helper()

	tx, err := conn.Begin(t.Context())
	require.NoError(t, err, "can't begin test transaction")

	defer func() {
		require.NoError(t, tx.Rollback(t.Context()), "can't rollback test transaction")
	}()

	fn(tx)
}
