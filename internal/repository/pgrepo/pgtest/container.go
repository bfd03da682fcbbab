//go:build integration

// Package pgtest поднимает одноразовый Postgres в контейнере для интеграционных тестов.
package pgtest

import (
	"context"
	"io"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/logger"
	"github.com/fsdevblog/groph-ledger/internal/repository/pgrepo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MigrationsDir абсолютный путь к миграциям, не зависит от рабочей директории теста.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "db", "migrations")
}

// Start запускает контейнер, применяет миграции и возвращает пул соединений. Контейнер и пул закрываются
// в t.Cleanup.
func Start(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := pgrepo.Connect(ctx, MigrationsDir(), dsn, logger.New(io.Discard, ""))
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	return conn
}

// Truncate очищает таблицы между тестами.
func Truncate(t *testing.T, conn *pgxpool.Pool) {
	t.Helper()
	_, err := conn.Exec(context.Background(), `TRUNCATE transactions, accounts`)
	require.NoError(t, err)
}
