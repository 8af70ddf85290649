package db_test

import (
	"context"
	"database/sql"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Custos/server/internal/db"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func fileConfig(t *testing.T) db.Config {
	t.Helper()
	return db.Config{Path: filepath.Join(t.TempDir(), "custos.db"), Env: "dev"}
}

func TestMaintainer_DisabledWhenIntervalZero(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, fileConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	m := db.NewMaintainer(sqlDB, 0, silentLogger())
	m.Start(ctx)
	// Stop returns immediately.
	m.Stop()
}

func TestMaintainer_RunOnceCheckpoints(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, fileConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	w := db.NewWorker(sqlDB)
	t.Cleanup(w.Close)
	require.NoError(t, w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO counters(name, value) VALUES ('probe', 1)`)
		return err
	}))

	m := db.NewMaintainer(sqlDB, time.Hour, silentLogger())
	require.NoError(t, m.RunOnce(ctx))

	var v int
	require.NoError(t, sqlDB.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = 'probe'`).Scan(&v))
	require.Equal(t, 1, v)
}

func TestMaintainer_StopIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sqlDB, err := db.Open(ctx, fileConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	m := db.NewMaintainer(sqlDB, time.Hour, silentLogger())
	m.Start(ctx)

	cancel()
	m.Stop()
	m.Stop()
}
