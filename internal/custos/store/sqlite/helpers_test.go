package sqlite_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/sqlite"
	"github.com/BrandonDHaskell/Custos/server/internal/db"
)

var dsnName = strings.NewReplacer("/", "_", " ", "_")

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when
// the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each test gets its own shared-cache database, kept alive for the
	// lifetime of the pool.
	conn, err := db.OpenDSN(context.Background(), db.MemoryDSN("test_"+dsnName.Replace(t.Name())))
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	conn := openTestDB(t)
	return sqlite.New(conn, newTestWriter(t, conn))
}
