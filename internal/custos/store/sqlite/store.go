// Package sqlite persists the ledger in SQLite.  All writes run through a
// single db.Worker, so each Update is one serialized sql.Tx.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	dbpkg "github.com/BrandonDHaskell/Custos/server/internal/db"
)

type Store struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB, writer *dbpkg.Worker) *Store {
	return &Store{db: db, writer: writer}
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &sqlTx{tx: tx})
	})
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.ReadTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("View begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(ctx, &sqlTx{tx: tx})
}

// Close stops the writer.  The *sql.DB belongs to the caller.
func (s *Store) Close() error {
	s.writer.Close()
	return nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) NextID(ctx context.Context, seq store.Sequence) (uint64, error) {
	var v int64
	err := t.tx.QueryRowContext(ctx, `
INSERT INTO counters(name, value) VALUES (?, 1)
ON CONFLICT(name) DO UPDATE SET value = value + 1
RETURNING value;
`, string(seq)).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("NextID %s: %w", seq, err)
	}
	return uint64(v), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(p *types.LogicalTime) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func timePtr(v sql.NullInt64) *types.LogicalTime {
	if !v.Valid {
		return nil
	}
	t := types.LogicalTime(v.Int64)
	return &t
}

func hashFromColumn(col string, b []byte) (types.Hash, error) {
	h, err := types.HashFromBytes(b)
	if err != nil {
		return h, fmt.Errorf("column %s: %w", col, err)
	}
	return h, nil
}
