package sqlite

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

func (t *sqlTx) GetSettings(ctx context.Context) (store.Settings, bool, error) {
	var (
		s         store.Settings
		maxGrants int64
		enabled   int
	)
	err := t.tx.QueryRowContext(ctx, `
SELECT admin, max_grants_per_record, audit_enabled FROM settings WHERE id = 1;
`).Scan(&s.Admin, &maxGrants, &enabled)
	if noRows(err) {
		return store.Settings{}, false, nil
	}
	if err != nil {
		return store.Settings{}, false, fmt.Errorf("GetSettings: %w", err)
	}
	s.MaxGrantsPerRecord = uint64(maxGrants)
	s.AuditEnabled = enabled == 1
	return s, true, nil
}

func (t *sqlTx) PutSettings(ctx context.Context, s store.Settings) error {
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO settings(id, admin, max_grants_per_record, audit_enabled)
VALUES (1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  admin                 = excluded.admin,
  max_grants_per_record = excluded.max_grants_per_record,
  audit_enabled         = excluded.audit_enabled;
`, string(s.Admin), int64(s.MaxGrantsPerRecord), boolInt(s.AuditEnabled)); err != nil {
		return fmt.Errorf("PutSettings: %w", err)
	}
	return nil
}

// Logical times are stored as the int64 bit pattern of the uint64 value.
func (t *sqlTx) GetClockMark(ctx context.Context) (types.LogicalTime, error) {
	var mark int64
	err := t.tx.QueryRowContext(ctx, `SELECT mark FROM clock WHERE id = 1;`).Scan(&mark)
	if noRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("GetClockMark: %w", err)
	}
	return types.LogicalTime(uint64(mark)), nil
}

func (t *sqlTx) PutClockMark(ctx context.Context, m types.LogicalTime) error {
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO clock(id, mark) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET mark = excluded.mark;
`, int64(uint64(m))); err != nil {
		return fmt.Errorf("PutClockMark: %w", err)
	}
	return nil
}
