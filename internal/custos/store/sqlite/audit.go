package sqlite

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

const auditColumns = `audit_id, action, actor, record_id, created_at, details`

func scanAudit(row rowScanner) (store.AuditEntry, error) {
	var (
		e                store.AuditEntry
		id, recordID, at int64
	)
	if err := row.Scan(&id, &e.Action, &e.Actor, &recordID, &at, &e.Details); err != nil {
		return e, err
	}
	e.ID = uint64(id)
	e.RecordID = uint64(recordID)
	e.Timestamp = types.LogicalTime(at)
	return e, nil
}

func (t *sqlTx) GetAuditEntry(ctx context.Context, id uint64) (store.AuditEntry, bool, error) {
	e, err := scanAudit(t.tx.QueryRowContext(ctx,
		`SELECT `+auditColumns+` FROM audit_log WHERE audit_id = ?;`, int64(id)))
	if noRows(err) {
		return store.AuditEntry{}, false, nil
	}
	if err != nil {
		return store.AuditEntry{}, false, fmt.Errorf("GetAuditEntry %d: %w", id, err)
	}
	return e, true, nil
}

func (t *sqlTx) ListAudit(ctx context.Context, f store.AuditFilter) ([]store.AuditEntry, error) {
	// Audit ids never exceed MaxInt64, so no entry follows a larger cursor.
	if f.AfterID > math.MaxInt64 {
		return nil, nil
	}
	where := []string{"audit_id > ?"}
	args := []any{int64(f.AfterID)}
	if f.RecordID != nil {
		where = append(where, "record_id = ?")
		args = append(args, int64(*f.RecordID))
	}
	if f.Actor != "" {
		where = append(where, "actor = ?")
		args = append(args, string(f.Actor))
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}

	q := `SELECT ` + auditColumns + ` FROM audit_log WHERE ` + strings.Join(where, " AND ") + ` ORDER BY audit_id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListAudit: %w", err)
	}
	defer rows.Close()

	var out []store.AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAudit scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *sqlTx) AppendAudit(ctx context.Context, e store.AuditEntry) error {
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO audit_log(`+auditColumns+`) VALUES (?, ?, ?, ?, ?, ?);
`, int64(e.ID), e.Action, string(e.Actor), int64(e.RecordID), int64(e.Timestamp), e.Details); err != nil {
		return fmt.Errorf("AppendAudit %d: %w", e.ID, err)
	}
	return nil
}
