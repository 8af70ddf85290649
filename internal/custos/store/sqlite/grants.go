package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

const grantColumns = `record_id, grantee, grant_type, expiry, reason, level, granter,
  granted_at, revoked, revoked_at, group_id`

func scanGrant(row rowScanner) (store.Grant, error) {
	var (
		g                   store.Grant
		recordID, grantedAt int64
		level, revoked      int
		expiry, revokedAt   sql.NullInt64
		groupID             sql.NullInt64
	)
	if err := row.Scan(&recordID, &g.Grantee, &g.GrantType, &expiry, &g.Reason, &level,
		&g.Granter, &grantedAt, &revoked, &revokedAt, &groupID); err != nil {
		return g, err
	}
	g.RecordID = uint64(recordID)
	g.Expiry = timePtr(expiry)
	g.Level = uint8(level)
	g.GrantedAt = types.LogicalTime(grantedAt)
	g.Revoked = revoked == 1
	g.RevokedAt = timePtr(revokedAt)
	if groupID.Valid {
		g.GroupID = uint64(groupID.Int64)
	}
	return g, nil
}

func (t *sqlTx) GetGrant(ctx context.Context, recordID uint64, grantee types.PrincipalID) (store.Grant, bool, error) {
	g, err := scanGrant(t.tx.QueryRowContext(ctx,
		`SELECT `+grantColumns+` FROM grants WHERE record_id = ? AND grantee = ?;`,
		int64(recordID), string(grantee)))
	if noRows(err) {
		return store.Grant{}, false, nil
	}
	if err != nil {
		return store.Grant{}, false, fmt.Errorf("GetGrant %d/%s: %w", recordID, grantee, err)
	}
	return g, true, nil
}

func (t *sqlTx) ListGrants(ctx context.Context, recordID uint64) ([]store.Grant, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+grantColumns+` FROM grants WHERE record_id = ? ORDER BY seq;`, int64(recordID))
	if err != nil {
		return nil, fmt.Errorf("ListGrants %d: %w", recordID, err)
	}
	defer rows.Close()

	var out []store.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("ListGrants scan: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (t *sqlTx) GrantCount(ctx context.Context, recordID uint64) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grants WHERE record_id = ?;`, int64(recordID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("GrantCount %d: %w", recordID, err)
	}
	return n, nil
}

func (t *sqlTx) GetRecordOwner(ctx context.Context, recordID uint64) (store.RecordOwner, bool, error) {
	var (
		o       store.RecordOwner
		boundAt int64
	)
	err := t.tx.QueryRowContext(ctx,
		`SELECT owner, bound_at FROM record_owners WHERE record_id = ?;`, int64(recordID),
	).Scan(&o.Owner, &boundAt)
	if noRows(err) {
		return store.RecordOwner{}, false, nil
	}
	if err != nil {
		return store.RecordOwner{}, false, fmt.Errorf("GetRecordOwner %d: %w", recordID, err)
	}
	o.RecordID = recordID
	o.BoundAt = types.LogicalTime(boundAt)
	return o, true, nil
}

func (t *sqlTx) InsertGrant(ctx context.Context, g store.Grant) error {
	var groupID any
	if g.GroupID != 0 {
		groupID = int64(g.GroupID)
	}
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO grants(`+grantColumns+`, seq)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
  (SELECT COALESCE(MAX(seq), 0) + 1 FROM grants WHERE record_id = ?));
`,
		int64(g.RecordID), string(g.Grantee), string(g.GrantType), nullTime(g.Expiry), g.Reason,
		int(g.Level), string(g.Granter), int64(g.GrantedAt), boolInt(g.Revoked),
		nullTime(g.RevokedAt), groupID, int64(g.RecordID),
	); err != nil {
		return fmt.Errorf("InsertGrant %d/%s: %w", g.RecordID, g.Grantee, err)
	}
	return nil
}

// UpdateGrant rewrites the revocation state only; every other grant field
// is fixed at issue time.
func (t *sqlTx) UpdateGrant(ctx context.Context, g store.Grant) error {
	res, err := t.tx.ExecContext(ctx, `
UPDATE grants SET revoked = ?, revoked_at = ?
WHERE record_id = ? AND grantee = ?;
`, boolInt(g.Revoked), nullTime(g.RevokedAt), int64(g.RecordID), string(g.Grantee))
	if err != nil {
		return fmt.Errorf("UpdateGrant %d/%s: %w", g.RecordID, g.Grantee, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("UpdateGrant %d/%s: not found", g.RecordID, g.Grantee)
	}
	return nil
}

func (t *sqlTx) BindRecordOwner(ctx context.Context, o store.RecordOwner) error {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO record_owners(record_id, owner, bound_at) VALUES (?, ?, ?);`,
		int64(o.RecordID), string(o.Owner), int64(o.BoundAt),
	); err != nil {
		return fmt.Errorf("BindRecordOwner %d: %w", o.RecordID, err)
	}
	return nil
}
