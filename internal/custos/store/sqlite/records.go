package sqlite

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

const recordColumns = `record_id, owner, custodian, kind, content_hash, key_hash, metadata,
  status, locked, version, revision_count, created_at`

func scanRecord(row rowScanner) (store.Record, error) {
	var (
		rec                  store.Record
		id, version, revs    int64
		createdAt            int64
		locked               int
		contentHash, keyHash []byte
	)
	if err := row.Scan(&id, &rec.Owner, &rec.Custodian, &rec.Kind, &contentHash, &keyHash,
		&rec.Metadata, &rec.Status, &locked, &version, &revs, &createdAt); err != nil {
		return rec, err
	}

	var err error
	if rec.ContentHash, err = hashFromColumn("content_hash", contentHash); err != nil {
		return rec, err
	}
	if rec.KeyHash, err = hashFromColumn("key_hash", keyHash); err != nil {
		return rec, err
	}
	rec.ID = uint64(id)
	rec.Locked = locked == 1
	rec.Version = uint64(version)
	rec.RevisionCount = uint64(revs)
	rec.CreatedAt = types.LogicalTime(createdAt)
	return rec, nil
}

func (t *sqlTx) GetRecord(ctx context.Context, id uint64) (store.Record, bool, error) {
	rec, err := scanRecord(t.tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE record_id = ?;`, int64(id)))
	if noRows(err) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, fmt.Errorf("GetRecord %d: %w", id, err)
	}
	return rec, true, nil
}

func (t *sqlTx) GetRevision(ctx context.Context, recordID, revisionID uint64) (store.Revision, bool, error) {
	var (
		rev                  store.Revision
		contentHash, keyHash []byte
		createdAt            int64
	)
	err := t.tx.QueryRowContext(ctx, `
SELECT content_hash, key_hash, editor, change_note, created_at
FROM record_revisions
WHERE record_id = ? AND revision_id = ?;
`, int64(recordID), int64(revisionID)).Scan(&contentHash, &keyHash, &rev.Editor, &rev.ChangeNote, &createdAt)
	if noRows(err) {
		return store.Revision{}, false, nil
	}
	if err != nil {
		return store.Revision{}, false, fmt.Errorf("GetRevision %d/%d: %w", recordID, revisionID, err)
	}

	if rev.ContentHash, err = hashFromColumn("content_hash", contentHash); err != nil {
		return store.Revision{}, false, err
	}
	if rev.KeyHash, err = hashFromColumn("key_hash", keyHash); err != nil {
		return store.Revision{}, false, err
	}
	rev.RecordID = recordID
	rev.RevisionID = revisionID
	rev.Timestamp = types.LogicalTime(createdAt)
	return rev, true, nil
}

func (t *sqlTx) CountOwnerRecords(ctx context.Context, owner types.PrincipalID) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE owner = ?;`, string(owner)).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountOwnerRecords: %w", err)
	}
	return n, nil
}

func (t *sqlTx) ListOwnerRecords(ctx context.Context, owner types.PrincipalID) ([]uint64, error) {
	return t.listRecordIDs(ctx, `SELECT record_id FROM records WHERE owner = ? ORDER BY record_id;`, owner)
}

func (t *sqlTx) ListCustodianRecords(ctx context.Context, custodian types.PrincipalID) ([]uint64, error) {
	return t.listRecordIDs(ctx, `SELECT record_id FROM records WHERE custodian = ? ORDER BY record_id;`, custodian)
}

func (t *sqlTx) listRecordIDs(ctx context.Context, query string, p types.PrincipalID) ([]uint64, error) {
	rows, err := t.tx.QueryContext(ctx, query, string(p))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list records scan: %w", err)
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}

func (t *sqlTx) GetAccessIndicator(ctx context.Context, recordID uint64, accessor types.PrincipalID) (store.AccessIndicator, bool, error) {
	var (
		ind store.AccessIndicator
		at  int64
	)
	err := t.tx.QueryRowContext(ctx, `
SELECT accessed_at, access_type FROM access_indicators
WHERE record_id = ? AND accessor = ?;
`, int64(recordID), string(accessor)).Scan(&at, &ind.AccessType)
	if noRows(err) {
		return store.AccessIndicator{}, false, nil
	}
	if err != nil {
		return store.AccessIndicator{}, false, fmt.Errorf("GetAccessIndicator: %w", err)
	}
	ind.RecordID = recordID
	ind.Accessor = accessor
	ind.AccessedAt = types.LogicalTime(at)
	return ind, true, nil
}

func (t *sqlTx) InsertRecord(ctx context.Context, rec store.Record) error {
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO records(`+recordColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		int64(rec.ID), string(rec.Owner), string(rec.Custodian), string(rec.Kind),
		rec.ContentHash[:], rec.KeyHash[:], rec.Metadata, string(rec.Status),
		boolInt(rec.Locked), int64(rec.Version), int64(rec.RevisionCount), int64(rec.CreatedAt),
	); err != nil {
		return fmt.Errorf("InsertRecord %d: %w", rec.ID, err)
	}
	return nil
}

func (t *sqlTx) UpdateRecord(ctx context.Context, rec store.Record) error {
	res, err := t.tx.ExecContext(ctx, `
UPDATE records
SET content_hash   = ?,
    key_hash       = ?,
    metadata       = ?,
    status         = ?,
    locked         = ?,
    version        = ?,
    revision_count = ?
WHERE record_id = ?;
`,
		rec.ContentHash[:], rec.KeyHash[:], rec.Metadata, string(rec.Status),
		boolInt(rec.Locked), int64(rec.Version), int64(rec.RevisionCount), int64(rec.ID),
	)
	if err != nil {
		return fmt.Errorf("UpdateRecord %d: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("UpdateRecord %d: not found", rec.ID)
	}
	return nil
}

func (t *sqlTx) InsertRevision(ctx context.Context, rev store.Revision) error {
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO record_revisions(
  record_id, revision_id, content_hash, key_hash, editor, change_note, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?);
`,
		int64(rev.RecordID), int64(rev.RevisionID), rev.ContentHash[:], rev.KeyHash[:],
		string(rev.Editor), rev.ChangeNote, int64(rev.Timestamp),
	); err != nil {
		return fmt.Errorf("InsertRevision %d/%d: %w", rev.RecordID, rev.RevisionID, err)
	}
	return nil
}

func (t *sqlTx) PutAccessIndicator(ctx context.Context, ind store.AccessIndicator) error {
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO access_indicators(record_id, accessor, accessed_at, access_type)
VALUES (?, ?, ?, ?)
ON CONFLICT(record_id, accessor) DO UPDATE SET
  accessed_at = excluded.accessed_at,
  access_type = excluded.access_type;
`, int64(ind.RecordID), string(ind.Accessor), int64(ind.AccessedAt), ind.AccessType); err != nil {
		return fmt.Errorf("PutAccessIndicator: %w", err)
	}
	return nil
}
