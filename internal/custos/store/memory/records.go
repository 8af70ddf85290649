package memory

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

func (t *tx) GetRecord(_ context.Context, id uint64) (store.Record, bool, error) {
	rec, ok := t.s.records[id]
	return rec, ok, nil
}

func (t *tx) GetRevision(_ context.Context, recordID, revisionID uint64) (store.Revision, bool, error) {
	rev, ok := t.s.revisions[revisionKey{recordID, revisionID}]
	return rev, ok, nil
}

func (t *tx) CountOwnerRecords(_ context.Context, owner types.PrincipalID) (int, error) {
	return len(t.s.ownerIndex[owner]), nil
}

func (t *tx) ListOwnerRecords(_ context.Context, owner types.PrincipalID) ([]uint64, error) {
	return append([]uint64(nil), t.s.ownerIndex[owner]...), nil
}

func (t *tx) ListCustodianRecords(_ context.Context, custodian types.PrincipalID) ([]uint64, error) {
	return append([]uint64(nil), t.s.custodianIndex[custodian]...), nil
}

func (t *tx) GetAccessIndicator(_ context.Context, recordID uint64, accessor types.PrincipalID) (store.AccessIndicator, bool, error) {
	ind, ok := t.s.accessIndicator[principalKey{recordID, accessor}]
	return ind, ok, nil
}

func (t *tx) InsertRecord(_ context.Context, rec store.Record) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, exists := t.s.records[rec.ID]; exists {
		return fmt.Errorf("InsertRecord %d: duplicate id", rec.ID)
	}
	t.s.records[rec.ID] = rec
	t.onRollback(func() { delete(t.s.records, rec.ID) })

	t.appendIndex(t.s.ownerIndex, rec.Owner, rec.ID)
	t.appendIndex(t.s.custodianIndex, rec.Custodian, rec.ID)
	return nil
}

func (t *tx) appendIndex(idx map[types.PrincipalID][]uint64, p types.PrincipalID, id uint64) {
	idx[p] = append(idx[p], id)
	t.onRollback(func() {
		ids := idx[p]
		if len(ids) <= 1 {
			delete(idx, p)
			return
		}
		idx[p] = ids[:len(ids)-1]
	})
}

func (t *tx) UpdateRecord(_ context.Context, rec store.Record) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	prev, ok := t.s.records[rec.ID]
	if !ok {
		return fmt.Errorf("UpdateRecord %d: not found", rec.ID)
	}
	t.s.records[rec.ID] = rec
	t.onRollback(func() { t.s.records[rec.ID] = prev })
	return nil
}

func (t *tx) InsertRevision(_ context.Context, rev store.Revision) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	k := revisionKey{rev.RecordID, rev.RevisionID}
	if _, exists := t.s.revisions[k]; exists {
		return fmt.Errorf("InsertRevision %d/%d: duplicate", rev.RecordID, rev.RevisionID)
	}
	t.s.revisions[k] = rev
	t.onRollback(func() { delete(t.s.revisions, k) })
	return nil
}

func (t *tx) PutAccessIndicator(_ context.Context, ind store.AccessIndicator) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	k := principalKey{ind.RecordID, ind.Accessor}
	prev, had := t.s.accessIndicator[k]
	t.s.accessIndicator[k] = ind
	t.onRollback(func() {
		if had {
			t.s.accessIndicator[k] = prev
		} else {
			delete(t.s.accessIndicator, k)
		}
	})
	return nil
}
