package memory

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

func cloneGrant(g store.Grant) store.Grant {
	g.Expiry = cloneTime(g.Expiry)
	g.RevokedAt = cloneTime(g.RevokedAt)
	return g
}

func (t *tx) GetGrant(_ context.Context, recordID uint64, grantee types.PrincipalID) (store.Grant, bool, error) {
	g, ok := t.s.grants[principalKey{recordID, grantee}]
	if !ok {
		return store.Grant{}, false, nil
	}
	return cloneGrant(g), true, nil
}

func (t *tx) ListGrants(_ context.Context, recordID uint64) ([]store.Grant, error) {
	keys := t.s.grantOrder[recordID]
	out := make([]store.Grant, 0, len(keys))
	for _, grantee := range keys {
		out = append(out, cloneGrant(t.s.grants[principalKey{recordID, grantee}]))
	}
	return out, nil
}

func (t *tx) GrantCount(_ context.Context, recordID uint64) (int, error) {
	return len(t.s.grantOrder[recordID]), nil
}

func (t *tx) GetRecordOwner(_ context.Context, recordID uint64) (store.RecordOwner, bool, error) {
	o, ok := t.s.owners[recordID]
	return o, ok, nil
}

func (t *tx) InsertGrant(_ context.Context, g store.Grant) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	k := principalKey{g.RecordID, g.Grantee}
	if _, exists := t.s.grants[k]; exists {
		return fmt.Errorf("InsertGrant %d/%s: duplicate key", g.RecordID, g.Grantee)
	}
	t.s.grants[k] = cloneGrant(g)
	t.s.grantOrder[g.RecordID] = append(t.s.grantOrder[g.RecordID], g.Grantee)
	t.onRollback(func() {
		delete(t.s.grants, k)
		order := t.s.grantOrder[g.RecordID]
		if len(order) <= 1 {
			delete(t.s.grantOrder, g.RecordID)
			return
		}
		t.s.grantOrder[g.RecordID] = order[:len(order)-1]
	})
	return nil
}

func (t *tx) UpdateGrant(_ context.Context, g store.Grant) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	k := principalKey{g.RecordID, g.Grantee}
	prev, ok := t.s.grants[k]
	if !ok {
		return fmt.Errorf("UpdateGrant %d/%s: not found", g.RecordID, g.Grantee)
	}
	t.s.grants[k] = cloneGrant(g)
	t.onRollback(func() { t.s.grants[k] = prev })
	return nil
}

func (t *tx) BindRecordOwner(_ context.Context, o store.RecordOwner) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, exists := t.s.owners[o.RecordID]; exists {
		return fmt.Errorf("BindRecordOwner %d: already bound", o.RecordID)
	}
	t.s.owners[o.RecordID] = o
	t.onRollback(func() { delete(t.s.owners, o.RecordID) })
	return nil
}
