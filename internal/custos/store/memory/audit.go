package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
)

func (t *tx) GetAuditEntry(_ context.Context, id uint64) (store.AuditEntry, bool, error) {
	e, ok := t.s.audit[id]
	return e, ok, nil
}

func (t *tx) ListAudit(_ context.Context, f store.AuditFilter) ([]store.AuditEntry, error) {
	// auditOrder is ascending; skip straight past AfterID.
	start := sort.Search(len(t.s.auditOrder), func(i int) bool { return t.s.auditOrder[i] > f.AfterID })

	var out []store.AuditEntry
	for _, id := range t.s.auditOrder[start:] {
		e := t.s.audit[id]
		if f.RecordID != nil && e.RecordID != *f.RecordID {
			continue
		}
		if f.Actor != "" && e.Actor != f.Actor {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (t *tx) AppendAudit(_ context.Context, e store.AuditEntry) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, exists := t.s.audit[e.ID]; exists {
		return fmt.Errorf("AppendAudit %d: duplicate id", e.ID)
	}
	if n := len(t.s.auditOrder); n > 0 && t.s.auditOrder[n-1] >= e.ID {
		return fmt.Errorf("AppendAudit %d: id not increasing", e.ID)
	}
	t.s.audit[e.ID] = e
	t.s.auditOrder = append(t.s.auditOrder, e.ID)
	t.onRollback(func() {
		delete(t.s.audit, e.ID)
		t.s.auditOrder = t.s.auditOrder[:len(t.s.auditOrder)-1]
	})
	return nil
}
