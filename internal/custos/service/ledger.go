package service

import (
	"context"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// Ledger bundles the four components over one store.  Every component
// shares the same audit log, policy and clock.
type Ledger struct {
	Records *RecordService
	Grants  *GrantService
	Groups  *GroupRegistry
	Audit   *AuditLog
	Clock   *LogicalClock

	st     store.Store
	policy Policy
}

func NewLedger(st store.Store, policy Policy) *Ledger {
	audit := NewAuditLog(st, policy)
	groups := NewGroupRegistry(st, audit)
	return &Ledger{
		Records: NewRecordService(st, audit, policy),
		Grants:  NewGrantService(st, audit, groups, policy),
		Groups:  groups,
		Audit:   audit,
		Clock:   NewLogicalClock(st, policy.WallClock),
		st:      st,
		policy:  policy,
	}
}

func (l *Ledger) Policy() Policy { return l.policy }

// Bootstrap persists the policy's settings on first start and, when admin
// is set and no administrator is stored yet, installs it.  Existing
// settings are otherwise left untouched.  It also seeds the clock from
// the persisted mark.  Bootstrap writes no audit entry.
func (l *Ledger) Bootstrap(ctx context.Context, admin types.PrincipalID) (store.Settings, error) {
	var (
		out  store.Settings
		mark types.LogicalTime
	)
	err := l.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		m, err := tx.GetClockMark(ctx)
		if err != nil {
			return err
		}
		mark = m

		s, ok, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		if !ok {
			s = l.policy.defaultSettings()
		}
		if s.Admin.IsNull() && !admin.IsNull() {
			s.Admin = admin
		} else if ok {
			out = s
			return nil
		}
		out = s
		return tx.PutSettings(ctx, s)
	})
	if err != nil {
		return store.Settings{}, err
	}
	l.Clock.seed(mark)
	return out, nil
}
