// Package memory is an in-process ledger store.  Every write transaction
// holds one mutex and keeps an undo journal, so a failed call leaves no
// trace.  It backs tests and dev environments.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

var errReadOnly = errors.New("memory: write in read-only transaction")

type revisionKey struct {
	recordID   uint64
	revisionID uint64
}

type principalKey struct {
	id        uint64
	principal types.PrincipalID
}

type Store struct {
	mu sync.RWMutex

	counters map[store.Sequence]uint64

	records         map[uint64]store.Record
	ownerIndex      map[types.PrincipalID][]uint64
	custodianIndex  map[types.PrincipalID][]uint64
	revisions       map[revisionKey]store.Revision
	accessIndicator map[principalKey]store.AccessIndicator

	owners     map[uint64]store.RecordOwner
	grants     map[principalKey]store.Grant
	grantOrder map[uint64][]types.PrincipalID

	groups  map[uint64]store.Group
	members map[uint64]map[types.PrincipalID]types.LogicalTime

	audit      map[uint64]store.AuditEntry
	auditOrder []uint64

	settings    store.Settings
	hasSettings bool
	clockMark   types.LogicalTime
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		counters:        make(map[store.Sequence]uint64),
		records:         make(map[uint64]store.Record),
		ownerIndex:      make(map[types.PrincipalID][]uint64),
		custodianIndex:  make(map[types.PrincipalID][]uint64),
		revisions:       make(map[revisionKey]store.Revision),
		accessIndicator: make(map[principalKey]store.AccessIndicator),
		owners:          make(map[uint64]store.RecordOwner),
		grants:          make(map[principalKey]store.Grant),
		grantOrder:      make(map[uint64][]types.PrincipalID),
		groups:          make(map[uint64]store.Group),
		members:         make(map[uint64]map[types.PrincipalID]types.LogicalTime),
		audit:           make(map[uint64]store.AuditEntry),
	}
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s, writable: true}
	if err := fn(ctx, t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(ctx, &tx{s: s})
}

func (s *Store) Close() error { return nil }

// tx operates directly on the store's maps.  The caller holds s.mu.
type tx struct {
	s        *Store
	writable bool
	undo     []func()
}

func (t *tx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) checkWritable() error {
	if !t.writable {
		return errReadOnly
	}
	return nil
}

func (t *tx) NextID(_ context.Context, seq store.Sequence) (uint64, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	prev := t.s.counters[seq]
	t.s.counters[seq] = prev + 1
	t.onRollback(func() { t.s.counters[seq] = prev })
	return prev + 1, nil
}

func cloneTime(p *types.LogicalTime) *types.LogicalTime {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
