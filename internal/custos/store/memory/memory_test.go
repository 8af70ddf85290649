package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/memory"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st := memory.New()
		t.Cleanup(func() { st.Close() })
		return st
	})
}

func TestView_RejectsCancelledContext(t *testing.T) {
	st := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.View(ctx, func(context.Context, store.ReadTx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	err = st.Update(ctx, func(context.Context, store.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdate_RollbackRestoresMembership(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	require.NoError(t, st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.InsertGroup(ctx, store.Group{ID: 1, Name: "icu", Creator: "carol", Active: true}))
		return tx.AddGroupMember(ctx, 1, "bob", 1)
	}))

	err := st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.RemoveGroupMember(ctx, 1, "bob"))
		require.NoError(t, tx.AddGroupMember(ctx, 1, "dave", 2))
		return context.DeadlineExceeded
	})
	require.Error(t, err)

	require.NoError(t, st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		members, err := tx.ListGroupMembers(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, toStrings(members))
		return nil
	}))
}

func TestAppendAudit_RequiresIncreasingIDs(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	err := st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.AppendAudit(ctx, store.AuditEntry{ID: 2, Action: "a"}))
		return tx.AppendAudit(ctx, store.AuditEntry{ID: 1, Action: "b"})
	})
	require.Error(t, err)
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
