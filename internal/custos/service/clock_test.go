package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/memory"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

func persistedMark(t *testing.T, st store.Store) types.LogicalTime {
	t.Helper()
	var m types.LogicalTime
	require.NoError(t, st.View(context.Background(), func(ctx context.Context, tx store.ReadTx) error {
		var err error
		m, err = tx.GetClockMark(ctx)
		return err
	}))
	return m
}

func TestLogicalClock_AdmitAdvancesAndPersists(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	c := service.NewLogicalClock(st, false)

	now, err := c.Admit(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, types.LogicalTime(0), now)

	now, err = c.Admit(ctx, 10, true)
	require.NoError(t, err)
	assert.Equal(t, types.LogicalTime(10), now)
	assert.Equal(t, types.LogicalTime(10), persistedMark(t, st))

	// Repeating the mark is fine.
	now, err = c.Admit(ctx, 10, true)
	require.NoError(t, err)
	assert.Equal(t, types.LogicalTime(10), now)

	// Omitted time runs at the mark.
	now, err = c.Admit(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, types.LogicalTime(10), now)
}

func TestLogicalClock_RejectsStaleTime(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	c := service.NewLogicalClock(st, false)

	_, err := c.Admit(ctx, 100, true)
	require.NoError(t, err)

	_, err = c.Admit(ctx, 99, true)
	require.ErrorIs(t, err, service.ErrStaleTime)
	assert.Equal(t, "INVALID_INPUT[x-custos-time]: time 99 is before the ledger clock at 100", err.Error())
	assert.Equal(t, types.LogicalTime(100), c.Mark())
	assert.Equal(t, types.LogicalTime(100), persistedMark(t, st))
}

func TestLogicalClock_ConcurrentAdmit(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	c := service.NewLogicalClock(st, false)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(v types.LogicalTime) {
			defer wg.Done()
			// Late arrivals below the mark are rejected; either outcome is fine.
			_, _ = c.Admit(ctx, v, true)
		}(types.LogicalTime(i))
	}
	wg.Wait()

	assert.Equal(t, types.LogicalTime(100), c.Mark())
	assert.Equal(t, types.LogicalTime(100), persistedMark(t, st))
}

func TestLogicalClock_Wall(t *testing.T) {
	ctx := context.Background()
	c := service.NewLogicalClock(memory.New(), true)

	now, err := c.Admit(ctx, 0, false)
	require.NoError(t, err)
	assert.Greater(t, uint64(now), uint64(1_600_000_000))

	// A supplied time is used as given, even in wall mode.
	_, err = c.Admit(ctx, 5, true)
	require.ErrorIs(t, err, service.ErrStaleTime)
}

func TestLogicalClock_LoadSeedsFromStore(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	_, err := service.NewLogicalClock(st, false).Admit(ctx, 42, true)
	require.NoError(t, err)

	c := service.NewLogicalClock(st, false)
	require.NoError(t, c.Load(ctx))
	assert.Equal(t, types.LogicalTime(42), c.Mark())

	_, err = c.Admit(ctx, 41, true)
	require.ErrorIs(t, err, service.ErrStaleTime)
}

// A restart over the same store must not revive a grant that already
// expired before the restart.
func TestLedger_RestartKeepsExpiredGrantExpired(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	p := service.DefaultPolicy()

	l := service.NewLedger(st, p)
	_, err := l.Bootstrap(ctx, "")
	require.NoError(t, err)

	now, err := l.Clock.Admit(ctx, 10, true)
	require.NoError(t, err)
	require.NoError(t, l.Grants.SetRecordOwner(ctx, types.Call{Caller: "alice", Now: now}, 7))
	expiry := types.LogicalTime(20)
	require.NoError(t, l.Grants.GrantAccess(ctx, types.Call{Caller: "alice", Now: now}, types.GrantAccessRequest{
		RecordID: 7, Grantee: "bob", GrantType: types.GrantTemporary, Expiry: &expiry, Reason: "follow-up", Level: 1,
	}))

	now, err = l.Clock.Admit(ctx, 21, true)
	require.NoError(t, err)
	ok, err := l.Grants.HasAccess(ctx, 7, "bob", now)
	require.NoError(t, err)
	require.False(t, ok)

	restarted := service.NewLedger(st, p)
	_, err = restarted.Bootstrap(ctx, "")
	require.NoError(t, err)

	now, err = restarted.Clock.Admit(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, types.LogicalTime(21), now)

	ok, err = restarted.Grants.HasAccess(ctx, 7, "bob", now)
	require.NoError(t, err)
	assert.False(t, ok, "expired grant revived after restart")

	_, err = restarted.Clock.Admit(ctx, 15, true)
	assert.ErrorIs(t, err, service.ErrStaleTime)
}
