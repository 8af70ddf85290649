package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

func TestAuditLog_AppendAndFilter(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	id, ok, err := l.Audit.Append(ctx, call(alice, 4), "exported", 3, "pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), id)

	_, _, err = l.Audit.Append(ctx, call(bob, 5), "exported", 4, "csv")
	require.NoError(t, err)
	_, _, err = l.Audit.Append(ctx, call(alice, 6), "printed", 3, "")
	require.NoError(t, err)

	e, err := l.Audit.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, store.AuditEntry{ID: 1, Action: "exported", Actor: alice, RecordID: 3, Timestamp: 4, Details: "pdf"}, e)

	_, err = l.Audit.Get(ctx, 99)
	assert.ErrorIs(t, err, service.ErrAuditNotFound)

	rec := uint64(3)
	byRecord, err := l.Audit.List(ctx, store.AuditFilter{RecordID: &rec})
	require.NoError(t, err)
	assert.Len(t, byRecord, 2)

	byActor, err := l.Audit.List(ctx, store.AuditFilter{Actor: bob})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, uint64(2), byActor[0].ID)

	page, err := l.Audit.List(ctx, store.AuditFilter{AfterID: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(2), page[0].ID)
}

func TestToggleAudit_SuppressesAndRecordsToggle(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Grants.ClaimAdmin(ctx, call(dave, 1)))
	require.NoError(t, l.Grants.ToggleAudit(ctx, call(dave, 2), types.ToggleAuditRequest{Enabled: false}))

	_, ok, err := l.Audit.Append(ctx, call(alice, 3), "exported", 1, "")
	require.NoError(t, err)
	assert.False(t, ok, "disabled audit stores nothing but succeeds")

	_, err = l.Records.StoreRecord(ctx, call(bob, 3), storeReq(alice))
	require.NoError(t, err)

	require.NoError(t, l.Grants.ToggleAudit(ctx, call(dave, 4), types.ToggleAuditRequest{Enabled: true}))

	entries, err := l.Audit.List(ctx, store.AuditFilter{})
	require.NoError(t, err)

	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{
		string(service.ActionAdminClaimed),
		string(service.ActionAuditToggled),
		string(service.ActionAuditToggled),
	}, actions)

	// Audit ids stay contiguous across the disabled window.
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.ID)
	}
}

func TestAuditLog_AppendRequiresAction(t *testing.T) {
	l, _ := newTestLedger(t)

	_, _, err := l.Audit.Append(context.Background(), call(alice, 1), " ", 0, "")
	require.ErrorIs(t, err, service.ErrInvalidAction)
}
