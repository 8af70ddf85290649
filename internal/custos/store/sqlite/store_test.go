package sqlite_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/sqlite"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/storetest"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/db"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

// ── Schema guards ────────────────────────────────────────────────────────────

func TestAuditLog_IsAppendOnly(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := conn.ExecContext(ctx,
		`INSERT INTO audit_log(audit_id, action, actor, record_id, created_at) VALUES (1, 'a', 'bob', 0, 1);`)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `UPDATE audit_log SET actor = 'eve' WHERE audit_id = 1;`)
	assert.ErrorContains(t, err, "append-only")

	_, err = conn.ExecContext(ctx, `DELETE FROM audit_log WHERE audit_id = 1;`)
	assert.ErrorContains(t, err, "append-only")
}

func TestRecords_VersionInvariantEnforced(t *testing.T) {
	st := newTestStore(t)

	err := st.Update(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertRecord(ctx, store.Record{
			ID: 1, Owner: "alice", Custodian: "bob", Kind: types.KindImaging,
			ContentHash: types.Hash{1}, KeyHash: types.Hash{2}, Metadata: "ct",
			Status: types.StatusActive, Version: 3, RevisionCount: 0,
		})
	})
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	conn := openTestDB(t)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations;`).Scan(&n))
	assert.Equal(t, 2, n)
}

// ── Ledger over SQLite ───────────────────────────────────────────────────────

func TestLedger_EndToEnd(t *testing.T) {
	st := newTestStore(t)
	l := service.NewLedger(st, service.DefaultPolicy())
	ctx := context.Background()

	_, err := l.Bootstrap(ctx, "dave")
	require.NoError(t, err)

	id, err := l.Records.StoreRecord(ctx, types.Call{Caller: "bob", Now: 1}, types.StoreRecordRequest{
		Owner: "alice", Kind: types.KindPrescription,
		ContentHash: types.Hash{1}, KeyHash: types.Hash{2}, Metadata: "amoxicillin",
	})
	require.NoError(t, err)

	rev, err := l.Records.UpdateRecordHash(ctx, types.Call{Caller: "bob", Now: 2}, types.UpdateRecordHashRequest{
		RecordID: id, ContentHash: types.Hash{3}, KeyHash: types.Hash{4}, ChangeNote: "dose",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)

	require.NoError(t, l.Grants.SetRecordOwner(ctx, types.Call{Caller: "alice", Now: 3}, id))
	require.NoError(t, l.Grants.SetMaxGrants(ctx, types.Call{Caller: "dave", Now: 3}, types.SetMaxGrantsRequest{MaxGrants: 1}))
	require.NoError(t, l.Grants.GrantAccess(ctx, types.Call{Caller: "alice", Now: 4}, types.GrantAccessRequest{
		RecordID: id, Grantee: "carol", GrantType: types.GrantIndividual, Reason: "pharmacy", Level: 1,
	}))

	err = l.Grants.GrantAccess(ctx, types.Call{Caller: "alice", Now: 5}, types.GrantAccessRequest{
		RecordID: id, Grantee: "erin", GrantType: types.GrantIndividual, Reason: "pharmacy", Level: 1,
	})
	require.ErrorIs(t, err, service.ErrLimitExceeded)

	ok, err := l.Grants.HasAccess(ctx, id, "carol", 5)
	require.NoError(t, err)
	assert.True(t, ok)

	// The rejected grant left no audit entry and consumed no audit id.
	entries, err := l.Audit.List(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.ID)
	}
	assert.Equal(t, string(service.ActionAccessGranted), entries[4].Action)
}

// A restarted process over the same database file resumes the clock at
// the persisted mark, so grants that expired before the restart stay
// expired.
func TestLedger_ClockMarkSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "custos.db")

	open := func() (*service.Ledger, func()) {
		conn, err := db.Open(ctx, db.Config{Path: path})
		require.NoError(t, err)
		w := db.NewWorker(conn)
		l := service.NewLedger(sqlite.New(conn, w), service.DefaultPolicy())
		_, err = l.Bootstrap(ctx, "")
		require.NoError(t, err)
		return l, func() {
			w.Close()
			conn.Close()
		}
	}

	l, closeFirst := open()
	now, err := l.Clock.Admit(ctx, 10, true)
	require.NoError(t, err)
	require.NoError(t, l.Grants.SetRecordOwner(ctx, types.Call{Caller: "alice", Now: now}, 7))
	expiry := types.LogicalTime(20)
	require.NoError(t, l.Grants.GrantAccess(ctx, types.Call{Caller: "alice", Now: now}, types.GrantAccessRequest{
		RecordID: 7, Grantee: "bob", GrantType: types.GrantTemporary, Expiry: &expiry, Reason: "follow-up", Level: 1,
	}))
	_, err = l.Clock.Admit(ctx, math.MaxUint64-1, true)
	require.NoError(t, err)
	closeFirst()

	l, closeSecond := open()
	defer closeSecond()

	assert.Equal(t, types.LogicalTime(math.MaxUint64-1), l.Clock.Mark())
	now, err = l.Clock.Admit(ctx, 0, false)
	require.NoError(t, err)
	ok, err := l.Grants.HasAccess(ctx, 7, "bob", now)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.Clock.Admit(ctx, 21, true)
	assert.ErrorIs(t, err, service.ErrStaleTime)
}
