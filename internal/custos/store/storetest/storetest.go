// Package storetest holds the behavior every store.Store implementation
// must share.  Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// Factory returns an empty store.  Cleanup is the factory's job.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("Sequences", func(t *testing.T) { testSequences(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("Records", func(t *testing.T) { testRecords(t, newStore(t)) })
	t.Run("AccessIndicators", func(t *testing.T) { testAccessIndicators(t, newStore(t)) })
	t.Run("Grants", func(t *testing.T) { testGrants(t, newStore(t)) })
	t.Run("Groups", func(t *testing.T) { testGroups(t, newStore(t)) })
	t.Run("Audit", func(t *testing.T) { testAudit(t, newStore(t)) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("ClockMark", func(t *testing.T) { testClockMark(t, newStore(t)) })
}

var errBoom = errors.New("boom")

func hash(b byte) types.Hash {
	var h types.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func update(t *testing.T, st store.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	require.NoError(t, st.Update(context.Background(), fn))
}

func view(t *testing.T, st store.Store, fn func(ctx context.Context, tx store.ReadTx) error) {
	t.Helper()
	require.NoError(t, st.View(context.Background(), fn))
}

func record(id uint64, owner, custodian types.PrincipalID) store.Record {
	return store.Record{
		ID:          id,
		Owner:       owner,
		Custodian:   custodian,
		Kind:        types.KindLabResult,
		ContentHash: hash(1),
		KeyHash:     hash(2),
		Metadata:    "cbc panel",
		Status:      types.StatusActive,
		Version:     1,
		CreatedAt:   5,
	}
}

// ── Sequences ────────────────────────────────────────────────────────────────

func testSequences(t *testing.T, st store.Store) {
	update(t, st, func(ctx context.Context, tx store.Tx) error {
		for want := uint64(1); want <= 3; want++ {
			got, err := tx.NextID(ctx, store.SeqRecord)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		got, err := tx.NextID(ctx, store.SeqGroup)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), got, "sequences are independent")
		return nil
	})
}

// ── Rollback ─────────────────────────────────────────────────────────────────

func testRollback(t *testing.T, st store.Store) {
	update(t, st, func(ctx context.Context, tx store.Tx) error {
		id, err := tx.NextID(ctx, store.SeqRecord)
		require.NoError(t, err)
		return tx.InsertRecord(ctx, record(id, "alice", "bob"))
	})

	err := st.Update(context.Background(), func(ctx context.Context, tx store.Tx) error {
		id, err := tx.NextID(ctx, store.SeqRecord)
		require.NoError(t, err)
		require.NoError(t, tx.InsertRecord(ctx, record(id, "alice", "bob")))

		rec := record(1, "alice", "bob")
		rec.Locked = true
		require.NoError(t, tx.UpdateRecord(ctx, rec))
		require.NoError(t, tx.BindRecordOwner(ctx, store.RecordOwner{RecordID: 1, Owner: "alice"}))
		require.NoError(t, tx.InsertGrant(ctx, store.Grant{RecordID: 1, Grantee: "carol", GrantType: types.GrantIndividual, Reason: "x"}))
		require.NoError(t, tx.PutSettings(ctx, store.Settings{Admin: "dave", MaxGrantsPerRecord: 3}))
		require.NoError(t, tx.PutClockMark(ctx, 99))
		require.NoError(t, tx.AppendAudit(ctx, store.AuditEntry{ID: 1, Action: "a", Actor: "alice"}))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		rec, ok, err := tx.GetRecord(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, rec.Locked)

		_, ok, err = tx.GetRecord(ctx, 2)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := tx.CountOwnerRecords(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, ok, err = tx.GetRecordOwner(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		grants, err := tx.ListGrants(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, grants)

		_, ok, err = tx.GetSettings(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		mark, err := tx.GetClockMark(ctx)
		require.NoError(t, err)
		assert.Zero(t, mark)

		entries, err := tx.ListAudit(ctx, store.AuditFilter{})
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	})

	update(t, st, func(ctx context.Context, tx store.Tx) error {
		id, err := tx.NextID(ctx, store.SeqRecord)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), id, "rolled-back ids are reused")
		return nil
	})
}

// ── Records ──────────────────────────────────────────────────────────────────

func testRecords(t *testing.T, st store.Store) {
	update(t, st, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.InsertRecord(ctx, record(1, "alice", "bob")))
		require.NoError(t, tx.InsertRecord(ctx, record(2, "carol", "bob")))
		require.NoError(t, tx.InsertRecord(ctx, record(3, "alice", "dave")))
		return nil
	})

	update(t, st, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.InsertRevision(ctx, store.Revision{
			RecordID: 1, RevisionID: 1, ContentHash: hash(1), KeyHash: hash(2),
			Editor: "bob", ChangeNote: "typo", Timestamp: 9,
		}))
		rec := record(1, "alice", "bob")
		rec.ContentHash = hash(3)
		rec.KeyHash = hash(4)
		rec.RevisionCount = 1
		rec.Version = 2
		rec.Status = types.StatusArchived
		rec.Locked = true
		return tx.UpdateRecord(ctx, rec)
	})

	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		rec, ok, err := tx.GetRecord(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		want := record(1, "alice", "bob")
		want.ContentHash = hash(3)
		want.KeyHash = hash(4)
		want.RevisionCount = 1
		want.Version = 2
		want.Status = types.StatusArchived
		want.Locked = true
		assert.Equal(t, want, rec)

		rev, ok, err := tx.GetRevision(ctx, 1, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, hash(1), rev.ContentHash)
		assert.Equal(t, "typo", rev.ChangeNote)
		assert.Equal(t, types.LogicalTime(9), rev.Timestamp)

		_, ok, err = tx.GetRevision(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := tx.CountOwnerRecords(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		ids, err := tx.ListOwnerRecords(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 3}, ids)

		ids, err = tx.ListCustodianRecords(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2}, ids)

		ids, err = tx.ListOwnerRecords(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, ids)
		return nil
	})
}

func testAccessIndicators(t *testing.T, st store.Store) {
	update(t, st, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.PutAccessIndicator(ctx, store.AccessIndicator{RecordID: 4, Accessor: "bob", AccessedAt: 1, AccessType: "view"}))
		return tx.PutAccessIndicator(ctx, store.AccessIndicator{RecordID: 4, Accessor: "bob", AccessedAt: 2, AccessType: "print"})
	})

	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		ind, ok, err := tx.GetAccessIndicator(ctx, 4, "bob")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, types.LogicalTime(2), ind.AccessedAt)
		assert.Equal(t, "print", ind.AccessType)

		_, ok, err = tx.GetAccessIndicator(ctx, 4, "carol")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

// ── Grants ───────────────────────────────────────────────────────────────────

func testGrants(t *testing.T, st store.Store) {
	exp := types.LogicalTime(40)

	update(t, st, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.BindRecordOwner(ctx, store.RecordOwner{RecordID: 7, Owner: "alice", BoundAt: 1}))
		require.NoError(t, tx.InsertGrant(ctx, store.Grant{
			RecordID: 7, Grantee: "carol", GrantType: types.GrantTemporary,
			Expiry: &exp, Reason: "consult", Level: 2, Granter: "alice", GrantedAt: 3,
		}))
		return tx.InsertGrant(ctx, store.Grant{
			RecordID: 7, Grantee: "bob", GrantType: types.GrantIndividual,
			Reason: "gp", Level: 0, Granter: "alice", GrantedAt: 4,
		})
	})

	update(t, st, func(ctx context.Context, tx store.Tx) error {
		g, ok, err := tx.GetGrant(ctx, 7, "carol")
		require.NoError(t, err)
		require.True(t, ok)
		revokedAt := types.LogicalTime(6)
		g.Revoked = true
		g.RevokedAt = &revokedAt
		return tx.UpdateGrant(ctx, g)
	})

	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		o, ok, err := tx.GetRecordOwner(ctx, 7)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, types.PrincipalID("alice"), o.Owner)

		g, ok, err := tx.GetGrant(ctx, 7, "carol")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, g.Revoked)
		require.NotNil(t, g.RevokedAt)
		assert.Equal(t, types.LogicalTime(6), *g.RevokedAt)
		require.NotNil(t, g.Expiry)
		assert.Equal(t, exp, *g.Expiry)
		assert.Equal(t, uint8(2), g.Level)

		grants, err := tx.ListGrants(ctx, 7)
		require.NoError(t, err)
		require.Len(t, grants, 2)
		assert.Equal(t, types.PrincipalID("carol"), grants[0].Grantee, "grants list in issue order")
		assert.Equal(t, types.PrincipalID("bob"), grants[1].Grantee)
		assert.Nil(t, grants[1].Expiry)

		n, err := tx.GrantCount(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "revoked grants still count")

		n, err = tx.GrantCount(ctx, 8)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
}

// ── Groups ───────────────────────────────────────────────────────────────────

func testGroups(t *testing.T, st store.Store) {
	update(t, st, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.InsertGroup(ctx, store.Group{ID: 1, Name: "icu", Creator: "carol", Active: true, CreatedAt: 2}))
		require.NoError(t, tx.AddGroupMember(ctx, 1, "zoe", 3))
		require.NoError(t, tx.AddGroupMember(ctx, 1, "adam", 3))
		require.NoError(t, tx.AddGroupMember(ctx, 1, "adam", 4))
		require.NoError(t, tx.RemoveGroupMember(ctx, 1, "nobody"))
		return nil
	})

	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		g, ok, err := tx.GetGroup(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, store.Group{ID: 1, Name: "icu", Creator: "carol", Active: true, CreatedAt: 2}, g)

		members, err := tx.ListGroupMembers(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []types.PrincipalID{"adam", "zoe"}, members)

		ok, err = tx.IsGroupMember(ctx, 1, "zoe")
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})

	update(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.RemoveGroupMember(ctx, 1, "zoe")
	})

	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		ok, err := tx.IsGroupMember(ctx, 1, "zoe")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

// ── Audit ────────────────────────────────────────────────────────────────────

func testAudit(t *testing.T, st store.Store) {
	update(t, st, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.AppendAudit(ctx, store.AuditEntry{ID: 1, Action: "record-stored", Actor: "bob", RecordID: 1, Timestamp: 1}))
		require.NoError(t, tx.AppendAudit(ctx, store.AuditEntry{ID: 2, Action: "record-accessed", Actor: "carol", RecordID: 1, Timestamp: 2, Details: "view"}))
		require.NoError(t, tx.AppendAudit(ctx, store.AuditEntry{ID: 3, Action: "record-stored", Actor: "bob", RecordID: 2, Timestamp: 3}))
		return nil
	})

	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		e, ok, err := tx.GetAuditEntry(ctx, 2)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "view", e.Details)

		all, err := tx.ListAudit(ctx, store.AuditFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, uint64(1), all[0].ID)

		rec := uint64(1)
		got, err := tx.ListAudit(ctx, store.AuditFilter{RecordID: &rec, Actor: "bob"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(1), got[0].ID)

		got, err = tx.ListAudit(ctx, store.AuditFilter{Action: "record-stored", AfterID: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(3), got[0].ID)

		// Cursors past the last id, including ones beyond MaxInt64, end the listing.
		for _, after := range []uint64{3, math.MaxInt64, math.MaxInt64 + 1, math.MaxUint64} {
			got, err = tx.ListAudit(ctx, store.AuditFilter{AfterID: after})
			require.NoError(t, err)
			assert.Empty(t, got, "after %d", after)
		}

		_, ok, err = tx.GetAuditEntry(ctx, math.MaxUint64)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err = tx.ListAudit(ctx, store.AuditFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		return nil
	})
}

// ── Settings ─────────────────────────────────────────────────────────────────

func testSettings(t *testing.T, st store.Store) {
	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		_, ok, err := tx.GetSettings(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})

	want := store.Settings{Admin: "dave", MaxGrantsPerRecord: 12, AuditEnabled: false}
	update(t, st, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.PutSettings(ctx, store.Settings{MaxGrantsPerRecord: 50, AuditEnabled: true}))
		return tx.PutSettings(ctx, want)
	})

	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		got, ok, err := tx.GetSettings(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
		return nil
	})
}

func testClockMark(t *testing.T, st store.Store) {
	view(t, st, func(ctx context.Context, tx store.ReadTx) error {
		mark, err := tx.GetClockMark(ctx)
		require.NoError(t, err)
		assert.Zero(t, mark)
		return nil
	})

	for _, want := range []types.LogicalTime{7, 1<<53 + 1, math.MaxUint64} {
		update(t, st, func(ctx context.Context, tx store.Tx) error {
			return tx.PutClockMark(ctx, want)
		})
		view(t, st, func(ctx context.Context, tx store.ReadTx) error {
			got, err := tx.GetClockMark(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			return nil
		})
	}
}
