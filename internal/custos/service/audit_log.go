package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// Action names what an audit entry records.
type Action string

const (
	ActionRecordStored       Action = "record-stored"
	ActionRecordUpdated      Action = "record-updated"
	ActionRecordLocked       Action = "record-locked"
	ActionRecordArchived     Action = "record-archived"
	ActionRecordAccessed     Action = "record-accessed"
	ActionOwnerBound         Action = "owner-bound"
	ActionAccessGranted      Action = "access-granted"
	ActionGroupAccessGranted Action = "group-access-granted"
	ActionAccessRevoked      Action = "access-revoked"
	ActionGroupCreated       Action = "group-created"
	ActionMemberAdded        Action = "member-added"
	ActionMemberRemoved      Action = "member-removed"
	ActionAdminClaimed       Action = "admin-claimed"
	ActionMaxGrantsSet       Action = "max-grants-set"
	ActionAuditToggled       Action = "audit-toggled"
)

// AuditLog is the append-only action trail every other component writes
// to.  Entries are never updated or removed.
type AuditLog struct {
	st     store.Store
	policy Policy
}

func NewAuditLog(st store.Store, policy Policy) *AuditLog {
	return &AuditLog{st: st, policy: policy}
}

// Append records an action on behalf of an external collaborator.  When
// auditing is disabled nothing is stored and recorded is false; this is
// still a success.
func (a *AuditLog) Append(ctx context.Context, call types.Call, action string, recordID uint64, details string) (id uint64, recorded bool, err error) {
	if strings.TrimSpace(action) == "" {
		return 0, false, ErrInvalidAction
	}
	err = a.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		id, recorded, err = a.append(ctx, tx, call, Action(action), recordID, details)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return id, recorded, nil
}

// append writes inside the caller's transaction, so the entry commits or
// rolls back with the mutation it describes.
func (a *AuditLog) append(ctx context.Context, tx store.Tx, call types.Call, action Action, recordID uint64, details string) (uint64, bool, error) {
	settings, err := loadSettings(ctx, tx, a.policy)
	if err != nil {
		return 0, false, err
	}
	if !settings.AuditEnabled {
		return 0, false, nil
	}

	id, err := tx.NextID(ctx, store.SeqAudit)
	if err != nil {
		return 0, false, err
	}
	if err := tx.AppendAudit(ctx, store.AuditEntry{
		ID:        id,
		Action:    string(action),
		Actor:     call.Caller,
		RecordID:  recordID,
		Timestamp: call.Now,
		Details:   details,
	}); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (a *AuditLog) Get(ctx context.Context, id uint64) (store.AuditEntry, error) {
	var (
		e  store.AuditEntry
		ok bool
	)
	err := a.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		e, ok, err = tx.GetAuditEntry(ctx, id)
		return err
	})
	if err != nil {
		return store.AuditEntry{}, err
	}
	if !ok {
		return store.AuditEntry{}, ErrAuditNotFound
	}
	return e, nil
}

func (a *AuditLog) List(ctx context.Context, f store.AuditFilter) ([]store.AuditEntry, error) {
	var out []store.AuditEntry
	err := a.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		out, err = tx.ListAudit(ctx, f)
		return err
	})
	return out, err
}

// loadSettings returns the stored settings, or the policy defaults before
// any have been written.
func loadSettings(ctx context.Context, tx store.ReadTx, p Policy) (store.Settings, error) {
	s, ok, err := tx.GetSettings(ctx)
	if err != nil {
		return store.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return p.defaultSettings(), nil
	}
	return s, nil
}
