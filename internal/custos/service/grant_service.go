package service

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// GrantService decides who may reference a record's payload.  Each record
// id has at most one bound administrative owner, who alone issues and
// revokes grants on it.
type GrantService struct {
	st     store.Store
	audit  *AuditLog
	groups *GroupRegistry
	policy Policy
}

func NewGrantService(st store.Store, audit *AuditLog, groups *GroupRegistry, policy Policy) *GrantService {
	return &GrantService{st: st, audit: audit, groups: groups, policy: policy}
}

// SetRecordOwner binds the caller as the administrative owner of recordID.
// The binding happens once per id.
func (s *GrantService) SetRecordOwner(ctx context.Context, call types.Call, recordID uint64) error {
	if call.Caller.IsNull() {
		return ErrInvalidOwner
	}
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, ok, err := tx.GetRecordOwner(ctx, recordID); err != nil {
			return err
		} else if ok {
			return ErrAlreadyOwned
		}

		if s.policy.OwnerBinding == OwnerBindingSubject {
			rec, ok, err := tx.GetRecord(ctx, recordID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrRecordNotFound
			}
			if rec.Owner != call.Caller {
				return ErrAccessDenied
			}
		}

		if err := tx.BindRecordOwner(ctx, store.RecordOwner{
			RecordID: recordID,
			Owner:    call.Caller,
			BoundAt:  call.Now,
		}); err != nil {
			return err
		}
		_, _, err := s.audit.append(ctx, tx, call, ActionOwnerBound, recordID, "")
		return err
	})
}

// GrantAccess issues a grant keyed by (RecordID, Grantee).  A key is never
// reissued, not even after revocation.
func (s *GrantService) GrantAccess(ctx context.Context, call types.Call, req types.GrantAccessRequest) error {
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := s.requireOwner(ctx, tx, call, req.RecordID); err != nil {
			return err
		}
		if !req.GrantType.Valid() {
			return ErrInvalidGrantType
		}
		g := store.Grant{
			RecordID:  req.RecordID,
			Grantee:   req.Grantee,
			GrantType: req.GrantType,
			Expiry:    req.Expiry,
			Reason:    req.Reason,
			Level:     req.Level,
			Granter:   call.Caller,
			GrantedAt: call.Now,
		}
		if err := s.issue(ctx, tx, call, g); err != nil {
			return err
		}
		_, _, err := s.audit.append(ctx, tx, call, ActionAccessGranted, req.RecordID,
			fmt.Sprintf("grantee=%s type=%s level=%d", req.Grantee, req.GrantType, req.Level))
		return err
	})
}

// GrantGroupAccess issues a group grant.  The grant is keyed by the
// group's creator, who acts as proxy grantee for the whole group.
func (s *GrantService) GrantGroupAccess(ctx context.Context, call types.Call, req types.GrantGroupAccessRequest) error {
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := s.requireOwner(ctx, tx, call, req.RecordID); err != nil {
			return err
		}
		grp, err := s.groups.resolve(ctx, tx, req.GroupID)
		if err != nil {
			return err
		}
		g := store.Grant{
			RecordID:  req.RecordID,
			Grantee:   grp.Creator,
			GrantType: types.GrantGroup,
			Expiry:    req.Expiry,
			Reason:    req.Reason,
			Level:     req.Level,
			Granter:   call.Caller,
			GrantedAt: call.Now,
			GroupID:   grp.ID,
		}
		if err := s.issue(ctx, tx, call, g); err != nil {
			return err
		}
		_, _, err = s.audit.append(ctx, tx, call, ActionGroupAccessGranted, req.RecordID,
			fmt.Sprintf("group=%d proxy=%s level=%d", grp.ID, grp.Creator, req.Level))
		return err
	})
}

// issue validates the shared grant fields and inserts g.
func (s *GrantService) issue(ctx context.Context, tx store.Tx, call types.Call, g store.Grant) error {
	switch {
	case g.Expiry != nil && *g.Expiry < call.Now:
		return ErrInvalidExpiry
	case !textLen(g.Reason, 1, MaxReasonLen):
		return ErrInvalidReason
	case g.Level > types.MaxAccessLevel:
		return ErrInvalidLevel
	}

	settings, err := loadSettings(ctx, tx, s.policy)
	if err != nil {
		return err
	}
	n, err := tx.GrantCount(ctx, g.RecordID)
	if err != nil {
		return err
	}
	if uint64(n) >= settings.MaxGrantsPerRecord {
		return ErrLimitExceeded
	}

	if _, ok, err := tx.GetGrant(ctx, g.RecordID, g.Grantee); err != nil {
		return err
	} else if ok {
		return ErrAlreadyExists
	}
	return tx.InsertGrant(ctx, g)
}

// RevokeAccess revokes the grant for (recordID, grantee).  Expired grants
// can still be revoked; the key stays consumed.
func (s *GrantService) RevokeAccess(ctx context.Context, call types.Call, req types.RevokeAccessRequest) error {
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := s.requireOwner(ctx, tx, call, req.RecordID); err != nil {
			return err
		}
		g, ok, err := tx.GetGrant(ctx, req.RecordID, req.Grantee)
		if err != nil {
			return err
		}
		if !ok {
			return ErrGrantNotFound
		}
		if g.Revoked {
			return ErrAlreadyRevoked
		}

		at := call.Now
		g.Revoked = true
		g.RevokedAt = &at
		if err := tx.UpdateGrant(ctx, g); err != nil {
			return err
		}
		_, _, err = s.audit.append(ctx, tx, call, ActionAccessRevoked, req.RecordID,
			fmt.Sprintf("grantee=%s", req.Grantee))
		return err
	})
}

// HasAccess reports whether user holds a live grant on recordID at now.
// In members mode, membership in a group holding a live group grant on
// the record also counts.
func (s *GrantService) HasAccess(ctx context.Context, recordID uint64, user types.PrincipalID, now types.LogicalTime) (bool, error) {
	var granted bool
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		g, ok, err := tx.GetGrant(ctx, recordID, user)
		if err != nil {
			return err
		}
		if ok && g.Live(now) {
			granted = true
			return nil
		}
		if s.policy.GroupAccess != GroupAccessMembers {
			return nil
		}

		grants, err := tx.ListGrants(ctx, recordID)
		if err != nil {
			return err
		}
		for _, g := range grants {
			if g.GroupID == 0 || !g.Live(now) {
				continue
			}
			member, err := tx.IsGroupMember(ctx, g.GroupID, user)
			if err != nil {
				return err
			}
			if member {
				granted = true
				return nil
			}
		}
		return nil
	})
	return granted, err
}

func (s *GrantService) GetGrant(ctx context.Context, recordID uint64, grantee types.PrincipalID) (store.Grant, error) {
	var (
		g  store.Grant
		ok bool
	)
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		g, ok, err = tx.GetGrant(ctx, recordID, grantee)
		return err
	})
	if err != nil {
		return store.Grant{}, err
	}
	if !ok {
		return store.Grant{}, ErrGrantNotFound
	}
	return g, nil
}

func (s *GrantService) ListGrants(ctx context.Context, recordID uint64) ([]store.Grant, error) {
	var out []store.Grant
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		out, err = tx.ListGrants(ctx, recordID)
		return err
	})
	return out, err
}

func (s *GrantService) GetRecordOwner(ctx context.Context, recordID uint64) (store.RecordOwner, error) {
	var (
		o  store.RecordOwner
		ok bool
	)
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		o, ok, err = tx.GetRecordOwner(ctx, recordID)
		return err
	})
	if err != nil {
		return store.RecordOwner{}, err
	}
	if !ok {
		return store.RecordOwner{}, &Error{Code: CodeNotFound, Field: "record_id", Message: "no owner bound"}
	}
	return o, nil
}

// ClaimAdmin makes the caller the ledger administrator.  It succeeds once.
func (s *GrantService) ClaimAdmin(ctx context.Context, call types.Call) error {
	if call.Caller.IsNull() {
		return ErrInvalidOwner
	}
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		settings, err := loadSettings(ctx, tx, s.policy)
		if err != nil {
			return err
		}
		if !settings.Admin.IsNull() {
			return ErrAlreadyOwned
		}
		settings.Admin = call.Caller
		if err := tx.PutSettings(ctx, settings); err != nil {
			return err
		}
		_, _, err = s.audit.append(ctx, tx, call, ActionAdminClaimed, 0, "")
		return err
	})
}

func (s *GrantService) SetMaxGrants(ctx context.Context, call types.Call, req types.SetMaxGrantsRequest) error {
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		settings, err := s.requireAdmin(ctx, tx, call)
		if err != nil {
			return err
		}
		if req.MaxGrants == 0 {
			return ErrInvalidMaxGrants
		}
		prev := settings.MaxGrantsPerRecord
		settings.MaxGrantsPerRecord = req.MaxGrants
		if err := tx.PutSettings(ctx, settings); err != nil {
			return err
		}
		_, _, err = s.audit.append(ctx, tx, call, ActionMaxGrantsSet, 0,
			fmt.Sprintf("from=%d to=%d", prev, req.MaxGrants))
		return err
	})
}

// ToggleAudit switches audit recording.  The toggle itself is always
// recorded: disabling is audited before it takes effect, enabling after.
func (s *GrantService) ToggleAudit(ctx context.Context, call types.Call, req types.ToggleAuditRequest) error {
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		settings, err := s.requireAdmin(ctx, tx, call)
		if err != nil {
			return err
		}
		details := fmt.Sprintf("enabled=%t", req.Enabled)

		if !req.Enabled {
			if _, _, err := s.audit.append(ctx, tx, call, ActionAuditToggled, 0, details); err != nil {
				return err
			}
		}
		settings.AuditEnabled = req.Enabled
		if err := tx.PutSettings(ctx, settings); err != nil {
			return err
		}
		if req.Enabled {
			_, _, err = s.audit.append(ctx, tx, call, ActionAuditToggled, 0, details)
		}
		return err
	})
}

func (s *GrantService) Settings(ctx context.Context) (store.Settings, error) {
	var out store.Settings
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		out, err = loadSettings(ctx, tx, s.policy)
		return err
	})
	return out, err
}

func (s *GrantService) requireOwner(ctx context.Context, tx store.ReadTx, call types.Call, recordID uint64) error {
	o, ok, err := tx.GetRecordOwner(ctx, recordID)
	if err != nil {
		return err
	}
	if !ok || o.Owner != call.Caller {
		return ErrNotOwner
	}
	return nil
}

func (s *GrantService) requireAdmin(ctx context.Context, tx store.ReadTx, call types.Call) (store.Settings, error) {
	settings, err := loadSettings(ctx, tx, s.policy)
	if err != nil {
		return store.Settings{}, err
	}
	if settings.Admin.IsNull() || settings.Admin != call.Caller {
		return store.Settings{}, ErrNotAdmin
	}
	return settings, nil
}
