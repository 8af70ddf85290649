package store

import (
	"context"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// Grant authorizes one grantee to reference one record's payload.  A grant
// key (RecordID, Grantee) is consumed forever once created; revocation is
// terminal.
type Grant struct {
	RecordID  uint64             `json:"record_id"`
	Grantee   types.PrincipalID  `json:"grantee"`
	GrantType types.GrantType    `json:"grant_type"`
	Expiry    *types.LogicalTime `json:"expiry,omitempty"`
	Reason    string             `json:"reason"`
	Level     uint8              `json:"level"`
	Granter   types.PrincipalID  `json:"granter"`
	GrantedAt types.LogicalTime  `json:"granted_at"`
	Revoked   bool               `json:"revoked"`
	RevokedAt *types.LogicalTime `json:"revoked_at,omitempty"`

	// GroupID is set for grants issued through a group; the grantee is
	// then the group's creator.
	GroupID uint64 `json:"group_id,omitempty"`
}

// Live reports whether g currently authorizes access at now.
func (g Grant) Live(now types.LogicalTime) bool {
	if g.Revoked {
		return false
	}
	return g.Expiry == nil || *g.Expiry >= now
}

// RecordOwner is the administrative owner bound to a record id for grant
// purposes.  It is independent of Record.Owner.
type RecordOwner struct {
	RecordID uint64            `json:"record_id"`
	Owner    types.PrincipalID `json:"owner"`
	BoundAt  types.LogicalTime `json:"bound_at"`
}

type GrantReader interface {
	GetGrant(ctx context.Context, recordID uint64, grantee types.PrincipalID) (Grant, bool, error)
	ListGrants(ctx context.Context, recordID uint64) ([]Grant, error)

	// GrantCount is the number of grant keys ever created for recordID.
	// Revoked grants still count.
	GrantCount(ctx context.Context, recordID uint64) (int, error)

	GetRecordOwner(ctx context.Context, recordID uint64) (RecordOwner, bool, error)
}

type GrantWriter interface {
	InsertGrant(ctx context.Context, g Grant) error
	UpdateGrant(ctx context.Context, g Grant) error
	BindRecordOwner(ctx context.Context, o RecordOwner) error
}
