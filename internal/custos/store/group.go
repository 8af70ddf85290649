package store

import (
	"context"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

type Group struct {
	ID        uint64            `json:"id"`
	Name      string            `json:"name"`
	Creator   types.PrincipalID `json:"creator"`
	Active    bool              `json:"active"`
	CreatedAt types.LogicalTime `json:"created_at"`
}

type GroupReader interface {
	GetGroup(ctx context.Context, id uint64) (Group, bool, error)
	IsGroupMember(ctx context.Context, groupID uint64, member types.PrincipalID) (bool, error)
	ListGroupMembers(ctx context.Context, groupID uint64) ([]types.PrincipalID, error)
}

type GroupWriter interface {
	InsertGroup(ctx context.Context, g Group) error

	// AddGroupMember and RemoveGroupMember are idempotent.
	AddGroupMember(ctx context.Context, groupID uint64, member types.PrincipalID, at types.LogicalTime) error
	RemoveGroupMember(ctx context.Context, groupID uint64, member types.PrincipalID) error
}
