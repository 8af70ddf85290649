package service

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// GroupRegistry keeps groups and their membership.  Only a group's creator
// changes its members.
type GroupRegistry struct {
	st    store.Store
	audit *AuditLog
}

func NewGroupRegistry(st store.Store, audit *AuditLog) *GroupRegistry {
	return &GroupRegistry{st: st, audit: audit}
}

func (r *GroupRegistry) CreateGroup(ctx context.Context, call types.Call, req types.CreateGroupRequest) (uint64, error) {
	if !textLen(req.Name, 1, MaxGroupNameLen) {
		return 0, ErrInvalidName
	}

	var id uint64
	err := r.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		id, err = tx.NextID(ctx, store.SeqGroup)
		if err != nil {
			return err
		}
		if err := tx.InsertGroup(ctx, store.Group{
			ID:        id,
			Name:      req.Name,
			Creator:   call.Caller,
			Active:    true,
			CreatedAt: call.Now,
		}); err != nil {
			return err
		}
		_, _, err = r.audit.append(ctx, tx, call, ActionGroupCreated, 0,
			fmt.Sprintf("group=%d name=%q", id, req.Name))
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *GroupRegistry) AddMember(ctx context.Context, call types.Call, req types.GroupMemberRequest) error {
	return r.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		g, err := r.resolveOwned(ctx, tx, call, req.GroupID)
		if err != nil {
			return err
		}
		if !g.Active {
			return ErrInactive
		}
		if err := tx.AddGroupMember(ctx, g.ID, req.Member, call.Now); err != nil {
			return err
		}
		_, _, err = r.audit.append(ctx, tx, call, ActionMemberAdded, 0,
			fmt.Sprintf("group=%d member=%s", g.ID, req.Member))
		return err
	})
}

// RemoveMember does not require the group to be active.
func (r *GroupRegistry) RemoveMember(ctx context.Context, call types.Call, req types.GroupMemberRequest) error {
	return r.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		g, err := r.resolveOwned(ctx, tx, call, req.GroupID)
		if err != nil {
			return err
		}
		if err := tx.RemoveGroupMember(ctx, g.ID, req.Member); err != nil {
			return err
		}
		_, _, err = r.audit.append(ctx, tx, call, ActionMemberRemoved, 0,
			fmt.Sprintf("group=%d member=%s", g.ID, req.Member))
		return err
	})
}

func (r *GroupRegistry) GetGroup(ctx context.Context, id uint64) (store.Group, error) {
	var g store.Group
	err := r.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		g, err = r.resolve(ctx, tx, id)
		return err
	})
	return g, err
}

func (r *GroupRegistry) IsMember(ctx context.Context, groupID uint64, member types.PrincipalID) (bool, error) {
	var ok bool
	err := r.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		ok, err = tx.IsGroupMember(ctx, groupID, member)
		return err
	})
	return ok, err
}

func (r *GroupRegistry) Members(ctx context.Context, groupID uint64) ([]types.PrincipalID, error) {
	var out []types.PrincipalID
	err := r.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		if _, err := r.resolve(ctx, tx, groupID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListGroupMembers(ctx, groupID)
		return err
	})
	return out, err
}

func (r *GroupRegistry) resolve(ctx context.Context, tx store.ReadTx, id uint64) (store.Group, error) {
	g, ok, err := tx.GetGroup(ctx, id)
	if err != nil {
		return store.Group{}, err
	}
	if !ok {
		return store.Group{}, ErrGroupNotFound
	}
	return g, nil
}

func (r *GroupRegistry) resolveOwned(ctx context.Context, tx store.ReadTx, call types.Call, id uint64) (store.Group, error) {
	g, err := r.resolve(ctx, tx, id)
	if err != nil {
		return store.Group{}, err
	}
	if g.Creator != call.Caller {
		return store.Group{}, ErrNotCreator
	}
	return g, nil
}
