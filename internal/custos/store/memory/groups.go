package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

func (t *tx) GetGroup(_ context.Context, id uint64) (store.Group, bool, error) {
	g, ok := t.s.groups[id]
	return g, ok, nil
}

func (t *tx) IsGroupMember(_ context.Context, groupID uint64, member types.PrincipalID) (bool, error) {
	_, ok := t.s.members[groupID][member]
	return ok, nil
}

func (t *tx) ListGroupMembers(_ context.Context, groupID uint64) ([]types.PrincipalID, error) {
	set := t.s.members[groupID]
	out := make([]types.PrincipalID, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (t *tx) InsertGroup(_ context.Context, g store.Group) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, exists := t.s.groups[g.ID]; exists {
		return fmt.Errorf("InsertGroup %d: duplicate id", g.ID)
	}
	t.s.groups[g.ID] = g
	t.onRollback(func() { delete(t.s.groups, g.ID) })
	return nil
}

func (t *tx) AddGroupMember(_ context.Context, groupID uint64, member types.PrincipalID, at types.LogicalTime) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	set, ok := t.s.members[groupID]
	if !ok {
		set = make(map[types.PrincipalID]types.LogicalTime)
		t.s.members[groupID] = set
	}
	if _, exists := set[member]; exists {
		return nil
	}
	set[member] = at
	t.onRollback(func() { delete(set, member) })
	return nil
}

func (t *tx) RemoveGroupMember(_ context.Context, groupID uint64, member types.PrincipalID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	set := t.s.members[groupID]
	at, exists := set[member]
	if !exists {
		return nil
	}
	delete(set, member)
	t.onRollback(func() { set[member] = at })
	return nil
}
