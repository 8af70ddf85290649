package sqlite

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

func (t *sqlTx) GetGroup(ctx context.Context, id uint64) (store.Group, bool, error) {
	var (
		g         store.Group
		active    int
		createdAt int64
	)
	err := t.tx.QueryRowContext(ctx, `
SELECT name, creator, active, created_at FROM access_groups WHERE group_id = ?;
`, int64(id)).Scan(&g.Name, &g.Creator, &active, &createdAt)
	if noRows(err) {
		return store.Group{}, false, nil
	}
	if err != nil {
		return store.Group{}, false, fmt.Errorf("GetGroup %d: %w", id, err)
	}
	g.ID = id
	g.Active = active == 1
	g.CreatedAt = types.LogicalTime(createdAt)
	return g, true, nil
}

func (t *sqlTx) IsGroupMember(ctx context.Context, groupID uint64, member types.PrincipalID) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `
SELECT 1 FROM access_group_members WHERE group_id = ? AND member = ?;
`, int64(groupID), string(member)).Scan(&one)
	if noRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("IsGroupMember %d: %w", groupID, err)
	}
	return true, nil
}

func (t *sqlTx) ListGroupMembers(ctx context.Context, groupID uint64) ([]types.PrincipalID, error) {
	rows, err := t.tx.QueryContext(ctx, `
SELECT member FROM access_group_members WHERE group_id = ? ORDER BY member;
`, int64(groupID))
	if err != nil {
		return nil, fmt.Errorf("ListGroupMembers %d: %w", groupID, err)
	}
	defer rows.Close()

	out := []types.PrincipalID{}
	for rows.Next() {
		var m types.PrincipalID
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("ListGroupMembers scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *sqlTx) InsertGroup(ctx context.Context, g store.Group) error {
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO access_groups(group_id, name, creator, active, created_at)
VALUES (?, ?, ?, ?, ?);
`, int64(g.ID), g.Name, string(g.Creator), boolInt(g.Active), int64(g.CreatedAt)); err != nil {
		return fmt.Errorf("InsertGroup %d: %w", g.ID, err)
	}
	return nil
}

func (t *sqlTx) AddGroupMember(ctx context.Context, groupID uint64, member types.PrincipalID, at types.LogicalTime) error {
	if _, err := t.tx.ExecContext(ctx, `
INSERT OR IGNORE INTO access_group_members(group_id, member, added_at) VALUES (?, ?, ?);
`, int64(groupID), string(member), int64(at)); err != nil {
		return fmt.Errorf("AddGroupMember %d: %w", groupID, err)
	}
	return nil
}

func (t *sqlTx) RemoveGroupMember(ctx context.Context, groupID uint64, member types.PrincipalID) error {
	if _, err := t.tx.ExecContext(ctx, `
DELETE FROM access_group_members WHERE group_id = ? AND member = ?;
`, int64(groupID), string(member)); err != nil {
		return fmt.Errorf("RemoveGroupMember %d: %w", groupID, err)
	}
	return nil
}
