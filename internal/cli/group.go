package cli

import (
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/grpcapi"
)

func NewGroupCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage named principal groups",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create a group owned by the caller",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.invoke(cmd, "CreateGroup", types.CreateGroupRequest{Name: args[0]})
			},
		},
		&cobra.Command{
			Use:   "show <group-id>",
			Short: "Show a group and its members",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("group id", args[0])
				if err != nil {
					return err
				}
				return opts.invoke(cmd, "GetGroup", grpcapi.GroupRef{GroupID: id})
			},
		},
		newMemberCommand(opts, "add", "Add a member (group creator only)", "AddGroupMember"),
		newMemberCommand(opts, "remove", "Remove a member (group creator only)", "RemoveGroupMember"),
		newMemberCommand(opts, "is-member", "Check group membership", "IsGroupMember"),
	)
	return cmd
}

func newMemberCommand(opts *RootOptions, use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <group-id> <principal>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("group id", args[0])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, method, types.GroupMemberRequest{GroupID: id, Member: types.PrincipalID(args[1])})
		},
	}
}
