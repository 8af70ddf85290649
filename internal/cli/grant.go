package cli

import (
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/grpcapi"
)

func NewOwnerCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Bind and show the administrative owner of a record id",
	}
	cmd.AddCommand(
		newRecordIDCommand(opts, "bind", "Bind the caller as owner of a record id", "SetRecordOwner"),
		newRecordIDCommand(opts, "get", "Show the bound owner of a record id", "GetRecordOwner"),
	)
	return cmd
}

// grantFlags are shared by grant add and grant group.
type grantFlags struct {
	Expiry uint64
	Reason string
	Level  uint8
}

func (g *grantFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&g.Expiry, "expiry", 0, "last logical time the grant is valid (0: never expires)")
	cmd.Flags().StringVar(&g.Reason, "reason", "", "justification, 1-200 characters")
	cmd.Flags().Uint8Var(&g.Level, "level", 0, "access level 0-3")
}

func (g *grantFlags) expiry() *types.LogicalTime {
	if g.Expiry == 0 {
		return nil
	}
	e := types.LogicalTime(g.Expiry)
	return &e
}

func NewGrantCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Issue, revoke and list access grants",
	}
	cmd.AddCommand(
		newGrantAddCommand(opts),
		newGrantGroupCommand(opts),
		newGrantRevokeCommand(opts),
		newGrantGetCommand(opts),
		newRecordIDCommand(opts, "list", "List every grant ever issued on a record", "ListGrants"),
	)
	return cmd
}

func newGrantAddCommand(opts *RootOptions) *cobra.Command {
	var (
		flags     grantFlags
		grantType string
	)
	cmd := &cobra.Command{
		Use:   "add <record-id> <grantee>",
		Short: "Grant a principal access to a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record id", args[0])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, "GrantAccess", types.GrantAccessRequest{
				RecordID:  id,
				Grantee:   types.PrincipalID(args[1]),
				GrantType: types.GrantType(grantType),
				Expiry:    flags.expiry(),
				Reason:    flags.Reason,
				Level:     flags.Level,
			})
		},
	}
	cmd.Flags().StringVar(&grantType, "type", string(types.GrantIndividual), "individual|group|temporary")
	flags.bind(cmd)
	return cmd
}

func newGrantGroupCommand(opts *RootOptions) *cobra.Command {
	var flags grantFlags
	cmd := &cobra.Command{
		Use:   "group <record-id> <group-id>",
		Short: "Grant a group access to a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record id", args[0])
			if err != nil {
				return err
			}
			gid, err := parseID("group id", args[1])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, "GrantGroupAccess", types.GrantGroupAccessRequest{
				RecordID: id,
				GroupID:  gid,
				Expiry:   flags.expiry(),
				Reason:   flags.Reason,
				Level:    flags.Level,
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newGrantRevokeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <record-id> <grantee>",
		Short: "Revoke a grant; the grant key stays consumed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record id", args[0])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, "RevokeAccess", types.RevokeAccessRequest{
				RecordID: id,
				Grantee:  types.PrincipalID(args[1]),
			})
		},
	}
}

func newGrantGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <record-id> <grantee>",
		Short: "Show one grant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record id", args[0])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, "GetGrant", grpcapi.RecordPrincipal{RecordID: id, Principal: types.PrincipalID(args[1])})
		},
	}
}

func NewAccessCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "access <record-id> <principal>",
		Short: "Check whether a principal holds a live grant",
		Long: `Check whether a principal holds a live grant on a record at the call's
logical time (--at, or the server clock).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record id", args[0])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, "HasAccess", grpcapi.RecordPrincipal{RecordID: id, Principal: types.PrincipalID(args[1])})
		},
	}
}
