package cli

import (
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/grpcapi"
)

func NewAdminCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Ledger-wide settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "claim",
			Short: "Become the ledger administrator (once per ledger)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.invoke(cmd, "ClaimAdmin", grpcapi.Empty{})
			},
		},
		&cobra.Command{
			Use:   "settings",
			Short: "Show the current settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.invoke(cmd, "GetSettings", grpcapi.Empty{})
			},
		},
		&cobra.Command{
			Use:   "max-grants <n>",
			Short: "Set the per-record grant limit",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := parseID("grant limit", args[0])
				if err != nil {
					return err
				}
				return opts.invoke(cmd, "SetMaxGrants", types.SetMaxGrantsRequest{MaxGrants: n})
			},
		},
		&cobra.Command{
			Use:       "audit <on|off>",
			Short:     "Enable or disable the audit log",
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"on", "off"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.invoke(cmd, "ToggleAudit", types.ToggleAuditRequest{Enabled: args[0] == "on"})
			},
		},
	)
	return cmd
}

func NewAuditCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read and append to the audit log",
	}
	cmd.AddCommand(newAuditListCommand(opts), newAuditGetCommand(opts), newAuditAppendCommand(opts))
	return cmd
}

func newAuditListCommand(opts *RootOptions) *cobra.Command {
	var (
		q        grpcapi.AuditQuery
		recordID uint64
		actor    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries in id order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("record") {
				q.RecordID = &recordID
			}
			q.Actor = types.PrincipalID(actor)
			return opts.invoke(cmd, "ListAudit", q)
		},
	}
	cmd.Flags().Uint64Var(&recordID, "record", 0, "only entries for this record id")
	cmd.Flags().StringVar(&actor, "actor", "", "only entries by this principal")
	cmd.Flags().StringVar(&q.Action, "action", "", "only entries with this action")
	cmd.Flags().Uint64Var(&q.AfterID, "after", 0, "only entries with a greater id")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum entries (0: all)")
	return cmd
}

func newAuditGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <entry-id>",
		Short: "Show one audit entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("entry id", args[0])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, "GetAuditEntry", grpcapi.AuditRef{ID: id})
		},
	}
}

func newAuditAppendCommand(opts *RootOptions) *cobra.Command {
	var req grpcapi.AppendAuditRequest
	cmd := &cobra.Command{
		Use:   "append <action>",
		Short: "Append an entry attributed to the caller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Action = args[0]
			return opts.invoke(cmd, "AppendAudit", req)
		},
	}
	cmd.Flags().Uint64Var(&req.RecordID, "record", 0, "record id the entry refers to")
	cmd.Flags().StringVar(&req.Details, "details", "", "free-form details")
	return cmd
}
