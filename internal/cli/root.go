// Package cli implements custosctl, the operator client for a running
// custos-server.
package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/grpcapi"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Addr    string
	As      string // caller principal
	At      uint64 // logical time; 0 lets the server pick
	Format  string // "json" | "text"
	Timeout time.Duration

	// Conn, when set, is used instead of dialing Addr.
	Conn grpc.ClientConnInterface
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "custosctl",
		Short: "custosctl - operate a Custos ledger",
		Long:  "Client for the Custos record provenance and access-control ledger.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "localhost:9090", "custos-server gRPC address")
	cmd.PersistentFlags().StringVar(&opts.As, "as", "", "caller principal")
	cmd.PersistentFlags().Uint64Var(&opts.At, "at", 0, "logical time of the call (0: server clock)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "per-call timeout")

	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewOwnerCommand(opts))
	cmd.AddCommand(NewGrantCommand(opts))
	cmd.AddCommand(NewAccessCommand(opts))
	cmd.AddCommand(NewGroupCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

func (o *RootOptions) call() types.Call {
	return types.Call{Caller: types.PrincipalID(o.As), Now: types.LogicalTime(o.At)}
}

// invoke runs one ledger method and prints its response.
func (o *RootOptions) invoke(cmd *cobra.Command, method string, in any) error {
	conn := o.Conn
	if conn == nil {
		cc, err := grpc.NewClient(o.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return WrapExitError(ExitCommandError, "dial "+o.Addr, err)
		}
		defer cc.Close()
		conn = cc
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), o.Timeout)
	defer cancel()

	var out map[string]any
	if err := grpcapi.NewClient(conn).Invoke(ctx, o.call(), method, in, &out); err != nil {
		return callError(method, err)
	}
	return o.formatter(cmd).Success(out)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func parseID(name, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", name, s))
	}
	return n, nil
}

