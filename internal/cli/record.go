package cli

import (
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/grpcapi"
)

// hashOptions are the flags shared by record store and record update.
type hashOptions struct {
	Content, ContentFile string
	Key, KeyFile         string
}

func (h *hashOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&h.Content, "content-hash", "", "content hash, hex")
	cmd.Flags().StringVar(&h.ContentFile, "content-hash-file", "", "file whose BLAKE3 digest is the content hash")
	cmd.Flags().StringVar(&h.Key, "key-hash", "", "key hash, hex")
	cmd.Flags().StringVar(&h.KeyFile, "key-hash-file", "", "file whose BLAKE3 digest is the key hash")
}

func (h *hashOptions) resolve() (content, key types.Hash, err error) {
	if content, err = hashFlag(h.Content, h.ContentFile, "content-hash"); err != nil {
		return
	}
	key, err = hashFlag(h.Key, h.KeyFile, "key-hash")
	return
}

func NewRecordCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Store, update and inspect records",
	}
	cmd.AddCommand(
		newRecordStoreCommand(opts),
		newRecordUpdateCommand(opts),
		newRecordIDCommand(opts, "get", "Show a record", "GetRecord"),
		newRecordIDCommand(opts, "lock", "Lock a record against updates", "LockRecord"),
		newRecordIDCommand(opts, "archive", "Archive an active record", "ArchiveRecord"),
		newRecordIDCommand(opts, "latest-revision", "Show the latest revision id", "GetLatestRevisionId"),
		newRecordRevisionCommand(opts),
		newRecordLogAccessCommand(opts),
		newRecordListCommand(opts, "owned", "List records owned by a principal", "ListOwnerRecords"),
		newRecordListCommand(opts, "custody", "List records held by a custodian", "ListCustodianRecords"),
	)
	return cmd
}

func newRecordStoreCommand(opts *RootOptions) *cobra.Command {
	var (
		req    types.StoreRecordRequest
		owner  string
		kind   string
		hashes hashOptions
	)
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Register a new record; the caller becomes its custodian",
		Example: `  custosctl --as dr-jones record store --owner patient-7 --kind lab-result \
    --content-hash-file report.enc --key-hash-file report.key --metadata "CBC panel"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, key, err := hashes.resolve()
			if err != nil {
				return err
			}
			req.Owner = types.PrincipalID(owner)
			req.Kind = types.RecordKind(kind)
			req.ContentHash, req.KeyHash = content, key
			return opts.invoke(cmd, "StoreRecord", req)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "record subject")
	cmd.Flags().StringVar(&kind, "kind", "", "consultation|prescription|lab-result|imaging|discharge")
	cmd.Flags().StringVar(&req.Metadata, "metadata", "", "descriptive metadata, 1-256 characters")
	hashes.bind(cmd)
	return cmd
}

func newRecordUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		req    types.UpdateRecordHashRequest
		hashes hashOptions
	)
	cmd := &cobra.Command{
		Use:   "update <record-id>",
		Short: "Replace a record's hashes, snapshotting the previous pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record id", args[0])
			if err != nil {
				return err
			}
			content, key, err := hashes.resolve()
			if err != nil {
				return err
			}
			req.RecordID = id
			req.ContentHash, req.KeyHash = content, key
			return opts.invoke(cmd, "UpdateRecordHash", req)
		},
	}
	cmd.Flags().StringVar(&req.ChangeNote, "note", "", "change note, at most 128 characters")
	hashes.bind(cmd)
	return cmd
}

// newRecordIDCommand builds a command whose only argument is a record id.
func newRecordIDCommand(opts *RootOptions, use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <record-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record id", args[0])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, method, grpcapi.RecordRef{RecordID: id})
		},
	}
}

func newRecordRevisionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revision <record-id> <revision-id>",
		Short: "Show a revision snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record id", args[0])
			if err != nil {
				return err
			}
			rev, err := parseID("revision id", args[1])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, "GetRevision", grpcapi.RevisionRef{RecordID: id, RevisionID: rev})
		},
	}
}

func newRecordLogAccessCommand(opts *RootOptions) *cobra.Command {
	var accessType string
	cmd := &cobra.Command{
		Use:   "log-access <record-id>",
		Short: "Record that the caller accessed a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("record id", args[0])
			if err != nil {
				return err
			}
			return opts.invoke(cmd, "LogAccess", types.LogAccessRequest{RecordID: id, AccessType: accessType})
		},
	}
	cmd.Flags().StringVar(&accessType, "type", "view", "access type")
	return cmd
}

func newRecordListCommand(opts *RootOptions, use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <principal>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.invoke(cmd, method, grpcapi.PrincipalRef{Principal: types.PrincipalID(args[0])})
		},
	}
}
