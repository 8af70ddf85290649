package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// HashReader returns the BLAKE3 digest of r, the width of a ledger hash.
func HashReader(r io.Reader) (types.Hash, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return types.Hash{}, err
	}
	return types.HashFromBytes(h.Sum(nil))
}

func HashFile(path string) (types.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Hash{}, err
	}
	defer f.Close()
	return HashReader(f)
}

func NewHashCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the BLAKE3 content hash of a file",
		Long: `Print the BLAKE3 content hash of a file as 64 hex characters.

The ledger never stores payloads, only their hashes. Use this to compute
the --content-hash or --key-hash of an encrypted payload or its wrapped key.

Use "-" to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				h   types.Hash
				err error
			)
			if args[0] == "-" {
				h, err = HashReader(cmd.InOrStdin())
			} else {
				h, err = HashFile(args[0])
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "hash", err)
			}
			return opts.formatter(cmd).Success(map[string]any{"blake3": h.String()})
		},
	}
}

// hashFlag resolves a hash given either as hex or as a file to digest.
func hashFlag(hexValue, file, name string) (types.Hash, error) {
	switch {
	case hexValue != "" && file != "":
		return types.Hash{}, NewExitError(ExitCommandError, "--"+name+" and --"+name+"-file are exclusive")
	case file != "":
		h, err := HashFile(file)
		if err != nil {
			return types.Hash{}, WrapExitError(ExitCommandError, "hash "+file, err)
		}
		return h, nil
	case hexValue != "":
		h, err := types.ParseHash(hexValue)
		if err != nil {
			return types.Hash{}, WrapExitError(ExitCommandError, "--"+name, err)
		}
		return h, nil
	}
	return types.Hash{}, nil
}
