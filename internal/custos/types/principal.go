package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// PrincipalID is an opaque, externally authenticated identity.
type PrincipalID string

// NullPrincipal is the well-known principal that never owns or creates
// anything.  Blank identities are treated the same way.
const NullPrincipal PrincipalID = ""

// IsNull reports whether p is the null principal.
func (p PrincipalID) IsNull() bool {
	return strings.TrimSpace(string(p)) == string(NullPrincipal)
}

// LogicalTime is a monotonically non-decreasing counter supplied by the
// environment.  It stands in for block height / wall time.
type LogicalTime uint64

// Call carries the ambient identity and clock of a single operation.
type Call struct {
	Caller PrincipalID
	Now    LogicalTime
}

// HashSize is the width of every digest held by the ledger.
const HashSize = 32

// Hash is a 32-byte digest of an off-ledger payload or key.  The zero
// value is the "empty" hash and is never accepted as input.
type Hash [HashSize]byte

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// ParseHash decodes a hex digest.  An empty string yields the zero hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	s = strings.TrimSpace(s)
	if s == "" {
		return h, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("hash: %w", err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("hash: want %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashFromBytes copies a raw digest.  Anything but exactly HashSize bytes
// is rejected.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("hash: want %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) MarshalText() ([]byte, error) {
	if h.IsZero() {
		return []byte{}, nil
	}
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(b []byte) error {
	v, err := ParseHash(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}
