package store

import (
	"context"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// Settings is the ledger-wide configuration owned by a single
// administrator.
type Settings struct {
	Admin              types.PrincipalID `json:"admin,omitempty"`
	MaxGrantsPerRecord uint64            `json:"max_grants_per_record"`
	AuditEnabled       bool              `json:"audit_enabled"`
}

type SettingsReader interface {
	// GetSettings returns ok=false until settings are first written.
	GetSettings(ctx context.Context) (Settings, bool, error)
}

type SettingsWriter interface {
	PutSettings(ctx context.Context, s Settings) error
}

// ClockReader exposes the persisted high-water mark of the ledger clock.
type ClockReader interface {
	// GetClockMark returns 0 until a mark is first written.
	GetClockMark(ctx context.Context) (types.LogicalTime, error)
}

type ClockWriter interface {
	PutClockMark(ctx context.Context, t types.LogicalTime) error
}
