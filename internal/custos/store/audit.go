package store

import (
	"context"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// AuditEntry is one immutable line of the append-only audit log.
type AuditEntry struct {
	ID        uint64            `json:"id"`
	Action    string            `json:"action"`
	Actor     types.PrincipalID `json:"actor"`
	RecordID  uint64            `json:"record_id"`
	Timestamp types.LogicalTime `json:"timestamp"`
	Details   string            `json:"details"`
}

// AuditFilter narrows ListAudit.  Zero-valued fields match everything.
type AuditFilter struct {
	RecordID *uint64
	Actor    types.PrincipalID
	Action   string
	AfterID  uint64
	Limit    int
}

type AuditReader interface {
	GetAuditEntry(ctx context.Context, id uint64) (AuditEntry, bool, error)

	// ListAudit returns matching entries in ascending id order.
	ListAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

type AuditWriter interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
}
