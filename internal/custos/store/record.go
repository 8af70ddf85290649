package store

import (
	"context"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// Record is one versioned, content-hashed artifact.  Version always equals
// RevisionCount+1.
type Record struct {
	ID            uint64             `json:"id"`
	Owner         types.PrincipalID  `json:"owner"`
	Custodian     types.PrincipalID  `json:"custodian"`
	Kind          types.RecordKind   `json:"kind"`
	ContentHash   types.Hash         `json:"content_hash"`
	KeyHash       types.Hash         `json:"key_hash"`
	Metadata      string             `json:"metadata"`
	Status        types.RecordStatus `json:"status"`
	Locked        bool               `json:"locked"`
	Version       uint64             `json:"version"`
	RevisionCount uint64             `json:"revision_count"`
	CreatedAt     types.LogicalTime  `json:"created_at"`
}

// Revision is an immutable snapshot of the hashes a record held before an
// update.
type Revision struct {
	RecordID    uint64            `json:"record_id"`
	RevisionID  uint64            `json:"revision_id"`
	ContentHash types.Hash        `json:"content_hash"`
	KeyHash     types.Hash        `json:"key_hash"`
	Editor      types.PrincipalID `json:"editor"`
	ChangeNote  string            `json:"change_note"`
	Timestamp   types.LogicalTime `json:"timestamp"`
}

// AccessIndicator is the latest access a principal made to a record.
// Later accesses overwrite earlier ones.
type AccessIndicator struct {
	RecordID   uint64            `json:"record_id"`
	Accessor   types.PrincipalID `json:"accessor"`
	AccessedAt types.LogicalTime `json:"accessed_at"`
	AccessType string            `json:"access_type"`
}

type RecordReader interface {
	GetRecord(ctx context.Context, id uint64) (Record, bool, error)
	GetRevision(ctx context.Context, recordID, revisionID uint64) (Revision, bool, error)

	// CountOwnerRecords returns the exact number of records indexed under
	// owner.
	CountOwnerRecords(ctx context.Context, owner types.PrincipalID) (int, error)

	ListOwnerRecords(ctx context.Context, owner types.PrincipalID) ([]uint64, error)
	ListCustodianRecords(ctx context.Context, custodian types.PrincipalID) ([]uint64, error)

	GetAccessIndicator(ctx context.Context, recordID uint64, accessor types.PrincipalID) (AccessIndicator, bool, error)
}

type RecordWriter interface {
	// InsertRecord stores a new record and indexes it under its owner and
	// custodian.
	InsertRecord(ctx context.Context, rec Record) error

	// UpdateRecord replaces the mutable fields of an existing record.
	UpdateRecord(ctx context.Context, rec Record) error

	InsertRevision(ctx context.Context, rev Revision) error
	PutAccessIndicator(ctx context.Context, ind AccessIndicator) error
}
