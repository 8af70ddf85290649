package store

import (
	"context"
)

// Sequence names a monotonically increasing identifier counter.  Counters
// advance inside write transactions, so a rolled-back call never consumes
// an id.
type Sequence string

const (
	SeqRecord Sequence = "record"
	SeqGroup  Sequence = "group"
	SeqAudit  Sequence = "audit"
)

// ReadTx is a consistent read-only view of the ledger.
type ReadTx interface {
	RecordReader
	GrantReader
	GroupReader
	AuditReader
	SettingsReader
	ClockReader
}

// Tx is a read-write transaction.  Either every mutation made through it
// becomes visible, or none does.
type Tx interface {
	ReadTx
	RecordWriter
	GrantWriter
	GroupWriter
	AuditWriter
	SettingsWriter
	ClockWriter

	// NextID advances seq and returns the new value.  The first id is 1.
	NextID(ctx context.Context, seq Sequence) (uint64, error)
}

// Store serializes write transactions relative to each other.  Reads may
// run concurrently against a consistent snapshot.
type Store interface {
	// Update runs fn in a write transaction.  A non-nil error from fn
	// discards every change fn made.
	Update(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// View runs fn against a read-only snapshot.
	View(ctx context.Context, fn func(ctx context.Context, tx ReadTx) error) error

	Close() error
}
