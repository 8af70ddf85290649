package service

import (
	"unicode/utf8"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
)

const (
	DefaultMaxRecordsPerOwner = 1000
	DefaultMaxGrantsPerRecord = 50

	MaxMetadataLen   = 256
	MaxChangeNoteLen = 128
	MaxReasonLen     = 200
	MaxGroupNameLen  = 50
)

// GroupAccessMode decides what a group grant authorizes.
type GroupAccessMode string

const (
	// GroupAccessProxy: only the group's creator, who holds the grant,
	// gains access.
	GroupAccessProxy GroupAccessMode = "proxy"

	// GroupAccessMembers: current members of a group holding a live grant
	// on the record gain access as well.
	GroupAccessMembers GroupAccessMode = "members"
)

// OwnerBindingMode decides who may bind a record's administrative owner.
type OwnerBindingMode string

const (
	// OwnerBindingOpen: the first caller binds, whether or not the record
	// exists.
	OwnerBindingOpen OwnerBindingMode = "open"

	// OwnerBindingSubject: only Record.Owner of an existing record binds.
	OwnerBindingSubject OwnerBindingMode = "subject"
)

// Policy holds the static limits and modes of a ledger.  MaxGrantsPerRecord
// and AuditEnabled only seed Settings; once stored, the administrator
// changes them at runtime.
type Policy struct {
	MaxRecordsPerOwner int
	MaxGrantsPerRecord uint64
	AuditEnabled       bool
	GroupAccess        GroupAccessMode
	OwnerBinding       OwnerBindingMode
	// WallClock runs calls that supply no time at the current Unix second.
	WallClock bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRecordsPerOwner: DefaultMaxRecordsPerOwner,
		MaxGrantsPerRecord: DefaultMaxGrantsPerRecord,
		AuditEnabled:       true,
		GroupAccess:        GroupAccessProxy,
		OwnerBinding:       OwnerBindingOpen,
	}
}

func (p Policy) defaultSettings() store.Settings {
	return store.Settings{
		MaxGrantsPerRecord: p.MaxGrantsPerRecord,
		AuditEnabled:       p.AuditEnabled,
	}
}

// textLen reports whether s holds between lo and hi characters.
func textLen(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}
