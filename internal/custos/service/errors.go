package service

import (
	"errors"
	"fmt"
)

// Code categorizes a domain failure.  Transports map codes onto their own
// status vocabularies.
type Code string

const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeAlreadyExists  Code = "ALREADY_EXISTS"
	CodeAccessDenied   Code = "ACCESS_DENIED"
	CodeNotOwner       Code = "NOT_OWNER"
	CodeNotCreator     Code = "NOT_CREATOR"
	CodeNotAdmin       Code = "NOT_ADMIN"
	CodeLocked         Code = "LOCKED"
	CodeAlreadyLocked  Code = "ALREADY_LOCKED"
	CodeAlreadyOwned   Code = "ALREADY_OWNED"
	CodeAlreadyRevoked Code = "ALREADY_REVOKED"
	CodeInvalidInput   Code = "INVALID_INPUT"
	CodeInvalidStatus  Code = "INVALID_STATUS"
	CodeInactive       Code = "INACTIVE"
	CodeLimitExceeded  Code = "LIMIT_EXCEEDED"
)

// Error is returned for every rejected operation.  A rejected operation
// never leaves partial state behind.
type Error struct {
	Code    Code
	Field   string // offending input, for CodeInvalidInput and CodeNotFound
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code, and on Field when the target names one.  So
// errors.Is(err, ErrInvalidInput) holds for every invalid-input variant
// while errors.Is(err, ErrInvalidReason) holds only for that field.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Field == "" || t.Field == e.Field)
}

// CodeOf returns the domain code carried by err, or "" for
// infrastructure errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func invalid(field, msg string) *Error {
	return &Error{Code: CodeInvalidInput, Field: field, Message: msg}
}

var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrRecordNotFound   = &Error{Code: CodeNotFound, Field: "record_id", Message: "record not found"}
	ErrRevisionNotFound = &Error{Code: CodeNotFound, Field: "revision_id", Message: "revision not found"}
	ErrGrantNotFound    = &Error{Code: CodeNotFound, Field: "grantee", Message: "grant not found"}
	ErrGroupNotFound    = &Error{Code: CodeNotFound, Field: "group_id", Message: "group not found"}
	ErrAuditNotFound    = &Error{Code: CodeNotFound, Field: "audit_id", Message: "audit entry not found"}

	ErrAccessDenied = &Error{Code: CodeAccessDenied, Message: "caller may not modify this record"}
	ErrNotOwner     = &Error{Code: CodeNotOwner, Message: "caller is not the bound owner of this record"}
	ErrNotCreator   = &Error{Code: CodeNotCreator, Message: "caller did not create this group"}
	ErrNotAdmin     = &Error{Code: CodeNotAdmin, Message: "caller is not the ledger administrator"}

	ErrLocked         = &Error{Code: CodeLocked, Message: "record is locked"}
	ErrAlreadyLocked  = &Error{Code: CodeAlreadyLocked, Message: "record is already locked"}
	ErrAlreadyOwned   = &Error{Code: CodeAlreadyOwned, Message: "owner already bound"}
	ErrAlreadyExists  = &Error{Code: CodeAlreadyExists, Message: "grant already exists for this grantee"}
	ErrAlreadyRevoked = &Error{Code: CodeAlreadyRevoked, Message: "grant already revoked"}
	ErrInvalidStatus  = &Error{Code: CodeInvalidStatus, Message: "record is not active"}
	ErrInactive       = &Error{Code: CodeInactive, Message: "group is not active"}
	ErrLimitExceeded  = &Error{Code: CodeLimitExceeded, Message: "limit exceeded"}

	ErrInvalidInput      = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrInvalidOwner      = invalid("owner", "owner must not be the null principal")
	ErrInvalidCustodian  = invalid("custodian", "caller must not be the null principal")
	ErrInvalidKind       = invalid("kind", "unknown record kind")
	ErrInvalidHash       = invalid("content_hash", "content hash is empty")
	ErrInvalidKeyHash    = invalid("key_hash", "key hash is empty")
	ErrInvalidMetadata   = invalid("metadata", "metadata must be 1-256 characters")
	ErrInvalidChangeNote = invalid("change_note", "change note must be at most 128 characters")
	ErrInvalidGrantType  = invalid("grant_type", "unknown grant type")
	ErrInvalidExpiry     = invalid("expiry", "expiry is in the past")
	ErrInvalidReason     = invalid("reason", "reason must be 1-200 characters")
	ErrInvalidLevel      = invalid("level", "level must be 0-3")
	ErrInvalidName       = invalid("name", "group name must be 1-50 characters")
	ErrInvalidMaxGrants  = invalid("max_grants", "max grants must be positive")
	ErrInvalidAction     = invalid("action", "action must not be empty")
	ErrStaleTime         = invalid(TimeField, "time is before the ledger clock")
)
