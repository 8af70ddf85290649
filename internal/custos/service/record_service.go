package service

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// RecordService owns records and their revision history.  Custodians
// create and revise records; owners archive them; either may lock.
type RecordService struct {
	st     store.Store
	audit  *AuditLog
	policy Policy
}

func NewRecordService(st store.Store, audit *AuditLog, policy Policy) *RecordService {
	return &RecordService{st: st, audit: audit, policy: policy}
}

// StoreRecord creates a record on behalf of req.Owner with the caller as
// custodian and returns its id.
func (s *RecordService) StoreRecord(ctx context.Context, call types.Call, req types.StoreRecordRequest) (uint64, error) {
	switch {
	case req.Owner.IsNull():
		return 0, ErrInvalidOwner
	case call.Caller.IsNull():
		return 0, ErrInvalidCustodian
	case !req.Kind.Valid():
		return 0, ErrInvalidKind
	case req.ContentHash.IsZero():
		return 0, ErrInvalidHash
	case req.KeyHash.IsZero():
		return 0, ErrInvalidKeyHash
	case !textLen(req.Metadata, 1, MaxMetadataLen):
		return 0, ErrInvalidMetadata
	}

	var id uint64
	err := s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		n, err := tx.CountOwnerRecords(ctx, req.Owner)
		if err != nil {
			return err
		}
		if n >= s.policy.MaxRecordsPerOwner {
			return ErrLimitExceeded
		}

		id, err = tx.NextID(ctx, store.SeqRecord)
		if err != nil {
			return err
		}
		if err := tx.InsertRecord(ctx, store.Record{
			ID:          id,
			Owner:       req.Owner,
			Custodian:   call.Caller,
			Kind:        req.Kind,
			ContentHash: req.ContentHash,
			KeyHash:     req.KeyHash,
			Metadata:    req.Metadata,
			Status:      types.StatusActive,
			Version:     1,
			CreatedAt:   call.Now,
		}); err != nil {
			return err
		}

		_, _, err = s.audit.append(ctx, tx, call, ActionRecordStored, id,
			fmt.Sprintf("kind=%s owner=%s", req.Kind, req.Owner))
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateRecordHash replaces the record's hashes, archiving the previous
// pair as a new revision, and returns that revision's id.
func (s *RecordService) UpdateRecordHash(ctx context.Context, call types.Call, req types.UpdateRecordHashRequest) (uint64, error) {
	var revID uint64
	err := s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := s.load(ctx, tx, req.RecordID)
		if err != nil {
			return err
		}

		switch {
		case call.Caller != rec.Custodian:
			return ErrAccessDenied
		case rec.Locked:
			return ErrLocked
		case req.ContentHash.IsZero():
			return ErrInvalidHash
		case req.KeyHash.IsZero():
			return ErrInvalidKeyHash
		case !textLen(req.ChangeNote, 0, MaxChangeNoteLen):
			return ErrInvalidChangeNote
		}

		revID = rec.RevisionCount + 1
		if err := tx.InsertRevision(ctx, store.Revision{
			RecordID:    rec.ID,
			RevisionID:  revID,
			ContentHash: rec.ContentHash,
			KeyHash:     rec.KeyHash,
			Editor:      call.Caller,
			ChangeNote:  req.ChangeNote,
			Timestamp:   call.Now,
		}); err != nil {
			return err
		}

		rec.ContentHash = req.ContentHash
		rec.KeyHash = req.KeyHash
		rec.RevisionCount = revID
		rec.Version = revID + 1
		if err := tx.UpdateRecord(ctx, rec); err != nil {
			return err
		}

		_, _, err = s.audit.append(ctx, tx, call, ActionRecordUpdated, rec.ID,
			fmt.Sprintf("revision=%d version=%d", revID, rec.Version))
		return err
	})
	if err != nil {
		return 0, err
	}
	return revID, nil
}

// LockRecord freezes the record's hashes for good.  There is no unlock.
func (s *RecordService) LockRecord(ctx context.Context, call types.Call, recordID uint64) error {
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := s.load(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if call.Caller != rec.Owner && call.Caller != rec.Custodian {
			return ErrAccessDenied
		}
		if rec.Locked {
			return ErrAlreadyLocked
		}

		rec.Locked = true
		if err := tx.UpdateRecord(ctx, rec); err != nil {
			return err
		}
		_, _, err = s.audit.append(ctx, tx, call, ActionRecordLocked, rec.ID, "")
		return err
	})
}

// ArchiveRecord moves an active record to archived.  Archived is final.
func (s *RecordService) ArchiveRecord(ctx context.Context, call types.Call, recordID uint64) error {
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := s.load(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if call.Caller != rec.Owner {
			return ErrAccessDenied
		}
		if rec.Status != types.StatusActive {
			return ErrInvalidStatus
		}

		rec.Status = types.StatusArchived
		if err := tx.UpdateRecord(ctx, rec); err != nil {
			return err
		}
		_, _, err = s.audit.append(ctx, tx, call, ActionRecordArchived, rec.ID, "")
		return err
	})
}

// LogAccess overwrites the caller's access indicator for recordID.  It is
// not an access check and does not require the record to exist.
func (s *RecordService) LogAccess(ctx context.Context, call types.Call, req types.LogAccessRequest) error {
	return s.st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.PutAccessIndicator(ctx, store.AccessIndicator{
			RecordID:   req.RecordID,
			Accessor:   call.Caller,
			AccessedAt: call.Now,
			AccessType: req.AccessType,
		}); err != nil {
			return err
		}
		_, _, err := s.audit.append(ctx, tx, call, ActionRecordAccessed, req.RecordID,
			fmt.Sprintf("type=%s", req.AccessType))
		return err
	})
}

func (s *RecordService) GetRecord(ctx context.Context, id uint64) (store.Record, error) {
	var rec store.Record
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		rec, err = s.load(ctx, tx, id)
		return err
	})
	return rec, err
}

func (s *RecordService) GetRevision(ctx context.Context, recordID, revisionID uint64) (store.Revision, error) {
	var (
		rev store.Revision
		ok  bool
	)
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		rev, ok, err = tx.GetRevision(ctx, recordID, revisionID)
		return err
	})
	if err != nil {
		return store.Revision{}, err
	}
	if !ok {
		return store.Revision{}, ErrRevisionNotFound
	}
	return rev, nil
}

// GetLatestRevisionID returns the newest revision id, 0 when the record
// was never updated.
func (s *RecordService) GetLatestRevisionID(ctx context.Context, recordID uint64) (uint64, error) {
	rec, err := s.GetRecord(ctx, recordID)
	if err != nil {
		return 0, err
	}
	return rec.RevisionCount, nil
}

func (s *RecordService) ListOwnerRecords(ctx context.Context, owner types.PrincipalID) ([]uint64, error) {
	var ids []uint64
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		ids, err = tx.ListOwnerRecords(ctx, owner)
		return err
	})
	return ids, err
}

func (s *RecordService) ListCustodianRecords(ctx context.Context, custodian types.PrincipalID) ([]uint64, error) {
	var ids []uint64
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		ids, err = tx.ListCustodianRecords(ctx, custodian)
		return err
	})
	return ids, err
}

func (s *RecordService) GetAccessIndicator(ctx context.Context, recordID uint64, accessor types.PrincipalID) (store.AccessIndicator, error) {
	var (
		ind store.AccessIndicator
		ok  bool
	)
	err := s.st.View(ctx, func(ctx context.Context, tx store.ReadTx) error {
		var err error
		ind, ok, err = tx.GetAccessIndicator(ctx, recordID, accessor)
		return err
	})
	if err != nil {
		return store.AccessIndicator{}, err
	}
	if !ok {
		return store.AccessIndicator{}, ErrNotFound
	}
	return ind, nil
}

func (s *RecordService) load(ctx context.Context, tx store.ReadTx, id uint64) (store.Record, error) {
	rec, ok, err := tx.GetRecord(ctx, id)
	if err != nil {
		return store.Record{}, err
	}
	if !ok {
		return store.Record{}, ErrRecordNotFound
	}
	return rec, nil
}
