package httpapi

import (
	"context"
	"net/http"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

type recordIDsResponse struct {
	Principal types.PrincipalID `json:"principal"`
	Records   []uint64          `json:"records"`
}

func (s *Server) handleStoreRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	var req types.StoreRecordRequest
	if !decode(w, r, &req) {
		return
	}

	id, err := s.ledger.Records.StoreRecord(r.Context(), c, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, types.IDResponse{ID: id})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	rec, err := s.ledger.Records.GetRecord(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rec)
}

func (s *Server) handleUpdateRecordHash(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	var req types.UpdateRecordHashRequest
	if !decode(w, r, &req) {
		return
	}
	req.RecordID = id

	rev, err := s.ledger.Records.UpdateRecordHash(r.Context(), c, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.IDResponse{ID: rev})
}

func (s *Server) handleLockRecord(w http.ResponseWriter, r *http.Request) {
	s.recordAction(w, r, s.ledger.Records.LockRecord)
}

func (s *Server) handleArchiveRecord(w http.ResponseWriter, r *http.Request) {
	s.recordAction(w, r, s.ledger.Records.ArchiveRecord)
}

// recordAction runs a body-less mutation keyed by the {id} path param.
func (s *Server) recordAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, c types.Call, id uint64) error) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	if err := fn(r.Context(), c, id); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.OKResponse{OK: true})
}

func (s *Server) handleLogAccess(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	var req types.LogAccessRequest
	if !decode(w, r, &req) {
		return
	}
	req.RecordID = id

	if err := s.ledger.Records.LogAccess(r.Context(), c, req); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.OKResponse{OK: true})
}

func (s *Server) handleGetAccessIndicator(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	ind, err := s.ledger.Records.GetAccessIndicator(r.Context(), id, principalParam(r, "accessor"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, ind)
}

func (s *Server) handleLatestRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	rev, err := s.ledger.Records.GetLatestRevisionID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.IDResponse{ID: rev})
}

func (s *Server) handleGetRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	revID, ok := uintParam(w, r, "rev")
	if !ok {
		return
	}
	rev, err := s.ledger.Records.GetRevision(r.Context(), id, revID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rev)
}

func (s *Server) handleListOwnerRecords(w http.ResponseWriter, r *http.Request) {
	s.listRecords(w, r, s.ledger.Records.ListOwnerRecords)
}

func (s *Server) handleListCustodianRecords(w http.ResponseWriter, r *http.Request) {
	s.listRecords(w, r, s.ledger.Records.ListCustodianRecords)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, p types.PrincipalID) ([]uint64, error)) {
	p := principalParam(r, "principal")
	ids, err := fn(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	respond(w, r, http.StatusOK, recordIDsResponse{Principal: p, Records: ids})
}
