package httpapi

import (
	"net/http"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

type grantsResponse struct {
	RecordID uint64        `json:"record_id"`
	Grants   []store.Grant `json:"grants"`
}

func (s *Server) handleSetRecordOwner(w http.ResponseWriter, r *http.Request) {
	s.recordAction(w, r, s.ledger.Grants.SetRecordOwner)
}

func (s *Server) handleGetRecordOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	o, err := s.ledger.Grants.GetRecordOwner(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, o)
}

func (s *Server) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	var req types.GrantAccessRequest
	if !decode(w, r, &req) {
		return
	}
	req.RecordID = id

	if err := s.ledger.Grants.GrantAccess(r.Context(), c, req); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, types.OKResponse{OK: true})
}

func (s *Server) handleGrantGroupAccess(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	var req types.GrantGroupAccessRequest
	if !decode(w, r, &req) {
		return
	}
	req.RecordID = id

	if err := s.ledger.Grants.GrantGroupAccess(r.Context(), c, req); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, types.OKResponse{OK: true})
}

func (s *Server) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	req := types.RevokeAccessRequest{RecordID: id, Grantee: principalParam(r, "grantee")}
	if err := s.ledger.Grants.RevokeAccess(r.Context(), c, req); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.OKResponse{OK: true})
}

func (s *Server) handleGetGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	g, err := s.ledger.Grants.GetGrant(r.Context(), id, principalParam(r, "grantee"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, g)
}

func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	grants, err := s.ledger.Grants.ListGrants(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if grants == nil {
		grants = []store.Grant{}
	}
	respond(w, r, http.StatusOK, grantsResponse{RecordID: id, Grants: grants})
}

func (s *Server) handleHasAccess(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	user := principalParam(r, "user")

	granted, err := s.ledger.Grants.HasAccess(r.Context(), id, user, c.Now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.AccessResponse{RecordID: id, User: user, Granted: granted, At: c.Now})
}
