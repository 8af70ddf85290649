package httpapi

import (
	"net/http"
	"strconv"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

type appendAuditRequest struct {
	Action   string `json:"action"`
	RecordID uint64 `json:"record_id"`
	Details  string `json:"details,omitempty"`
}

type appendAuditResponse struct {
	ID       uint64 `json:"id"`
	Recorded bool   `json:"recorded"`
}

type auditResponse struct {
	Entries []store.AuditEntry `json:"entries"`
}

// ── Admin ────────────────────────────────────────────────────────────────────

func (s *Server) handleClaimAdmin(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	if err := s.ledger.Grants.ClaimAdmin(r.Context(), c); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.OKResponse{OK: true})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.ledger.Grants.Settings(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, settings)
}

func (s *Server) handleSetMaxGrants(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	var req types.SetMaxGrantsRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.ledger.Grants.SetMaxGrants(r.Context(), c, req); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.OKResponse{OK: true})
}

func (s *Server) handleToggleAudit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	var req types.ToggleAuditRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.ledger.Grants.ToggleAudit(r.Context(), c, req); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.OKResponse{OK: true})
}

// ── Audit ────────────────────────────────────────────────────────────────────

func (s *Server) handleAppendAudit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	var req appendAuditRequest
	if !decode(w, r, &req) {
		return
	}
	id, recorded, err := s.ledger.Audit.Append(r.Context(), c, req.Action, req.RecordID, req.Details)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, appendAuditResponse{ID: id, Recorded: recorded})
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	e, err := s.ledger.Audit.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, e)
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := store.AuditFilter{
		Actor:  types.PrincipalID(q.Get("actor")),
		Action: q.Get("action"),
	}
	if v := q.Get("record_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			badInput(w, r, "record_id", "record_id must be an unsigned integer")
			return
		}
		f.RecordID = &n
	}
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			badInput(w, r, "after", "after must be an unsigned integer")
			return
		}
		f.AfterID = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badInput(w, r, "limit", "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	entries, err := s.ledger.Audit.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.AuditEntry{}
	}
	respond(w, r, http.StatusOK, auditResponse{Entries: entries})
}
