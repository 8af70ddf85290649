package httpapi

import (
	"net/http"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

type groupResponse struct {
	store.Group
	Members []types.PrincipalID `json:"members"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	var req types.CreateGroupRequest
	if !decode(w, r, &req) {
		return
	}

	id, err := s.ledger.Groups.CreateGroup(r.Context(), c, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, types.IDResponse{ID: id})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	g, err := s.ledger.Groups.GetGroup(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	members, err := s.ledger.Groups.Members(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if members == nil {
		members = []types.PrincipalID{}
	}
	respond(w, r, http.StatusOK, groupResponse{Group: g, Members: members})
}

func (s *Server) handleIsGroupMember(w http.ResponseWriter, r *http.Request) {
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	member := principalParam(r, "member")
	is, err := s.ledger.Groups.IsMember(r.Context(), id, member)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.MembershipResponse{GroupID: id, Member: member, IsMember: is})
}

func (s *Server) handleAddGroupMember(w http.ResponseWriter, r *http.Request) {
	s.memberAction(w, r, true)
}

func (s *Server) handleRemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	s.memberAction(w, r, false)
}

func (s *Server) memberAction(w http.ResponseWriter, r *http.Request, add bool) {
	c, ok := s.call(w, r)
	if !ok {
		return
	}
	id, ok := uintParam(w, r, "id")
	if !ok {
		return
	}
	req := types.GroupMemberRequest{GroupID: id, Member: principalParam(r, "member")}

	var err error
	if add {
		err = s.ledger.Groups.AddMember(r.Context(), c, req)
	} else {
		err = s.ledger.Groups.RemoveMember(r.Context(), c, req)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, types.MembershipResponse{GroupID: id, Member: req.Member, IsMember: add})
}
