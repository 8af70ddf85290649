package grpcapi

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/wire"
)

// Query messages that have no counterpart in the types package.
type (
	RecordRef struct {
		RecordID uint64 `json:"record_id"`
	}
	RevisionRef struct {
		RecordID   uint64 `json:"record_id"`
		RevisionID uint64 `json:"revision_id"`
	}
	RecordPrincipal struct {
		RecordID  uint64            `json:"record_id"`
		Principal types.PrincipalID `json:"principal"`
	}
	PrincipalRef struct {
		Principal types.PrincipalID `json:"principal"`
	}
	GroupRef struct {
		GroupID uint64 `json:"group_id"`
	}
	AuditRef struct {
		ID uint64 `json:"id"`
	}
	AuditQuery struct {
		RecordID *uint64           `json:"record_id,omitempty"`
		Actor    types.PrincipalID `json:"actor,omitempty"`
		Action   string            `json:"action,omitempty"`
		AfterID  uint64            `json:"after_id,omitempty"`
		Limit    int               `json:"limit,omitempty"`
	}
	AppendAuditRequest struct {
		Action   string `json:"action"`
		RecordID uint64 `json:"record_id"`
		Details  string `json:"details,omitempty"`
	}
	Empty struct{}
)

// Response messages.
type (
	RecordIDs struct {
		Records []uint64 `json:"records"`
	}
	Grants struct {
		Grants []store.Grant `json:"grants"`
	}
	GroupInfo struct {
		store.Group
		Members []types.PrincipalID `json:"members"`
	}
	AuditEntries struct {
		Entries []store.AuditEntry `json:"entries"`
	}
	AppendAuditResponse struct {
		ID       uint64 `json:"id"`
		Recorded bool   `json:"recorded"`
	}
)

var okResponse = types.OKResponse{OK: true}

// unary adapts a typed method body to a handler.
func unary[Req any](fn func(ctx context.Context, c types.Call, req Req) (any, error)) handler {
	return func(ctx context.Context, c types.Call, in *structpb.Struct) (any, error) {
		var req Req
		if err := wire.FromStruct(in, &req); err != nil {
			return nil, status.Error(codes.InvalidArgument, "INVALID_INPUT: "+err.Error())
		}
		return fn(ctx, c, req)
	}
}

func (s *Server) methods() map[string]handler {
	l := s.ledger
	return map[string]handler{
		// Records
		"StoreRecord": unary(func(ctx context.Context, c types.Call, req types.StoreRecordRequest) (any, error) {
			id, err := l.Records.StoreRecord(ctx, c, req)
			return types.IDResponse{ID: id}, err
		}),
		"UpdateRecordHash": unary(func(ctx context.Context, c types.Call, req types.UpdateRecordHashRequest) (any, error) {
			id, err := l.Records.UpdateRecordHash(ctx, c, req)
			return types.IDResponse{ID: id}, err
		}),
		"LockRecord": unary(func(ctx context.Context, c types.Call, req RecordRef) (any, error) {
			return okResponse, l.Records.LockRecord(ctx, c, req.RecordID)
		}),
		"ArchiveRecord": unary(func(ctx context.Context, c types.Call, req RecordRef) (any, error) {
			return okResponse, l.Records.ArchiveRecord(ctx, c, req.RecordID)
		}),
		"LogAccess": unary(func(ctx context.Context, c types.Call, req types.LogAccessRequest) (any, error) {
			return okResponse, l.Records.LogAccess(ctx, c, req)
		}),
		"GetRecord": unary(func(ctx context.Context, _ types.Call, req RecordRef) (any, error) {
			return l.Records.GetRecord(ctx, req.RecordID)
		}),
		"GetRevision": unary(func(ctx context.Context, _ types.Call, req RevisionRef) (any, error) {
			return l.Records.GetRevision(ctx, req.RecordID, req.RevisionID)
		}),
		"GetLatestRevisionId": unary(func(ctx context.Context, _ types.Call, req RecordRef) (any, error) {
			id, err := l.Records.GetLatestRevisionID(ctx, req.RecordID)
			return types.IDResponse{ID: id}, err
		}),
		"ListOwnerRecords": unary(func(ctx context.Context, _ types.Call, req PrincipalRef) (any, error) {
			ids, err := l.Records.ListOwnerRecords(ctx, req.Principal)
			return RecordIDs{Records: nonNil(ids)}, err
		}),
		"ListCustodianRecords": unary(func(ctx context.Context, _ types.Call, req PrincipalRef) (any, error) {
			ids, err := l.Records.ListCustodianRecords(ctx, req.Principal)
			return RecordIDs{Records: nonNil(ids)}, err
		}),
		"GetAccessIndicator": unary(func(ctx context.Context, _ types.Call, req RecordPrincipal) (any, error) {
			return l.Records.GetAccessIndicator(ctx, req.RecordID, req.Principal)
		}),

		// Grants
		"SetRecordOwner": unary(func(ctx context.Context, c types.Call, req RecordRef) (any, error) {
			return okResponse, l.Grants.SetRecordOwner(ctx, c, req.RecordID)
		}),
		"GetRecordOwner": unary(func(ctx context.Context, _ types.Call, req RecordRef) (any, error) {
			return l.Grants.GetRecordOwner(ctx, req.RecordID)
		}),
		"GrantAccess": unary(func(ctx context.Context, c types.Call, req types.GrantAccessRequest) (any, error) {
			return okResponse, l.Grants.GrantAccess(ctx, c, req)
		}),
		"GrantGroupAccess": unary(func(ctx context.Context, c types.Call, req types.GrantGroupAccessRequest) (any, error) {
			return okResponse, l.Grants.GrantGroupAccess(ctx, c, req)
		}),
		"RevokeAccess": unary(func(ctx context.Context, c types.Call, req types.RevokeAccessRequest) (any, error) {
			return okResponse, l.Grants.RevokeAccess(ctx, c, req)
		}),
		"HasAccess": unary(func(ctx context.Context, c types.Call, req RecordPrincipal) (any, error) {
			granted, err := l.Grants.HasAccess(ctx, req.RecordID, req.Principal, c.Now)
			return types.AccessResponse{RecordID: req.RecordID, User: req.Principal, Granted: granted, At: c.Now}, err
		}),
		"GetGrant": unary(func(ctx context.Context, _ types.Call, req RecordPrincipal) (any, error) {
			return l.Grants.GetGrant(ctx, req.RecordID, req.Principal)
		}),
		"ListGrants": unary(func(ctx context.Context, _ types.Call, req RecordRef) (any, error) {
			grants, err := l.Grants.ListGrants(ctx, req.RecordID)
			if grants == nil {
				grants = []store.Grant{}
			}
			return Grants{Grants: grants}, err
		}),

		// Groups
		"CreateGroup": unary(func(ctx context.Context, c types.Call, req types.CreateGroupRequest) (any, error) {
			id, err := l.Groups.CreateGroup(ctx, c, req)
			return types.IDResponse{ID: id}, err
		}),
		"AddGroupMember": unary(func(ctx context.Context, c types.Call, req types.GroupMemberRequest) (any, error) {
			return okResponse, l.Groups.AddMember(ctx, c, req)
		}),
		"RemoveGroupMember": unary(func(ctx context.Context, c types.Call, req types.GroupMemberRequest) (any, error) {
			return okResponse, l.Groups.RemoveMember(ctx, c, req)
		}),
		"IsGroupMember": unary(func(ctx context.Context, _ types.Call, req types.GroupMemberRequest) (any, error) {
			is, err := l.Groups.IsMember(ctx, req.GroupID, req.Member)
			return types.MembershipResponse{GroupID: req.GroupID, Member: req.Member, IsMember: is}, err
		}),
		"GetGroup": unary(func(ctx context.Context, _ types.Call, req GroupRef) (any, error) {
			g, err := l.Groups.GetGroup(ctx, req.GroupID)
			if err != nil {
				return nil, err
			}
			members, err := l.Groups.Members(ctx, req.GroupID)
			if members == nil {
				members = []types.PrincipalID{}
			}
			return GroupInfo{Group: g, Members: members}, err
		}),

		// Administration
		"ClaimAdmin": unary(func(ctx context.Context, c types.Call, _ Empty) (any, error) {
			return okResponse, l.Grants.ClaimAdmin(ctx, c)
		}),
		"SetMaxGrants": unary(func(ctx context.Context, c types.Call, req types.SetMaxGrantsRequest) (any, error) {
			return okResponse, l.Grants.SetMaxGrants(ctx, c, req)
		}),
		"ToggleAudit": unary(func(ctx context.Context, c types.Call, req types.ToggleAuditRequest) (any, error) {
			return okResponse, l.Grants.ToggleAudit(ctx, c, req)
		}),
		"GetSettings": unary(func(ctx context.Context, _ types.Call, _ Empty) (any, error) {
			return l.Grants.Settings(ctx)
		}),

		// Audit
		"AppendAudit": unary(func(ctx context.Context, c types.Call, req AppendAuditRequest) (any, error) {
			id, recorded, err := l.Audit.Append(ctx, c, req.Action, req.RecordID, req.Details)
			return AppendAuditResponse{ID: id, Recorded: recorded}, err
		}),
		"GetAuditEntry": unary(func(ctx context.Context, _ types.Call, req AuditRef) (any, error) {
			return l.Audit.Get(ctx, req.ID)
		}),
		"ListAudit": unary(func(ctx context.Context, _ types.Call, req AuditQuery) (any, error) {
			entries, err := l.Audit.List(ctx, store.AuditFilter{
				RecordID: req.RecordID,
				Actor:    req.Actor,
				Action:   req.Action,
				AfterID:  req.AfterID,
				Limit:    req.Limit,
			})
			if entries == nil {
				entries = []store.AuditEntry{}
			}
			return AuditEntries{Entries: entries}, err
		}),
	}
}

func nonNil(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}
