package types

// GrantType records how a grant was issued.
type GrantType string

const (
	GrantIndividual GrantType = "individual"
	GrantGroup      GrantType = "group"
	GrantTemporary  GrantType = "temporary"
)

func (g GrantType) Valid() bool {
	switch g {
	case GrantIndividual, GrantGroup, GrantTemporary:
		return true
	}
	return false
}

// MaxAccessLevel is the highest permitted grant level.
const MaxAccessLevel uint8 = 3

type GrantAccessRequest struct {
	RecordID  uint64       `json:"record_id"`
	Grantee   PrincipalID  `json:"grantee"`
	GrantType GrantType    `json:"grant_type"`
	Expiry    *LogicalTime `json:"expiry,omitempty"`
	Reason    string       `json:"reason"`
	Level     uint8        `json:"level"`
}

type GrantGroupAccessRequest struct {
	RecordID uint64       `json:"record_id"`
	GroupID  uint64       `json:"group_id"`
	Expiry   *LogicalTime `json:"expiry,omitempty"`
	Reason   string       `json:"reason"`
	Level    uint8        `json:"level"`
}

type RevokeAccessRequest struct {
	RecordID uint64      `json:"record_id"`
	Grantee  PrincipalID `json:"grantee"`
}

type AccessResponse struct {
	RecordID uint64      `json:"record_id"`
	User     PrincipalID `json:"user"`
	Granted  bool        `json:"granted"`
	At       LogicalTime `json:"at"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type GroupMemberRequest struct {
	GroupID uint64      `json:"group_id"`
	Member  PrincipalID `json:"member"`
}

type MembershipResponse struct {
	GroupID  uint64      `json:"group_id"`
	Member   PrincipalID `json:"member"`
	IsMember bool        `json:"is_member"`
}

type SetMaxGrantsRequest struct {
	MaxGrants uint64 `json:"max_grants"`
}

type ToggleAuditRequest struct {
	Enabled bool `json:"enabled"`
}
