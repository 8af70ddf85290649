package types

// RecordKind classifies the artifact a record points at.
type RecordKind string

const (
	KindConsultation RecordKind = "consultation"
	KindPrescription RecordKind = "prescription"
	KindLabResult    RecordKind = "lab-result"
	KindImaging      RecordKind = "imaging"
	KindDischarge    RecordKind = "discharge"
)

func (k RecordKind) Valid() bool {
	switch k {
	case KindConsultation, KindPrescription, KindLabResult, KindImaging, KindDischarge:
		return true
	}
	return false
}

// RecordStatus is the lifecycle state of a record.
//
// Deleted is defined but nothing transitions into it.
type RecordStatus string

const (
	StatusActive   RecordStatus = "active"
	StatusArchived RecordStatus = "archived"
	StatusDeleted  RecordStatus = "deleted"
)

type StoreRecordRequest struct {
	Owner       PrincipalID `json:"owner"`
	Kind        RecordKind  `json:"kind"`
	ContentHash Hash        `json:"content_hash"`
	KeyHash     Hash        `json:"key_hash"`
	Metadata    string      `json:"metadata"`
}

type UpdateRecordHashRequest struct {
	RecordID    uint64 `json:"record_id"`
	ContentHash Hash   `json:"content_hash"`
	KeyHash     Hash   `json:"key_hash"`
	ChangeNote  string `json:"change_note,omitempty"`
}

type LogAccessRequest struct {
	RecordID   uint64 `json:"record_id"`
	AccessType string `json:"access_type"`
}

// IDResponse is returned by every operation that allocates an identifier.
type IDResponse struct {
	ID uint64 `json:"id"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
