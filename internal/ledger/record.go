package ledger

// Canonical status values stored in the ledger.
const (
	StatusReserved  = "RESERVED"
	StatusCancelled = "CANCELLED"
)

// Form-locale synonyms accepted on input for compatibility with the form
// system's own status strings.
const (
	statusReservedZH  = "已预约"
	statusCancelledZH = "已取消"
)

// NormalizeStatus maps input status strings (canonical or form-locale) onto
// the canonical vocabulary. Unknown values are returned unchanged.
func NormalizeStatus(s string) string {
	switch s {
	case StatusReserved, statusReservedZH:
		return StatusReserved
	case StatusCancelled, statusCancelledZH:
		return StatusCancelled
	}
	return s
}

// MeetingRecord is one row of the ledger: a meeting the bridge has planned
// upstream, keyed for idempotence by (token, scheduled label).
type MeetingRecord struct {
	Token          string
	FormID         string
	FormName       string
	Subject        string
	RoomLabel      string
	ScheduledAt    string // ISO-8601 UTC of the meeting start
	ScheduledLabel string
	Status         string // StatusReserved or StatusCancelled
	MeetingID      string // upstream id, or a simulation sentinel
	RoomID         string
	CreatedAt      string // ISO-8601 UTC
	CancelledAt    string // empty unless cancelled
	OperatorName   string
	OperatorID     string
}

// CancelledMeeting is the (meeting, room) pair released by a cancellation.
type CancelledMeeting struct {
	MeetingID string
	RoomID    string
}
