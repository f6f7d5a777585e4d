package log

// Canonical field name constants for structured logging.
const (
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldEvent     = "event"
	FieldToken     = "token"
	FieldMeetingID = "meeting_id"
	FieldRoomID    = "room_id"
	FieldRoomLabel = "room_label"
	FieldOperator  = "operator_id"
	FieldFormName  = "form_name"
)
