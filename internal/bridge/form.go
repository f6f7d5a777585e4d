// Package bridge turns form-service webhook submissions into upstream
// meetings (with room bookings) and processes cancellations symmetrically.
package bridge

import (
	"encoding/json"
	"strings"
)

// FormSlot is one raw reservation entry on the wire. Field names follow the
// form vendor's payload.
type FormSlot struct {
	ItemName       string `json:"item_name"`
	ScheduledLabel string `json:"scheduled_label"`
	Number         int    `json:"number"`
	ScheduledAt    string `json:"scheduled_at"`
	APICode        string `json:"api_code"`
}

// FormEntry is the entry block of a submission. The form flattens
// free-form fields (operator name, department, ...) beside the fixed keys;
// they are collected into Extra.
type FormEntry struct {
	Token   string            `json:"token"`
	Slots   []FormSlot        `json:"field_1"`
	Subject string            `json:"field_8"`
	Status  string            `json:"reservation_status_fsf_field"`
	Extra   map[string]string `json:"-"`
}

// fixedEntryKeys are consumed by the typed fields above; everything else
// lands in Extra.
var fixedEntryKeys = map[string]bool{
	"token":                        true,
	"field_1":                      true,
	"field_8":                      true,
	"reservation_status_fsf_field": true,
}

// UnmarshalJSON decodes the fixed fields and gathers the remaining keys into
// Extra, converting scalar values to strings the way the form renders them.
func (e *FormEntry) UnmarshalJSON(data []byte) error {
	type alias FormEntry
	var fixed alias
	if err := json.Unmarshal(data, &fixed); err != nil {
		return err
	}
	*e = FormEntry(fixed)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Extra = make(map[string]string)
	for key, value := range raw {
		if fixedEntryKeys[key] {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			e.Extra[key] = s
			continue
		}
		// Non-string scalars (numbers, booleans) are kept in their JSON
		// rendering; arrays and objects are not operator-name material.
		e.Extra[key] = strings.Trim(string(value), `"`)
	}
	return nil
}

// FormSubmission is the webhook payload delivered by the form service.
type FormSubmission struct {
	FormID   string    `json:"form"`
	FormName string    `json:"form_name"`
	Entry    FormEntry `json:"entry"`
}

// MeetingOutcome reports the result for one planned meeting.
type MeetingOutcome struct {
	MeetingID string   `json:"meeting_id,omitempty"`
	Merged    bool     `json:"merged"`
	RoomLabel string   `json:"room_label"`
	TimeSlots []string `json:"time_slots"`
	Success   bool     `json:"success"`
}

// WebhookResponse is the aggregate answer returned to the form service.
type WebhookResponse struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	MeetingsCount int              `json:"meetings_count"`
	Meetings      []MeetingOutcome `json:"meetings"`
}
