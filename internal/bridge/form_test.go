package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormSubmissionUnmarshal(t *testing.T) {
	payload := `{
		"form": "E0g58x",
		"form_name": "西安会议室预约",
		"entry": {
			"token": "abc123",
			"field_1": [
				{
					"item_name": "Room A",
					"scheduled_label": "2035-04-01 09:00-10:00",
					"number": 1,
					"scheduled_at": "2035-04-01T01:00:00Z",
					"api_code": "CODE1"
				}
			],
			"field_8": "Team sync",
			"reservation_status_fsf_field": "已预约",
			"field_2": "alice",
			"field_5": "engineering"
		}
	}`

	var sub FormSubmission
	require.NoError(t, json.Unmarshal([]byte(payload), &sub))

	assert.Equal(t, "E0g58x", sub.FormID)
	assert.Equal(t, "西安会议室预约", sub.FormName)
	assert.Equal(t, "abc123", sub.Entry.Token)
	assert.Equal(t, "Team sync", sub.Entry.Subject)
	assert.Equal(t, "已预约", sub.Entry.Status)

	require.Len(t, sub.Entry.Slots, 1)
	assert.Equal(t, "Room A", sub.Entry.Slots[0].ItemName)
	assert.Equal(t, "2035-04-01 09:00-10:00", sub.Entry.Slots[0].ScheduledLabel)

	// Non-fixed fields are flattened into Extra for operator lookup.
	assert.Equal(t, "alice", sub.Entry.Extra["field_2"])
	assert.Equal(t, "engineering", sub.Entry.Extra["field_5"])
	assert.NotContains(t, sub.Entry.Extra, "token")
	assert.NotContains(t, sub.Entry.Extra, "field_1")
}

func TestFormEntryExtraNonStringScalars(t *testing.T) {
	payload := `{"token":"t","reservation_status_fsf_field":"已预约","field_9":42,"field_10":true}`

	var e FormEntry
	require.NoError(t, json.Unmarshal([]byte(payload), &e))
	assert.Equal(t, "42", e.Extra["field_9"])
	assert.Equal(t, "true", e.Extra["field_10"])
}

func TestFormEntryNoExtras(t *testing.T) {
	var e FormEntry
	require.NoError(t, json.Unmarshal([]byte(`{"token":"t"}`), &e))
	assert.Empty(t, e.Extra)
}

func TestRoomIDForForm(t *testing.T) {
	assert.Equal(t, "xa-1", roomIDForForm("西安会议室预约", "xa-1", "cd-1"))
	assert.Equal(t, "cd-1", roomIDForForm("成都会议室预约", "xa-1", "cd-1"))
	// Unknown forms fall back to the Xi'an room.
	assert.Equal(t, "xa-1", roomIDForForm("unknown form", "xa-1", "cd-1"))
}

func TestLocationForForm(t *testing.T) {
	assert.Equal(t, "西安-大会议室", locationForForm("西安会议室预约", "Room A"))
	assert.Equal(t, "成都-天府广场", locationForForm("成都会议室预约", "Room A"))
	assert.Equal(t, "Room A (Unknown Location)", locationForForm("other", "Room A"))
}
