package tencent

// Request and response shapes for the upstream meeting API. Optional fields
// are pointers with omitempty: the upstream validator rejects explicit nulls.

// User identifies a meeting participant or host.
type User struct {
	UserID      string `json:"userid"`
	IsAnonymous *bool  `json:"is_anonymous,omitempty"`
	NickName    string `json:"nick_name,omitempty"`
}

// CreateMeetingRequest is the payload for POST /v1/meetings.
// MeetingType is always 0 (scheduled) for this system; the upstream requires
// the JSON key to be literally "type".
type CreateMeetingRequest struct {
	UserID       string `json:"userid"`
	InstanceID   int    `json:"instanceid"`
	Subject      string `json:"subject"`
	MeetingType  int    `json:"type"`
	Hosts        []User `json:"hosts,omitempty"`
	Invitees     []User `json:"invitees,omitempty"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Password     string `json:"password,omitempty"`
	TimeZone     string `json:"time_zone,omitempty"`
	Location     string `json:"location,omitempty"`
	SyncToWework *bool  `json:"sync_to_wework,omitempty"`
	EnableLive   *bool  `json:"enable_live,omitempty"`
}

// MeetingInfo describes one created meeting in the upstream response.
type MeetingInfo struct {
	Subject     string `json:"subject"`
	MeetingID   string `json:"meeting_id"`
	MeetingCode string `json:"meeting_code"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	JoinURL     string `json:"join_url,omitempty"`
	HostKey     string `json:"host_key,omitempty"`
}

// CreateMeetingResponse is the body returned by POST /v1/meetings.
type CreateMeetingResponse struct {
	MeetingNumber   int           `json:"meeting_number"`
	MeetingInfoList []MeetingInfo `json:"meeting_info_list"`
}

// CancelMeetingRequest is the payload for POST /v1/meetings/{id}/cancel.
type CancelMeetingRequest struct {
	UserID       string `json:"userid"`
	InstanceID   int    `json:"instanceid"`
	ReasonCode   int    `json:"reason_code"`
	MeetingType  *int   `json:"meeting_type,omitempty"`
	SubMeetingID string `json:"sub_meeting_id,omitempty"`
	ReasonDetail string `json:"reason_detail,omitempty"`
}

// BookRoomsRequest is the payload for POST /v1/meetings/{id}/book-rooms.
type BookRoomsRequest struct {
	OperatorID        string   `json:"operator_id"`
	OperatorIDType    int      `json:"operator_id_type"`
	MeetingRoomIDList []string `json:"meeting_room_id_list"`
	SubjectVisible    *bool    `json:"subject_visible,omitempty"`
}

// ReleaseRoomsRequest is the payload for POST /v1/meetings/{id}/release-rooms.
type ReleaseRoomsRequest struct {
	OperatorID        string   `json:"operator_id"`
	OperatorIDType    int      `json:"operator_id_type"`
	MeetingRoomIDList []string `json:"meeting_room_id_list"`
}

// MeetingRoomItem describes one physical room in the room listing.
type MeetingRoomItem struct {
	MeetingRoomID       string `json:"meeting_room_id"`
	MeetingRoomName     string `json:"meeting_room_name"`
	MeetingRoomLocation string `json:"meeting_room_location"`
	AccountNewType      int    `json:"account_new_type"`
	AccountType         int    `json:"account_type"`
	ActiveCode          string `json:"active_code"`
	ParticipantNumber   int    `json:"participant_number"`
	MeetingRoomStatus   int    `json:"meeting_room_status"`
	ScheduledStatus     int    `json:"scheduled_status"`
	IsAllowCall         bool   `json:"is_allow_call"`
}

// MeetingRoomsResponse is the pageable body of GET /v1/meeting-rooms.
type MeetingRoomsResponse struct {
	TotalCount      int               `json:"total_count"`
	CurrentSize     int               `json:"current_size"`
	CurrentPage     int               `json:"current_page"`
	TotalPage       int               `json:"total_page"`
	MeetingRoomList []MeetingRoomItem `json:"meeting_room_list"`
}
