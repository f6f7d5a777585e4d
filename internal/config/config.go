// Package config loads the process-wide configuration from environment
// variables. Everything is read once at startup; there is no reload path.
package config

import (
	"fmt"
	"os"
	"strings"
)

// AppConfig holds every runtime setting of the bridge.
type AppConfig struct {
	// Upstream credentials and endpoint
	AppID       string
	SecretID    string
	SecretKey   string
	APIEndpoint string
	SDKID       string

	// Operator registry raw spec: "name1:id1,name2:id2,..."
	OperatorSpec string

	// Form field keys into entry extras
	UserFieldName string
	DeptFieldName string

	// Physical room ids keyed by form name
	XARoomID string
	CDRoomID string

	// Simulation toggles
	SkipMeetingCreation bool
	SkipRoomBooking     bool

	// Webhook auth token; empty disables the auth query check
	WebhookAuthToken string

	// Ledger
	DatabasePath string

	// Server
	ListenAddr string
	Production bool
	LogLevel   string
}

// FromEnv builds the configuration from the process environment.
// Missing required variables are reported together so the operator can fix
// them in one pass.
func FromEnv() (AppConfig, error) {
	cfg := AppConfig{
		AppID:               ParseString("TENCENT_MEETING_APP_ID", ""),
		SecretID:            ParseString("TENCENT_MEETING_SECRET_ID", ""),
		SecretKey:           ParseString("TENCENT_MEETING_SECRET_KEY", ""),
		APIEndpoint:         ParseString("TENCENT_MEETING_API_ENDPOINT", "https://api.meeting.qq.com"),
		SDKID:               ParseString("TENCENT_MEETING_SDK_ID", ""),
		OperatorSpec:        ParseString("TENCENT_MEETING_OPERATOR_ID", ""),
		UserFieldName:       ParseString("FORM_USER_FIELD_NAME", ""),
		DeptFieldName:       ParseString("FORM_DEPT_FIELD_NAME", ""),
		XARoomID:            ParseString("XA_MEETING_ROOM_ID", ""),
		CDRoomID:            ParseString("CD_MEETING_ROOM_ID", ""),
		SkipMeetingCreation: ParseBool("SKIP_MEETING_CREATION", false),
		SkipRoomBooking:     ParseBool("SKIP_ROOM_BOOKING", false),
		WebhookAuthToken:    ParseString("WEBHOOK_AUTH_TOKEN", ""),
		DatabasePath:        ParseString("MEETING_DATABASE_PATH", "meetings.db"),
		ListenAddr:          fmt.Sprintf(":%d", ParseInt("PORT", 3000)),
		Production:          strings.EqualFold(os.Getenv("ENVIRONMENT"), "production"),
		LogLevel:            ParseString("LOG_LEVEL", "info"),
	}

	var missing []string
	for _, v := range []struct{ key, val string }{
		{"TENCENT_MEETING_APP_ID", cfg.AppID},
		{"TENCENT_MEETING_SECRET_ID", cfg.SecretID},
		{"TENCENT_MEETING_SECRET_KEY", cfg.SecretKey},
		{"FORM_USER_FIELD_NAME", cfg.UserFieldName},
		{"FORM_DEPT_FIELD_NAME", cfg.DeptFieldName},
		{"XA_MEETING_ROOM_ID", cfg.XARoomID},
		{"CD_MEETING_ROOM_ID", cfg.CDRoomID},
	} {
		if v.val == "" {
			missing = append(missing, v.key)
		}
	}
	if len(missing) > 0 {
		return AppConfig{}, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
