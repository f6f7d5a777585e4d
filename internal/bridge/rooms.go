package bridge

import (
	"fmt"

	"github.com/qwli7/meetbridge/internal/log"
)

// Form names the bridge knows how to route. Each form reserves exactly one
// physical room.
const (
	formNameXiAn    = "西安会议室预约"
	formNameChengdu = "成都会议室预约"
)

// roomIDForForm selects the physical room id for a submission. Unknown form
// names fall back to the Xi'an room.
func roomIDForForm(formName, xaRoomID, cdRoomID string) string {
	switch formName {
	case formNameXiAn:
		return xaRoomID
	case formNameChengdu:
		return cdRoomID
	default:
		logger := log.WithComponent("bridge")
		logger.Warn().
			Str(log.FieldFormName, formName).
			Msg("unknown form name, using Xi'an room id")
		return xaRoomID
	}
}

// locationForForm returns the location string carried on the upstream
// meeting.
func locationForForm(formName, roomLabel string) string {
	switch formName {
	case formNameXiAn:
		return "西安-大会议室"
	case formNameChengdu:
		return "成都-天府广场"
	default:
		return fmt.Sprintf("%s (Unknown Location)", roomLabel)
	}
}
