// Package slots parses raw form reservation entries into normalized time
// slots and plans the minimal set of contiguous same-room meetings.
package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrPastSlot is returned when a slot lies entirely in the past.
var ErrPastSlot = errors.New("slots: time slot is entirely in the past")

// Entry is one raw reservation entry as supplied by the form.
type Entry struct {
	RoomLabel      string // display name of the physical room
	ScheduledLabel string // "YYYY-MM-DD HH:MM-HH:MM", local display
	Number         int    // ordinal within the submission
	ScheduledAt    string // RFC-3339 start instant
	APICode        string
}

// TimeSlot is a normalized reservation interval. It is immutable once parsed.
type TimeSlot struct {
	RoomLabel      string
	ScheduledLabel string
	Number         int
	APICode        string
	Start          time.Time
	End            time.Time
}

// durationFromLabel extracts the minute-precision duration from a
// "YYYY-MM-DD HH:MM-HH:MM" label. An end before the start is treated as
// overnight. Unparseable labels fall back to one hour.
func durationFromLabel(label string) time.Duration {
	const fallback = time.Hour

	_, timeRange, ok := strings.Cut(label, " ")
	if !ok {
		return fallback
	}
	startStr, endStr, ok := strings.Cut(timeRange, "-")
	if !ok {
		return fallback
	}

	start, okStart := minutesOfDay(startStr)
	end, okEnd := minutesOfDay(endStr)
	if !okStart || !okEnd {
		return fallback
	}

	minutes := end - start
	if minutes < 0 {
		minutes += 24 * 60
	}
	return time.Duration(minutes) * time.Minute
}

// minutesOfDay parses "HH:MM" into minutes since midnight.
func minutesOfDay(s string) (int, bool) {
	hStr, mStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	h, err := strconv.Atoi(hStr)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mStr)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// Parse converts a raw entry into a TimeSlot relative to now.
//
// The start comes from the RFC-3339 ScheduledAt field; the duration from the
// label's minute-precision range. A start in the past is advanced to
// now + 2 minutes with the end preserved. A slot whose end is in the past,
// or so close that the advanced start would no longer precede it, fails
// with ErrPastSlot.
func Parse(now time.Time, e Entry) (TimeSlot, error) {
	start, err := time.Parse(time.RFC3339, e.ScheduledAt)
	if err != nil {
		return TimeSlot{}, fmt.Errorf("slots: parse scheduled_at %q: %w", e.ScheduledAt, err)
	}
	start = start.UTC()
	end := start.Add(durationFromLabel(e.ScheduledLabel))

	now = now.UTC()
	if start.Before(now) {
		start = now.Add(2 * time.Minute)
		if !start.Before(end) {
			return TimeSlot{}, fmt.Errorf("%w: %s", ErrPastSlot, e.ScheduledLabel)
		}
	}

	return TimeSlot{
		RoomLabel:      e.RoomLabel,
		ScheduledLabel: e.ScheduledLabel,
		Number:         e.Number,
		APICode:        e.APICode,
		Start:          start,
		End:            end,
	}, nil
}
