package slots

import (
	"sort"
	"strings"
	"time"
)

// displayZone renders fallback run labels in the form system's local time.
var displayZone = time.FixedZone("CST", 8*3600)

// Run is a maximal sequence of same-room slots where each slot starts exactly
// when the previous one ends.
type Run struct {
	Slots []TimeSlot
}

// Start returns the effective start of the run.
func (r Run) Start() time.Time { return r.Slots[0].Start }

// End returns the effective end of the run.
func (r Run) End() time.Time { return r.Slots[len(r.Slots)-1].End }

// RoomLabel returns the shared room label of the run.
func (r Run) RoomLabel() string { return r.Slots[0].RoomLabel }

// Merged reports whether the run spans more than one source slot.
func (r Run) Merged() bool { return len(r.Slots) > 1 }

// SlotLabels returns the original per-slot labels in run order.
func (r Run) SlotLabels() []string {
	labels := make([]string, len(r.Slots))
	for i, s := range r.Slots {
		labels[i] = s.ScheduledLabel
	}
	return labels
}

// Label returns the canonical "YYYY-MM-DD HH:MM-HH:MM" label covering the
// whole run, derived from the boundary slots' display labels so the date and
// minute fragments match what the form rendered.
func (r Run) Label() string {
	first := r.Slots[0].ScheduledLabel
	last := r.Slots[len(r.Slots)-1].ScheduledLabel

	date, firstRange, okFirst := strings.Cut(first, " ")
	_, lastRange, okLast := strings.Cut(last, " ")
	if okFirst && okLast {
		startStr, _, okStart := strings.Cut(firstRange, "-")
		_, endStr, okEnd := strings.Cut(lastRange, "-")
		if okStart && okEnd {
			return date + " " + strings.TrimSpace(startStr) + "-" + strings.TrimSpace(endStr)
		}
	}

	// Label fragments are unusable; fall back to the parsed instants.
	start := r.Start().In(displayZone)
	end := r.End().In(displayZone)
	return start.Format("2006-01-02 15:04") + "-" + end.Format("15:04")
}

// Plan partitions the given slots into maximal contiguous same-room runs.
//
// Slots are bucketed by room label, sorted by start, and grown into a run
// while each next slot starts exactly at the current end. Overlapping
// same-room slots are not contiguous and land in separate runs; the upstream
// behavior for such input is undefined.
func Plan(input []TimeSlot) []Run {
	if len(input) == 0 {
		return nil
	}

	byRoom := make(map[string][]TimeSlot)
	for _, s := range input {
		byRoom[s.RoomLabel] = append(byRoom[s.RoomLabel], s)
	}

	var runs []Run
	for _, roomSlots := range byRoom {
		sort.Slice(roomSlots, func(i, j int) bool {
			return roomSlots[i].Start.Before(roomSlots[j].Start)
		})

		current := Run{Slots: []TimeSlot{roomSlots[0]}}
		for _, s := range roomSlots[1:] {
			if current.End().Equal(s.Start) {
				current.Slots = append(current.Slots, s)
				continue
			}
			runs = append(runs, current)
			current = Run{Slots: []TimeSlot{s}}
		}
		runs = append(runs, current)
	}
	return runs
}
