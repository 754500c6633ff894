package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Layouts used for slot dates and wall-clock times on the wire and in
// the time_slots table.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Reasons recorded in time_slots.block_reason.  A slot blocked for
// day_off is released when the working day is switched back on; a slot
// blocked as full is released when a booking on it is cancelled.
const (
	BlockReasonDayOff = "day_off"
	BlockReasonFull   = "full"
	BlockReasonAdmin  = "admin"
)

// Slot represents a bookable time window on a calendar date.  It maps
// to a row in the `time_slots` table.  The ID is carried as a string so
// that clients can hold temporary identifiers for rows that the server
// has not yet assigned.  Times are zero-padded HH:MM, which keeps lexical
// and chronological order the same.  CurrentBookings never exceeds
// MaxBookings, and IsAvailable is derived from IsBlocked and the counts.
type Slot struct {
	ID              string `json:"id"`
	Date            string `json:"slot_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	MaxBookings     int    `json:"max_bookings"`
	CurrentBookings int    `json:"current_bookings"`
	IsBlocked       bool   `json:"is_blocked"`
	BlockReason     string `json:"block_reason,omitempty"`
	IsAvailable     bool   `json:"is_available"`
}

// Available reports whether the slot can take another booking.
func (s Slot) Available() bool {
	return !s.IsBlocked && s.CurrentBookings < s.MaxBookings
}

// RemainingCapacity returns how many more bookings the slot accepts.
func (s Slot) RemainingCapacity() int {
	if s.IsBlocked || s.CurrentBookings >= s.MaxBookings {
		return 0
	}
	return s.MaxBookings - s.CurrentBookings
}

// WithDerived returns a copy with IsAvailable recomputed.
func (s Slot) WithDerived() Slot {
	s.IsAvailable = s.Available()
	return s
}

// EndTime adds durationMinutes to an HH:MM start time.  Slots may not
// run past midnight.
func EndTime(start string, durationMinutes int) (string, error) {
	if durationMinutes <= 0 {
		return "", fmt.Errorf("duration must be positive, got %d", durationMinutes)
	}
	t, err := time.Parse(TimeLayout, start)
	if err != nil {
		return "", fmt.Errorf("invalid start time %q: %w", start, err)
	}
	end := t.Add(time.Duration(durationMinutes) * time.Minute)
	if end.Day() != t.Day() {
		return "", fmt.Errorf("slot starting %s for %d minutes crosses midnight", start, durationMinutes)
	}
	return end.Format(TimeLayout), nil
}

// NormalizeTime returns s as zero-padded HH:MM.  It accepts H:MM,
// HH:MM and HH:MM:SS; anything else comes back trimmed but otherwise
// unchanged so validation can reject it.
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout)
		}
	}
	return s
}

// SortSlots orders slots by date, then start time.  The sort is stable
// so equal keys keep their relative order.
func SortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		return slots[i].StartTime < slots[j].StartTime
	})
}

// InsertSorted inserts s into an already sorted slice, keeping order.
func InsertSorted(slots []Slot, s Slot) []Slot {
	idx := sort.Search(len(slots), func(i int) bool {
		if slots[i].Date != s.Date {
			return slots[i].Date > s.Date
		}
		return slots[i].StartTime > s.StartTime
	})
	slots = append(slots, Slot{})
	copy(slots[idx+1:], slots[idx:])
	slots[idx] = s
	return slots
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
// All values are HH:MM strings, which compare lexically.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}
