package model

import "time"

// DayOverview aggregates the slots of one calendar date for the admin
// schedule.  It is computed on read and never stored.  Slots that are
// blocked and hold no bookings do not count towards TotalSlots, so a
// day switched off reports zero everywhere while
// AvailableSlots+BookedSlots == TotalSlots always holds.
type DayOverview struct {
	Date           string `json:"date"`
	DayName        string `json:"day_name"`
	IsWorkingDay   bool   `json:"is_working_day"`
	TotalSlots     int    `json:"total_slots"`
	AvailableSlots int    `json:"available_slots"`
	BookedSlots    int    `json:"booked_slots"`
}

// SummarizeDay counts slots for one date.  A slot with any booking is
// booked; an open slot without bookings is available.
func SummarizeDay(date time.Time, isWorking bool, slots []Slot) DayOverview {
	d := DayOverview{
		Date:         date.Format(DateLayout),
		DayName:      date.Weekday().String(),
		IsWorkingDay: isWorking,
	}
	for _, s := range slots {
		switch {
		case s.CurrentBookings > 0:
			d.BookedSlots++
		case !s.IsBlocked:
			d.AvailableSlots++
		default:
			continue
		}
		d.TotalSlots++
	}
	return d
}

// WeekStart returns the Monday (00:00 UTC) of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// WeekDates returns the seven consecutive dates starting at start.
func WeekDates(start time.Time) []time.Time {
	out := make([]time.Time, 7)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

// ParseDate parses YYYY-MM-DD as a UTC date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
