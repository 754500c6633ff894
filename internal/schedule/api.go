// Package schedule is the admin-side mirror of the slot schedule: an
// in-memory store with optimistic mutations and rollback, the HTTP
// client it talks to, and a background manager that keeps it fresh and
// persists navigation state between runs.
package schedule

import (
	"context"
	"time"

	"github.com/iliyamo/detailing-booking/internal/model"
)

// SlotInput describes a slot to add.  MaxBookings defaults to 1.
type SlotInput struct {
	Date            string `json:"slot_date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	MaxBookings     int    `json:"max_bookings"`
}

// API is the server surface the store depends on.
type API interface {
	WeekOverview(ctx context.Context, weekStart string) ([]model.DayOverview, error)
	DaySlots(ctx context.Context, date string) ([]model.Slot, error)
	ToggleWorkingDay(ctx context.Context, date string, working bool) error
	AddSlot(ctx context.Context, in SlotInput) error
	DeleteSlot(ctx context.Context, slotID string) error
	CheckUpdates(ctx context.Context, lastSync time.Time, weekStart string) (bool, error)
}
