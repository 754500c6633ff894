package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

// PaymentStatus tracks payment separately from the booking lifecycle.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether an admin may move a booking from one
// status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseBookingStatus reports whether s is a known status.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(s); st {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// Booking links a customer, a vehicle, a slot and a priced service.
// It corresponds to a row in the `bookings` table.  UserID is nil for
// guest bookings until an account is linked, and Reference is at most
// 20 characters.
type Booking struct {
	ID                uint64
	Reference         string
	UserID            *uint64
	VehicleID         uint64
	SlotID            uint64
	ServiceID         string
	CustomerEmail     string
	CustomerName      string
	CustomerPhone     string
	ServiceAddress    string
	Notes             string
	PaymentMethod     string
	ServicePricePence int
	TotalPricePence   int
	Status            BookingStatus
	PaymentStatus     PaymentStatus
	CreatedAt         time.Time
	ConfirmedAt       *time.Time
	CompletedAt       *time.Time
	CancelledAt       *time.Time
}
