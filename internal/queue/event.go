// Package queue carries booking confirmations over RabbitMQ and, when
// no broker is configured, delivers them in-process.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/detailing-booking/internal/notify"
)

// BookingCreatedQueue is the durable queue confirmations travel on.
const BookingCreatedQueue = "booking.created"

// BookingCreatedEvent is published after a booking commits.  It holds
// everything the confirmation email needs so consumers never query the
// database.
type BookingCreatedEvent struct {
	BookingID    uint64                     `json:"booking_id"`
	Confirmation notify.BookingConfirmation `json:"confirmation"`
	CreatedAt    time.Time                  `json:"created_at"`
}

func encodeEvent(ev BookingCreatedEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeEvent(body []byte) (BookingCreatedEvent, error) {
	var ev BookingCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Confirmation.CustomerEmail == "" || ev.Confirmation.Reference == "" {
		return ev, fmt.Errorf("event for booking %d lacks email or reference", ev.BookingID)
	}
	return ev, nil
}
