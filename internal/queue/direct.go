package queue

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/detailing-booking/internal/notify"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// DirectDispatcher sends confirmations from the API process when no
// broker is configured.  Sends run in the background and never delay
// the caller; Wait blocks until in-flight sends finish.
type DirectDispatcher struct {
	sender  notify.EmailSender
	logger  *logging.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDirectDispatcher(sender notify.EmailSender, logger *logging.Logger) *DirectDispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectDispatcher{sender: sender, logger: logger, timeout: 30 * time.Second}
}

// Dispatch schedules the email and returns immediately.  The request
// context is not used for the send since it ends with the response.
func (d *DirectDispatcher) Dispatch(_ context.Context, bookingID uint64, c notify.BookingConfirmation) error {
	msg := notify.ConfirmationMessage(c)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, msg); err != nil {
			d.logger.Error("confirmation email failed", "error", err, "booking_id", bookingID)
		}
	}()
	return nil
}

// Wait blocks until every scheduled send has returned.
func (d *DirectDispatcher) Wait() { d.wg.Wait() }
