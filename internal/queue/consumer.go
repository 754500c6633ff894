package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/detailing-booking/internal/notify"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// Consumer reads booking.created events and emails the customer.
type Consumer struct {
	url    string
	queue  string
	sender notify.EmailSender
	logger *logging.Logger
}

func NewConsumer(url, queue string, sender notify.EmailSender, logger *logging.Logger) *Consumer {
	if queue == "" {
		queue = BookingCreatedQueue
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{url: url, queue: queue, sender: sender, logger: logger}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff capped at 30s whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("confirmation consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("confirmation consumer: reconnecting", "error", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		c.logger.Warn("confirmation consumer: set qos failed", "error", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.logger.Error("confirmation consumer: message rejected", "error", err)
				// no requeue: a poison message would loop forever
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	ev, err := decodeEvent(body)
	if err != nil {
		return err
	}
	if err := c.sender.Send(ctx, notify.ConfirmationMessage(ev.Confirmation)); err != nil {
		return fmt.Errorf("send confirmation for booking %d: %w", ev.BookingID, err)
	}
	c.logger.Info("confirmation sent", "booking_id", ev.BookingID, "reference", ev.Confirmation.Reference)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
