package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/detailing-booking/internal/notify"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// DefaultDialTimeout bounds connecting to the broker, handshake
// included, so a silent broker cannot hold up a booking response.
const DefaultDialTimeout = 2 * time.Second

// Publisher sends booking events to RabbitMQ.  The connection is opened
// on first use and reopened after the broker drops it.
type Publisher struct {
	url         string
	queue       string
	logger      *logging.Logger
	now         func() time.Time
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, queue string, logger *logging.Logger) *Publisher {
	if queue == "" {
		queue = BookingCreatedQueue
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{url: url, queue: queue, logger: logger, now: time.Now, dialTimeout: DefaultDialTimeout}
}

// Dispatch publishes a persistent booking.created message.
func (p *Publisher) Dispatch(ctx context.Context, bookingID uint64, c notify.BookingConfirmation) error {
	body, err := encodeEvent(BookingCreatedEvent{BookingID: bookingID, Confirmation: c, CreatedAt: p.now().UTC()})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		p.logger.Warn("rabbitmq publish failed", "error", err, "booking_id", bookingID)
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

// channel returns an open channel, dialing when needed.  p.mu is held.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
