package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/detailing-booking/pkg/logging"
)

func TestNewSenderFallsBackToStub(t *testing.T) {
	s := NewSender(SendGridConfig{}, nil)
	_, ok := s.(*StubEmailSender)
	assert.True(t, ok)

	s = NewSender(SendGridConfig{APIKey: "SG.test", FromEmail: "a@b.c"}, nil)
	_, ok = s.(*SendGridSender)
	assert.True(t, ok)
}

func TestStubRecordsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	stub := NewStubEmailSender(logging.NewWithWriter("info", &buf))

	require.NoError(t, stub.Send(context.Background(), EmailMessage{To: "sam@example.com", Subject: "hi"}))
	sent := stub.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "sam@example.com", sent[0].To)
	assert.Contains(t, buf.String(), "sam@example.com")
}

func TestConfirmationMessage(t *testing.T) {
	msg := ConfirmationMessage(BookingConfirmation{
		Reference:       "L4D12345678ABCD",
		CustomerName:    "Sam",
		CustomerEmail:   "sam@example.com",
		ServiceID:       "full-valet",
		SlotDate:        "2026-10-21",
		StartTime:       "09:00",
		TotalPricePence: 7599,
		AccountCreated:  true,
	})
	assert.Equal(t, "sam@example.com", msg.To)
	assert.Equal(t, "Booking confirmed: L4D12345678ABCD", msg.Subject)
	assert.Contains(t, msg.Body, "£75.99")
	assert.Contains(t, msg.Body, "2026-10-21 at 09:00")
	assert.Contains(t, msg.Body, "forgot password")
}

func TestFormatPence(t *testing.T) {
	assert.Equal(t, "£50.00", FormatPence(5000))
	assert.Equal(t, "£0.05", FormatPence(5))
	assert.Equal(t, "-£1.20", FormatPence(-120))
}
