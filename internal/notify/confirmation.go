package notify

import (
	"fmt"
	"strings"
)

// BookingConfirmation is everything the confirmation email shows.
type BookingConfirmation struct {
	Reference       string `json:"booking_reference"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	ServiceID       string `json:"service_id"`
	SlotDate        string `json:"slot_date"`
	StartTime       string `json:"start_time"`
	ServiceAddress  string `json:"service_address,omitempty"`
	TotalPricePence int    `json:"total_price_pence"`
	AccountCreated  bool   `json:"account_created,omitempty"`
}

// FormatPence renders 7599 as "£75.99".
func FormatPence(p int) string {
	sign := ""
	if p < 0 {
		sign, p = "-", -p
	}
	return fmt.Sprintf("%s£%d.%02d", sign, p/100, p%100)
}

// ConfirmationMessage builds the customer's confirmation email.
func ConfirmationMessage(b BookingConfirmation) EmailMessage {
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", b.CustomerName)
	fmt.Fprintf(&body, "Your booking %s is confirmed.\n\n", b.Reference)
	if b.SlotDate != "" {
		fmt.Fprintf(&body, "When: %s at %s\n", b.SlotDate, b.StartTime)
	}
	if b.ServiceAddress != "" {
		fmt.Fprintf(&body, "Where: %s\n", b.ServiceAddress)
	}
	fmt.Fprintf(&body, "Service: %s\n", b.ServiceID)
	fmt.Fprintf(&body, "Total: %s\n", FormatPence(b.TotalPricePence))
	if b.AccountCreated {
		body.WriteString("\nWe have created an account for you with this email address. " +
			"Use \"forgot password\" to choose a password and view your bookings.\n")
	}
	body.WriteString("\nThank you for booking with us.\n")

	return EmailMessage{
		To:      b.CustomerEmail,
		ToName:  b.CustomerName,
		Subject: fmt.Sprintf("Booking confirmed: %s", b.Reference),
		Body:    body.String(),
	}
}
