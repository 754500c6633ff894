package config

import (
	"fmt"
	"strings"
)

// Capacity policies applied when a booking takes a slot.
const (
	// CapacityDecrement takes one unit of capacity and blocks the slot
	// only once it is full.
	CapacityDecrement = "decrement"
	// CapacityClose blocks the slot after any booking, regardless of
	// remaining capacity.
	CapacityClose = "close"
)

// BookingConfig tunes the booking transaction.
type BookingConfig struct {
	CapacityPolicy     string // BOOKING_CAPACITY_POLICY
	ReferencePrefix    string // BOOKING_REFERENCE_PREFIX
	FallbackPricePence int    // BOOKING_FALLBACK_PRICE_PENCE
	DefaultServiceID   string // BOOKING_SERVICE_ID
	AutoAccounts       bool   // BOOKING_AUTO_ACCOUNTS
	WelcomePoints      int    // BOOKING_WELCOME_POINTS
}

// CloseSlotAfterBooking reports whether the close policy is active.
func (b BookingConfig) CloseSlotAfterBooking() bool {
	return b.CapacityPolicy == CapacityClose
}

// LoadBookingConfig reads the BOOKING_* variables.  The reference
// prefix is limited to three characters so references stay at fifteen.
func LoadBookingConfig() (BookingConfig, error) {
	cfg := BookingConfig{
		CapacityPolicy:     strings.ToLower(envStr("BOOKING_CAPACITY_POLICY", CapacityDecrement)),
		ReferencePrefix:    strings.ToUpper(envStr("BOOKING_REFERENCE_PREFIX", "L4D")),
		FallbackPricePence: envInt("BOOKING_FALLBACK_PRICE_PENCE", 5000),
		DefaultServiceID:   envStr("BOOKING_SERVICE_ID", "full-valet"),
		AutoAccounts:       envBool("BOOKING_AUTO_ACCOUNTS", true),
		WelcomePoints:      envInt("BOOKING_WELCOME_POINTS", 50),
	}
	switch cfg.CapacityPolicy {
	case CapacityDecrement, CapacityClose:
	default:
		return cfg, fmt.Errorf("invalid BOOKING_CAPACITY_POLICY %q (want %s or %s)",
			cfg.CapacityPolicy, CapacityDecrement, CapacityClose)
	}
	if n := len(cfg.ReferencePrefix); n == 0 || n > 3 {
		return cfg, fmt.Errorf("BOOKING_REFERENCE_PREFIX must be 1-3 characters, got %q", cfg.ReferencePrefix)
	}
	if cfg.FallbackPricePence <= 0 {
		return cfg, fmt.Errorf("BOOKING_FALLBACK_PRICE_PENCE must be positive")
	}
	return cfg, nil
}
