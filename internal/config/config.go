// Package config loads application configuration from environment
// variables.  The server reads it with Load; optional components read
// their own sections with the Load* helpers in the sibling files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the server's runtime configuration.  Each field
// corresponds to an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	LogLevel       string // LOG_LEVEL, defaults to info
	DBUser         string // DB_USER
	DBPass         string // DB_PASS (empty allowed)
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST

	RabbitMQURL          string // RABBITMQ_URL; empty sends confirmations in-process
	EmailQueue           string // EMAIL_QUEUE, defaults to booking_confirmations
	EmailConsumerEnabled bool   // EMAIL_CONSUMER_ENABLED, run the consumer inside the server

	SendGridAPIKey    string // SENDGRID_API_KEY; empty logs emails instead of sending
	SendGridFromEmail string // SENDGRID_FROM_EMAIL
	SendGridFromName  string // SENDGRID_FROM_NAME

	Booking BookingConfig
}

// DSNParts returns the database connection fields in the order
// database.Open expects them.
func (c Config) DSNParts() (user, pass, host, port, name string) {
	return c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName
}

// Load reads configuration from the environment.  Every missing or
// malformed required variable is reported in the returned error.
func Load() (Config, error) {
	r := &reader{}
	cfg := Config{
		Env:            r.must("APP_ENV"),
		Port:           r.must("APP_PORT"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		DBUser:         r.must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         r.must("DB_HOST"),
		DBPort:         r.must("DB_PORT"),
		DBName:         r.must("DB_NAME"),
		JWTSecret:      r.must("JWT_SECRET"),
		AccessTTLMin:   r.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: r.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     r.mustInt("BCRYPT_COST"),

		RabbitMQURL:          strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		EmailQueue:           getenv("EMAIL_QUEUE", "booking_confirmations"),
		EmailConsumerEnabled: envBool("EMAIL_CONSUMER_ENABLED", true),

		SendGridAPIKey:    strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		SendGridFromEmail: getenv("SENDGRID_FROM_EMAIL", "bookings@example.com"),
		SendGridFromName:  getenv("SENDGRID_FROM_NAME", "Mobile Detailing"),
	}
	booking, err := LoadBookingConfig()
	if err != nil {
		r.errs = append(r.errs, err)
	}
	cfg.Booking = booking
	return cfg, errors.Join(r.errs...)
}

// reader collects problems with required variables so that all of them
// are reported at once.
type reader struct {
	errs []error
}

func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.errs = append(r.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (r *reader) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}
