// Package repository holds the MySQL data access layer.  The sentinel
// errors below are shared across repositories so handlers and services
// can map storage outcomes to HTTP status codes without inspecting
// driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
// Handlers translate it into 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot proceed because of
// existing state, for example deleting a slot that already holds
// bookings or adding a slot that overlaps another.  Handlers translate
// it into 409.
var ErrConflict = errors.New("conflict")

// ErrSlotUnavailable is returned when a slot is blocked or full at the
// moment a booking tries to take it.
var ErrSlotUnavailable = errors.New("slot is no longer available")

// ErrDuplicateReference is returned when a generated booking reference
// collides with an existing one.
var ErrDuplicateReference = errors.New("booking reference already exists")

// ErrEmailExists is returned when an account with the email exists.
var ErrEmailExists = errors.New("email already exists")

// isDuplicateKey reports whether err is MySQL error 1062.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
