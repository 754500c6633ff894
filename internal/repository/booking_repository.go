package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/detailing-booking/internal/model"
)

// BookingRepo persists bookings.  Writes that must be atomic with slot
// capacity changes take a *sql.Tx supplied by the caller.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the handle for callers that coordinate transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// CreateTx inserts b and fills in its ID and CreatedAt.  A reference
// collision is reported as ErrDuplicateReference so the caller can
// regenerate and retry inside the same transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	var userID any
	if b.UserID != nil {
		userID = *b.UserID
	}
	var notes any
	if b.Notes != "" {
		notes = b.Notes
	}
	var confirmedAt any
	if b.ConfirmedAt != nil {
		confirmedAt = *b.ConfirmedAt
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (booking_reference, user_id, vehicle_id, slot_id, service_id,
		   customer_email, customer_name, customer_phone, service_address, special_instructions,
		   payment_method, service_price_pence, total_price_pence, status, payment_status, confirmed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, userID, b.VehicleID, b.SlotID, b.ServiceID,
		b.CustomerEmail, b.CustomerName, b.CustomerPhone, b.ServiceAddress, notes,
		b.PaymentMethod, b.ServicePricePence, b.TotalPricePence, string(b.Status), string(b.PaymentStatus), confirmedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return nil
}

const bookingColumns = `id, booking_reference, user_id, vehicle_id, slot_id, service_id,
	customer_email, customer_name, customer_phone, service_address, special_instructions,
	payment_method, service_price_pence, total_price_pence, status, payment_status,
	created_at, confirmed_at, completed_at, cancelled_at`

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b                               model.Booking
		userID                          sql.NullInt64
		notes                           sql.NullString
		status, payment                 string
		confirmed, completed, cancelled sql.NullTime
	)
	err := row.Scan(&b.ID, &b.Reference, &userID, &b.VehicleID, &b.SlotID, &b.ServiceID,
		&b.CustomerEmail, &b.CustomerName, &b.CustomerPhone, &b.ServiceAddress, &notes,
		&b.PaymentMethod, &b.ServicePricePence, &b.TotalPricePence, &status, &payment,
		&b.CreatedAt, &confirmed, &completed, &cancelled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		b.UserID = &uid
	}
	b.Notes = notes.String
	b.Status = model.BookingStatus(status)
	b.PaymentStatus = model.PaymentStatus(payment)
	b.ConfirmedAt = nullTimePtr(confirmed)
	b.CompletedAt = nullTimePtr(completed)
	b.CancelledAt = nullTimePtr(cancelled)
	return &b, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// GetByReference looks a booking up by its public reference.
func (r *BookingRepo) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_reference = ? LIMIT 1`, reference))
}

// GetForUpdateTx loads a booking by ID and locks it until tx ends.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
}

// UpdateStatusTx moves a booking to status and stamps the matching
// timestamp column.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus, at time.Time) error {
	q := `UPDATE bookings SET status = ? WHERE id = ?`
	switch status {
	case model.StatusConfirmed:
		q = `UPDATE bookings SET status = ?, confirmed_at = ? WHERE id = ?`
	case model.StatusCompleted:
		q = `UPDATE bookings SET status = ?, completed_at = ? WHERE id = ?`
	case model.StatusCancelled:
		q = `UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ?`
	}
	var err error
	if status == model.StatusConfirmed || status == model.StatusCompleted || status == model.StatusCancelled {
		_, err = tx.ExecContext(ctx, q, string(status), at, id)
	} else {
		_, err = tx.ExecContext(ctx, q, string(status), id)
	}
	return err
}

// AssignUser links a guest booking to an account.  Bookings already
// owned by a user are left alone.
func (r *BookingRepo) AssignUser(ctx context.Context, bookingID, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET user_id = ? WHERE id = ? AND user_id IS NULL`, userID, bookingID)
	return err
}
