package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/iliyamo/detailing-booking/internal/model"
)

// SlotRepo manages time_slots and the working_days flags that sit
// beside them.  Every write that changes what a client would see
// touches working_days.updated_at for the affected date so that
// LatestChange can answer "has anything moved since X" cheaply.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to db.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// DB exposes the handle so callers can open transactions that span
// several repositories.
func (r *SlotRepo) DB() *sql.DB { return r.db }

const slotColumns = `id, slot_date, start_time, end_time, duration_minutes,
	max_bookings, current_bookings, is_blocked, block_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (model.Slot, error) {
	var (
		s      model.Slot
		id     uint64
		date   time.Time
		start  string
		end    string
		reason sql.NullString
	)
	if err := row.Scan(&id, &date, &start, &end, &s.DurationMinutes,
		&s.MaxBookings, &s.CurrentBookings, &s.IsBlocked, &reason); err != nil {
		return model.Slot{}, err
	}
	s.ID = strconv.FormatUint(id, 10)
	s.Date = date.Format(model.DateLayout)
	s.StartTime = model.NormalizeTime(start)
	s.EndTime = model.NormalizeTime(end)
	if reason.Valid {
		s.BlockReason = reason.String
	}
	return s.WithDerived(), nil
}

// ListByDateRange returns every slot between from and to inclusive,
// ordered by date and start time.
func (r *SlotRepo) ListByDateRange(ctx context.Context, from, to string) ([]model.Slot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM time_slots
		 WHERE slot_date BETWEEN ? AND ?
		 ORDER BY slot_date, start_time`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ListByDate returns the slots for a single date.
func (r *SlotRepo) ListByDate(ctx context.Context, date string) ([]model.Slot, error) {
	return r.ListByDateRange(ctx, date, date)
}

// ListAvailableByDate returns only the slots a customer can still book.
func (r *SlotRepo) ListAvailableByDate(ctx context.Context, date string) ([]model.Slot, error) {
	all, err := r.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	open := make([]model.Slot, 0, len(all))
	for _, s := range all {
		if s.IsAvailable {
			open = append(open, s)
		}
	}
	return open, nil
}

// WorkingDays returns the explicit working flags stored for the range.
// Dates without a row are absent from the map.
func (r *SlotRepo) WorkingDays(ctx context.Context, from, to string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT work_date, is_working FROM working_days WHERE work_date BETWEEN ? AND ?`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var (
			d  time.Time
			ok bool
		)
		if err := rows.Scan(&d, &ok); err != nil {
			return nil, err
		}
		out[d.Format(model.DateLayout)] = ok
	}
	return out, rows.Err()
}

// WeekOverview summarizes the seven days starting at weekStart.  A day
// with no working_days row counts as working when it has slots.
func (r *SlotRepo) WeekOverview(ctx context.Context, weekStart time.Time) ([]model.DayOverview, error) {
	dates := model.WeekDates(weekStart)
	from := dates[0].Format(model.DateLayout)
	to := dates[6].Format(model.DateLayout)

	slots, err := r.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	flags, err := r.WorkingDays(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string][]model.Slot, 7)
	for _, s := range slots {
		byDate[s.Date] = append(byDate[s.Date], s)
	}
	days := make([]model.DayOverview, 0, 7)
	for _, d := range dates {
		key := d.Format(model.DateLayout)
		working, ok := flags[key]
		if !ok {
			working = len(byDate[key]) > 0
		}
		days = append(days, model.SummarizeDay(d, working, byDate[key]))
	}
	return days, nil
}

// GetByID loads one slot.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (model.Slot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM time_slots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, ErrNotFound
	}
	return s, err
}

// GetForUpdateTx loads a slot and locks its row until tx ends.
func (r *SlotRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Slot, error) {
	s, err := scanSlot(tx.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM time_slots WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, ErrNotFound
	}
	return s, err
}

// Create inserts a slot after checking that it does not overlap any
// other slot on the same date.  The new ID is written back to s.  If
// the date is switched off the slot is created blocked.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	s.StartTime, s.EndTime = model.NormalizeTime(s.StartTime), model.NormalizeTime(s.EndTime)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT start_time, end_time FROM time_slots WHERE slot_date = ? FOR UPDATE`, s.Date)
	if err != nil {
		return err
	}
	for rows.Next() {
		var st, en string
		if err := rows.Scan(&st, &en); err != nil {
			rows.Close()
			return err
		}
		if model.Overlaps(s.StartTime, s.EndTime, model.NormalizeTime(st), model.NormalizeTime(en)) {
			rows.Close()
			return ErrConflict
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	var working sql.NullBool
	err = tx.QueryRowContext(ctx,
		`SELECT is_working FROM working_days WHERE work_date = ?`, s.Date).Scan(&working)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if working.Valid && !working.Bool {
		s.IsBlocked = true
		s.BlockReason = model.BlockReasonDayOff
	}

	var reason any
	if s.BlockReason != "" {
		reason = s.BlockReason
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO time_slots (slot_date, start_time, end_time, duration_minutes, max_bookings, current_bookings, is_blocked, block_reason)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		s.Date, s.StartTime, s.EndTime, s.DurationMinutes, s.MaxBookings, s.IsBlocked, reason)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := r.touchDayTx(ctx, tx, s.Date); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	s.ID = strconv.FormatInt(id, 10)
	s.CurrentBookings = 0
	*s = s.WithDerived()
	return nil
}

// Delete removes a slot that holds no bookings.  A slot with bookings
// yields ErrConflict; a missing slot yields ErrNotFound.
func (r *SlotRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		date   time.Time
		booked int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT slot_date, current_bookings FROM time_slots WHERE id = ? FOR UPDATE`, id).Scan(&date, &booked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if booked > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_slots WHERE id = ?`, id); err != nil {
		return err
	}
	if err := r.touchDayTx(ctx, tx, date.Format(model.DateLayout)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetWorkingDay records the working flag for date.  Switching a day off
// blocks every open slot on it with reason day_off; switching it back
// on releases only those slots, so slots that are full or blocked by
// an admin keep their state.
func (r *SlotRepo) SetWorkingDay(ctx context.Context, date string, working bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO working_days (work_date, is_working) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE is_working = VALUES(is_working), updated_at = CURRENT_TIMESTAMP(3)`,
		date, working); err != nil {
		return err
	}
	if working {
		_, err = tx.ExecContext(ctx,
			`UPDATE time_slots SET is_blocked = FALSE, block_reason = NULL
			 WHERE slot_date = ? AND block_reason = ?`, date, model.BlockReasonDayOff)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE time_slots SET is_blocked = TRUE, block_reason = ?
			 WHERE slot_date = ? AND is_blocked = FALSE`, model.BlockReasonDayOff, date)
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ReserveTx takes one unit of capacity from a slot.  The update is
// guarded so it only succeeds while the slot is open and below
// capacity; a zero row count means another booking got there first.
// The slot is blocked as full when it reaches capacity, or straight
// away when closeAfter is set.
//
// MySQL evaluates single-table SET assignments left to right, so
// is_blocked sees the incremented count and block_reason sees the new
// is_blocked.
func (r *SlotRepo) ReserveTx(ctx context.Context, tx *sql.Tx, id uint64, closeAfter bool) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE time_slots
		 SET current_bookings = current_bookings + 1,
		     is_blocked = (? OR current_bookings >= max_bookings),
		     block_reason = IF(is_blocked, ?, NULL)
		 WHERE id = ? AND is_blocked = FALSE AND current_bookings < max_bookings`,
		closeAfter, model.BlockReasonFull, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSlotUnavailable
	}
	return r.touchSlotDayTx(ctx, tx, id)
}

// ReleaseTx gives one unit of capacity back.  A slot that was blocked
// only because it was full reopens, unless its day is switched off, in
// which case it is re-blocked as day_off.
func (r *SlotRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE time_slots
		 SET current_bookings = current_bookings - 1,
		     is_blocked = IF(block_reason = ?, FALSE, is_blocked),
		     block_reason = IF(block_reason = ?, NULL, block_reason)
		 WHERE id = ? AND current_bookings > 0`,
		model.BlockReasonFull, model.BlockReasonFull, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE time_slots ts JOIN working_days wd ON wd.work_date = ts.slot_date
		 SET ts.is_blocked = TRUE, ts.block_reason = ?
		 WHERE ts.id = ? AND wd.is_working = FALSE AND ts.is_blocked = FALSE`,
		model.BlockReasonDayOff, id); err != nil {
		return err
	}
	return r.touchSlotDayTx(ctx, tx, id)
}

// LatestChange returns the newest modification time of any slot or
// working-day flag in the range.  The zero time means nothing exists.
func (r *SlotRepo) LatestChange(ctx context.Context, from, to string) (time.Time, error) {
	var slotsAt, daysAt sql.NullTime
	if err := r.db.QueryRowContext(ctx,
		`SELECT MAX(updated_at) FROM time_slots WHERE slot_date BETWEEN ? AND ?`,
		from, to).Scan(&slotsAt); err != nil {
		return time.Time{}, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT MAX(updated_at) FROM working_days WHERE work_date BETWEEN ? AND ?`,
		from, to).Scan(&daysAt); err != nil {
		return time.Time{}, err
	}
	var latest time.Time
	if slotsAt.Valid {
		latest = slotsAt.Time
	}
	if daysAt.Valid && daysAt.Time.After(latest) {
		latest = daysAt.Time
	}
	return latest.UTC(), nil
}

// touchDayTx bumps the change marker for date without altering an
// existing working flag.  A date seen for the first time is recorded as
// working.
func (r *SlotRepo) touchDayTx(ctx context.Context, tx *sql.Tx, date string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO working_days (work_date, is_working) VALUES (?, TRUE)
		 ON DUPLICATE KEY UPDATE updated_at = CURRENT_TIMESTAMP(3)`, date)
	return err
}

func (r *SlotRepo) touchSlotDayTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO working_days (work_date, is_working)
		 SELECT slot_date, TRUE FROM time_slots WHERE id = ?
		 ON DUPLICATE KEY UPDATE updated_at = CURRENT_TIMESTAMP(3)`, id)
	return err
}
