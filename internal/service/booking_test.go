package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/detailing-booking/internal/config"
	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/internal/notify"
	"github.com/iliyamo/detailing-booking/internal/repository"
)

type fakePrices map[string]int

func (f fakePrices) Lookup(_ context.Context, serviceID string, size model.VehicleSize) (int, error) {
	if p, ok := f[serviceID+"/"+string(size)]; ok {
		return p, nil
	}
	return 0, repository.ErrNotFound
}

type fakeAccounts struct {
	result AccountResult
	err    error
	calls  int
}

func (f *fakeAccounts) EnsureAccount(context.Context, AccountRequest) (AccountResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeRewards struct {
	userID uint64
	err    error
}

func (f *fakeRewards) AwardBooking(_ context.Context, userID, _ uint64, _ string, totalPence int) (int, model.Tier, error) {
	f.userID = userID
	if f.err != nil {
		return 0, "", f.err
	}
	points := model.PointsForBooking(totalPence, 50)
	return points, model.TierFor(points), nil
}

type fakeDispatcher struct {
	err  error
	sent []notify.BookingConfirmation
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ uint64, c notify.BookingConfirmation) error {
	f.sent = append(f.sent, c)
	return f.err
}

var slotCols = []string{"id", "slot_date", "start_time", "end_time", "duration_minutes",
	"max_bookings", "current_bookings", "is_blocked", "block_reason"}

var vehicleCols = []string{"id", "user_id", "registration", "make", "model", "year", "color", "size", "created_at"}

func newService(db *sql.DB, d BookingDeps) *BookingService {
	d.DB = db
	d.Slots = repository.NewSlotRepo(db)
	d.Vehicles = repository.NewVehicleRepo(db)
	d.Bookings = repository.NewBookingRepo(db)
	if d.Pricing == nil {
		d.Pricing = NewPricingResolver(fakePrices{"full-valet/medium": 7599}, 0, nil)
	}
	if d.Config.ReferencePrefix == "" {
		d.Config = config.BookingConfig{CapacityPolicy: config.CapacityDecrement, ReferencePrefix: "L4D"}
	}
	return NewBookingService(d)
}

func validRequest() BookingRequest {
	return BookingRequest{
		CustomerEmail:       "sam@example.com",
		CustomerName:        "Sam Driver",
		SlotID:              "3",
		ServiceID:           "full-valet",
		VehicleSize:         "medium",
		VehicleRegistration: "ab12 cde",
		ServiceAddress:      "1 High St",
	}
}

func expectBookingTx(mock sqlmock.Sqlmock, maxBookings, current int) {
	mock.ExpectBegin()
	mock.ExpectQuery("FROM time_slots WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(3, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), "09:00:00", "10:00:00", 60, maxBookings, current, false, nil))
	mock.ExpectQuery("FROM vehicles WHERE registration").
		WithArgs("AB12CDE").
		WillReturnRows(sqlmock.NewRows(vehicleCols))
	mock.ExpectExec("INSERT INTO vehicles").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE time_slots").
		WithArgs(false, "full", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO working_days").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
}

func TestCreateBookingGuestWithEnrichment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectBookingTx(mock, 1, 0)
	mock.ExpectExec("UPDATE bookings SET user_id").WithArgs(uint64(8), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE vehicles SET user_id").WithArgs(uint64(8), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	accounts := &fakeAccounts{result: AccountResult{UserID: 8, Created: true}}
	rewards := &fakeRewards{}
	dispatcher := &fakeDispatcher{}
	svc := newService(db, BookingDeps{Accounts: accounts, Rewards: rewards, Dispatcher: dispatcher})

	res, err := svc.Create(context.Background(), validRequest(), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(11), res.BookingID)
	assert.Regexp(t, `^L4D\d{8}[A-Z0-9]{4}$`, res.Reference)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	assert.Equal(t, 7599, res.TotalPricePence)
	assert.True(t, res.AccountCreated)
	require.NotNil(t, res.UserID)
	assert.Equal(t, uint64(8), *res.UserID)
	assert.Equal(t, 125, res.PointsAwarded)
	assert.Equal(t, model.TierBronze, res.NewTier)
	assert.True(t, res.EmailTriggered)
	assert.Empty(t, res.EmailError)

	assert.Equal(t, uint64(8), rewards.userID)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "2026-10-21", dispatcher.sent[0].SlotDate)
	assert.True(t, dispatcher.sent[0].AccountCreated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingSurvivesEnrichmentFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectBookingTx(mock, 2, 0)

	accounts := &fakeAccounts{err: errors.New("users table locked")}
	dispatcher := &fakeDispatcher{err: errors.New("email service down")}
	svc := newService(db, BookingDeps{Accounts: accounts, Rewards: &fakeRewards{}, Dispatcher: dispatcher})

	res, err := svc.Create(context.Background(), validRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.BookingID)
	assert.Nil(t, res.UserID)
	assert.False(t, res.AccountCreated)
	assert.Zero(t, res.PointsAwarded)
	assert.False(t, res.EmailTriggered)
	assert.Equal(t, "email service down", res.EmailError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingLinksSignedInCustomer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM time_slots WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(3, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), "09:00:00", "10:00:00", 60, 1, 0, false, nil))
	mock.ExpectQuery("FROM vehicles WHERE registration").
		WillReturnRows(sqlmock.NewRows(vehicleCols))
	mock.ExpectExec("INSERT INTO vehicles").
		WithArgs(uint64(42), "AB12CDE", "", "", nil, "", "medium").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE time_slots").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO working_days").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	accounts := &fakeAccounts{}
	rewards := &fakeRewards{}
	svc := newService(db, BookingDeps{Accounts: accounts, Rewards: rewards})

	res, err := svc.Create(context.Background(), validRequest(), &Session{UserID: 42, Email: "SAM@example.com"})
	require.NoError(t, err)
	require.NotNil(t, res.UserID)
	assert.Equal(t, uint64(42), *res.UserID)
	assert.Zero(t, accounts.calls)
	assert.Equal(t, uint64(42), rewards.userID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingValidation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := newService(db, BookingDeps{})

	_, err = svc.Create(context.Background(), BookingRequest{CustomerPhone: "0700"}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Missing required fields", verr.Message)
	assert.Equal(t, []string{"customer_email", "customer_name", "slot_id", "service_id", "vehicle_size"}, verr.Fields)

	req := validRequest()
	req.VehicleSize = "lorry"
	_, err = svc.Create(context.Background(), req, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"vehicle_size"}, verr.Fields)

	req = validRequest()
	req.CustomerEmail = "not-an-email"
	_, err = svc.Create(context.Background(), req, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"customer_email"}, verr.Fields)

	assert.NoError(t, mock.ExpectationsWereMet(), "validation must not touch the database")
}

func TestCreateBookingRejectsFullSlot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM time_slots WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(3, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), "09:00:00", "10:00:00", 60, 1, 1, true, "full"))
	mock.ExpectRollback()

	_, err = newService(db, BookingDeps{}).Create(context.Background(), validRequest(), nil)
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingLosesCapacityRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM time_slots WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(3, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), "09:00:00", "10:00:00", 60, 1, 0, false, nil))
	mock.ExpectQuery("FROM vehicles WHERE registration").
		WillReturnRows(sqlmock.NewRows(vehicleCols).
			AddRow(5, nil, "AB12CDE", "Ford", "Focus", 2019, "Blue", "medium", time.Now()))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE time_slots").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = newService(db, BookingDeps{}).Create(context.Background(), validRequest(), nil)
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingClosePolicy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM time_slots WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(3, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), "09:00:00", "10:00:00", 60, 4, 0, false, nil))
	mock.ExpectQuery("FROM vehicles WHERE registration").
		WillReturnRows(sqlmock.NewRows(vehicleCols))
	mock.ExpectExec("INSERT INTO vehicles").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE time_slots").
		WithArgs(true, "full", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO working_days").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := newService(db, BookingDeps{Config: config.BookingConfig{CapacityPolicy: config.CapacityClose, ReferencePrefix: "L4D"}})
	_, err = svc.Create(context.Background(), validRequest(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRetriesReferenceCollision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key booking_reference"}
	mock.ExpectBegin()
	mock.ExpectQuery("FROM time_slots WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(3, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), "09:00:00", "10:00:00", 60, 1, 0, false, nil))
	mock.ExpectQuery("FROM vehicles WHERE registration").
		WillReturnRows(sqlmock.NewRows(vehicleCols))
	mock.ExpectExec("INSERT INTO vehicles").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("INSERT INTO bookings").WillReturnError(dup)
	mock.ExpectExec("INSERT INTO bookings").WillReturnError(dup)
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE time_slots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO working_days").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := newService(db, BookingDeps{}).Create(context.Background(), validRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.BookingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingDatabaseUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err = newService(db, BookingDeps{}).Create(context.Background(), validRequest(), nil)
	assert.ErrorIs(t, err, ErrDatabaseUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingUnknownSlot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM time_slots WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(slotCols))
	mock.ExpectRollback()

	_, err = newService(db, BookingDeps{}).Create(context.Background(), validRequest(), nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

var bookingCols = []string{"id", "booking_reference", "user_id", "vehicle_id", "slot_id", "service_id",
	"customer_email", "customer_name", "customer_phone", "service_address", "special_instructions",
	"payment_method", "service_price_pence", "total_price_pence", "status", "payment_status",
	"created_at", "confirmed_at", "completed_at", "cancelled_at"}

func bookingRow(status string) *sqlmock.Rows {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(bookingCols).AddRow(
		11, "L4D12345678ABCD", nil, 5, 3, "full-valet",
		"sam@example.com", "Sam", "", "", nil,
		"", 7599, 7599, status, "pending",
		now, now, nil, nil)
}

func TestUpdateStatusCancelReleasesCapacity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(11)).
		WillReturnRows(bookingRow("confirmed"))
	mock.ExpectExec("UPDATE bookings SET status = \\?, cancelled_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE time_slots").
		WithArgs("full", "full", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE time_slots ts JOIN working_days").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO working_days").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := newService(db, BookingDeps{}).UpdateStatus(context.Background(), 11, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, b.Status)
	assert.NotNil(t, b.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").
		WillReturnRows(bookingRow("completed"))
	mock.ExpectRollback()

	_, err = newService(db, BookingDeps{}).UpdateStatus(context.Background(), 11, model.StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
