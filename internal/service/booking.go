package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/detailing-booking/internal/config"
	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/internal/notify"
	"github.com/iliyamo/detailing-booking/internal/observability/metrics"
	"github.com/iliyamo/detailing-booking/internal/repository"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

var bookingTracer = otel.Tracer("detailing.internal.service.booking")

// maxReferenceAttempts bounds retries on booking reference collisions.
const maxReferenceAttempts = 3

// BookingRequest is the customer's booking form.
type BookingRequest struct {
	CustomerEmail       string       `json:"customer_email" validate:"required,email"`
	CustomerName        string       `json:"customer_name" validate:"required"`
	CustomerPhone       string       `json:"customer_phone"`
	SlotID              model.FlexID `json:"slot_id" validate:"required"`
	ServiceID           string       `json:"service_id" validate:"required"`
	VehicleSize         string       `json:"vehicle_size" validate:"required"`
	VehicleRegistration string       `json:"vehicle_registration"`
	VehicleMake         string       `json:"vehicle_make"`
	VehicleModel        string       `json:"vehicle_model"`
	VehicleYear         *int         `json:"vehicle_year" validate:"omitempty,gte=1900,lte=2100"`
	VehicleColor        string       `json:"vehicle_color"`
	ServiceAddress      string       `json:"service_address"`
	SpecialInstructions string       `json:"special_instructions"`
	PaymentMethod       string       `json:"payment_method"`
}

// Session is the signed-in caller, if any.
type Session struct {
	UserID uint64
	Email  string
}

// BookingResult is returned to the customer.  Enrichment fields are
// only present when the step applied.
type BookingResult struct {
	BookingID       uint64              `json:"booking_id"`
	Reference       string              `json:"booking_reference"`
	Status          model.BookingStatus `json:"status"`
	TotalPricePence int                 `json:"total_price_pence"`
	AccountCreated  bool                `json:"account_created,omitempty"`
	UserID          *uint64             `json:"user_id,omitempty"`
	PointsAwarded   int                 `json:"points_awarded,omitempty"`
	NewTier         model.Tier          `json:"new_tier,omitempty"`
	EmailTriggered  bool                `json:"email_triggered,omitempty"`
	EmailError      string              `json:"email_error,omitempty"`
}

// AccountLinker finds or opens the account behind a guest booking.
type AccountLinker interface {
	EnsureAccount(ctx context.Context, req AccountRequest) (AccountResult, error)
}

// PointsAwarder credits reward points for a booking.
type PointsAwarder interface {
	AwardBooking(ctx context.Context, userID, bookingID uint64, reference string, totalPence int) (int, model.Tier, error)
}

// ConfirmationDispatcher hands the confirmation email off for delivery.
type ConfirmationDispatcher interface {
	Dispatch(ctx context.Context, bookingID uint64, c notify.BookingConfirmation) error
}

// BookingDeps wires a BookingService.  Accounts, Rewards, Dispatcher
// and Metrics are optional.
type BookingDeps struct {
	DB         *sql.DB
	Slots      *repository.SlotRepo
	Vehicles   *repository.VehicleRepo
	Bookings   *repository.BookingRepo
	Pricing    *PricingResolver
	References *ReferenceGenerator
	Accounts   AccountLinker
	Rewards    PointsAwarder
	Dispatcher ConfirmationDispatcher
	Metrics    *metrics.BookingMetrics
	Logger     *logging.Logger
	Config     config.BookingConfig
}

// BookingService creates bookings and moves them through their
// lifecycle.  Creation is one MySQL transaction: lock the slot, find or
// create the vehicle, insert the booking and take capacity.  Account
// linking, reward points and the confirmation email run after commit
// and can only add soft flags to the result.
type BookingService struct {
	BookingDeps
	validate *validator.Validate
	tracer   trace.Tracer
	now      func() time.Time
}

func NewBookingService(d BookingDeps) *BookingService {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.References == nil {
		prefix := d.Config.ReferencePrefix
		if prefix == "" {
			prefix = "L4D"
		}
		d.References = NewReferenceGenerator(prefix)
	}
	return &BookingService{
		BookingDeps: d,
		validate:    newValidator(),
		tracer:      bookingTracer,
		now:         time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the request and returns the parsed vehicle size and
// slot ID.  Missing fields are reported together.
func (s *BookingService) Validate(req *BookingRequest) (model.VehicleSize, uint64, error) {
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.ServiceID = strings.TrimSpace(req.ServiceID)

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return "", 0, err
		}
		missing, invalid := []string{}, []string{}
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				missing = append(missing, fe.Field())
			} else {
				invalid = append(invalid, fe.Field())
			}
		}
		if len(missing) > 0 {
			return "", 0, &ValidationError{Message: "Missing required fields", Fields: missing}
		}
		return "", 0, &ValidationError{Message: "Invalid fields", Fields: invalid}
	}

	size, ok := model.ParseVehicleSize(req.VehicleSize)
	if !ok {
		return "", 0, &ValidationError{Message: "Invalid fields", Fields: []string{"vehicle_size"}}
	}
	slotID, err := req.SlotID.Uint64()
	if err != nil {
		return "", 0, &ValidationError{Message: "Invalid fields", Fields: []string{"slot_id"}}
	}
	return size, slotID, nil
}

// Create books a slot.  Only validation, slot and database failures are
// returned as errors; later steps degrade to flags on the result.
func (s *BookingService) Create(ctx context.Context, req BookingRequest, session *Session) (*BookingResult, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create")
	defer span.End()
	started := s.now()

	size, slotID, err := s.Validate(&req)
	if err != nil {
		s.fail(span, "invalid", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("booking.service_id", req.ServiceID),
		attribute.String("booking.vehicle_size", string(size)),
		attribute.Int64("booking.slot_id", int64(slotID)),
	)

	var owner *uint64
	if session != nil && session.UserID != 0 && strings.EqualFold(session.Email, req.CustomerEmail) {
		uid := session.UserID
		owner = &uid
	}

	b, slot, vehicle, err := s.persist(ctx, req, size, slotID, owner)
	if err != nil {
		s.fail(span, outcomeFor(err), err)
		return nil, err
	}
	s.Metrics.ObserveCreate("created", s.now().Sub(started).Seconds())
	span.SetAttributes(attribute.String("booking.reference", b.Reference))
	s.Logger.Info("booking created", "booking_id", b.ID, "reference", b.Reference, "slot_id", slotID)

	res := &BookingResult{
		BookingID:       b.ID,
		Reference:       b.Reference,
		Status:          b.Status,
		TotalPricePence: b.TotalPricePence,
		UserID:          owner,
	}
	s.enrich(ctx, req, b, slot, vehicle, res)
	return res, nil
}

func (s *BookingService) fail(span trace.Span, outcome string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	s.Metrics.ObserveCreate(outcome, 0)
	if outcome == "error" || outcome == "db_unavailable" {
		s.Logger.Error("booking failed", "error", err)
	}
}

func outcomeFor(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, repository.ErrSlotUnavailable):
		return "unavailable"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDatabaseUnavailable):
		return "db_unavailable"
	default:
		return "error"
	}
}

// persist runs the booking transaction.
func (s *BookingService) persist(ctx context.Context, req BookingRequest, size model.VehicleSize, slotID uint64, owner *uint64) (*model.Booking, model.Slot, *model.Vehicle, error) {
	if err := s.DB.PingContext(ctx); err != nil {
		return nil, model.Slot{}, nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	price := s.Pricing.Resolve(ctx, req.ServiceID, size)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Slot{}, nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slot, err := s.Slots.GetForUpdateTx(ctx, tx, slotID)
	if err != nil {
		return nil, model.Slot{}, nil, fmt.Errorf("load slot %d: %w", slotID, err)
	}
	if !slot.Available() {
		return nil, model.Slot{}, nil, repository.ErrSlotUnavailable
	}

	vehicle, err := s.Vehicles.FindByRegistrationTx(ctx, tx, req.VehicleRegistration)
	if errors.Is(err, repository.ErrNotFound) {
		vehicle = &model.Vehicle{
			UserID:       owner,
			Registration: req.VehicleRegistration,
			Make:         req.VehicleMake,
			Model:        req.VehicleModel,
			Year:         req.VehicleYear,
			Color:        req.VehicleColor,
			Size:         size,
		}
		err = s.Vehicles.CreateTx(ctx, tx, vehicle)
	}
	if err != nil {
		return nil, model.Slot{}, nil, fmt.Errorf("vehicle: %w", err)
	}

	now := s.now().UTC()
	b := &model.Booking{
		UserID:            owner,
		VehicleID:         vehicle.ID,
		SlotID:            slotID,
		ServiceID:         req.ServiceID,
		CustomerEmail:     req.CustomerEmail,
		CustomerName:      req.CustomerName,
		CustomerPhone:     req.CustomerPhone,
		ServiceAddress:    req.ServiceAddress,
		Notes:             req.SpecialInstructions,
		PaymentMethod:     req.PaymentMethod,
		ServicePricePence: price,
		TotalPricePence:   price,
		Status:            model.StatusConfirmed,
		PaymentStatus:     model.PaymentPending,
		CreatedAt:         now,
		ConfirmedAt:       &now,
	}
	for attempt := 1; ; attempt++ {
		if b.Reference, err = s.References.Generate(); err != nil {
			return nil, model.Slot{}, nil, err
		}
		err = s.Bookings.CreateTx(ctx, tx, b)
		if !errors.Is(err, repository.ErrDuplicateReference) || attempt == maxReferenceAttempts {
			break
		}
		s.Logger.Warn("booking reference collision, regenerating", "reference", b.Reference)
	}
	if err != nil {
		return nil, model.Slot{}, nil, fmt.Errorf("insert booking: %w", err)
	}

	if err := s.Slots.ReserveTx(ctx, tx, slotID, s.Config.CloseSlotAfterBooking()); err != nil {
		return nil, model.Slot{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, model.Slot{}, nil, fmt.Errorf("commit booking: %w", err)
	}
	committed = true
	return b, slot, vehicle, nil
}

// enrich runs the post-commit steps.  Each failure is logged and
// isolated from the others.
func (s *BookingService) enrich(ctx context.Context, req BookingRequest, b *model.Booking, slot model.Slot, v *model.Vehicle, res *BookingResult) {
	userID := b.UserID
	if userID == nil && s.Accounts != nil {
		acct, err := s.Accounts.EnsureAccount(ctx, AccountRequest{
			Email:    req.CustomerEmail,
			FullName: req.CustomerName,
			Phone:    req.CustomerPhone,
		})
		if err == nil {
			err = s.link(ctx, b.ID, acct.UserID)
		}
		s.Metrics.ObserveEnrichment("account", ignoreNoAccount(err))
		switch {
		case err == nil:
			uid := acct.UserID
			userID = &uid
			res.UserID = userID
			res.AccountCreated = acct.Created
		case errors.Is(err, ErrNoAccount):
		default:
			s.Logger.Error("account reconciliation failed", "error", err, "booking_id", b.ID)
		}
	}
	if userID != nil && v.UserID == nil {
		if err := s.Vehicles.AssignOwner(ctx, v.ID, *userID); err != nil {
			s.Logger.Warn("vehicle owner update failed", "error", err, "vehicle_id", v.ID)
		}
	}

	if userID != nil && s.Rewards != nil {
		points, tier, err := s.Rewards.AwardBooking(ctx, *userID, b.ID, b.Reference, b.TotalPricePence)
		s.Metrics.ObserveEnrichment("rewards", err)
		if err != nil {
			s.Logger.Error("reward points failed", "error", err, "booking_id", b.ID)
		} else {
			res.PointsAwarded = points
			res.NewTier = tier
		}
	}

	if s.Dispatcher != nil {
		err := s.Dispatcher.Dispatch(ctx, b.ID, notify.BookingConfirmation{
			Reference:       b.Reference,
			CustomerName:    b.CustomerName,
			CustomerEmail:   b.CustomerEmail,
			ServiceID:       b.ServiceID,
			SlotDate:        slot.Date,
			StartTime:       slot.StartTime,
			ServiceAddress:  b.ServiceAddress,
			TotalPricePence: b.TotalPricePence,
			AccountCreated:  res.AccountCreated,
		})
		s.Metrics.ObserveEnrichment("email", err)
		if err != nil {
			s.Logger.Error("confirmation dispatch failed", "error", err, "booking_id", b.ID)
			res.EmailError = err.Error()
		} else {
			res.EmailTriggered = true
		}
	}
}

func (s *BookingService) link(ctx context.Context, bookingID, userID uint64) error {
	if err := s.Bookings.AssignUser(ctx, bookingID, userID); err != nil {
		return fmt.Errorf("link booking: %w", err)
	}
	return nil
}

func ignoreNoAccount(err error) error {
	if errors.Is(err, ErrNoAccount) {
		return nil
	}
	return err
}

// Get returns a booking by its public reference.
func (s *BookingService) Get(ctx context.Context, reference string) (*model.Booking, error) {
	return s.Bookings.GetByReference(ctx, strings.ToUpper(strings.TrimSpace(reference)))
}

// UpdateStatus moves a booking along its lifecycle.  Cancelling hands
// the slot's capacity back in the same transaction.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID uint64, to model.BookingStatus) (*model.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.update_status",
		trace.WithAttributes(attribute.Int64("booking.id", int64(bookingID)), attribute.String("booking.status", string(to))))
	defer span.End()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.Bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(b.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, to)
	}
	at := s.now().UTC()
	if err := s.Bookings.UpdateStatusTx(ctx, tx, b.ID, to, at); err != nil {
		return nil, err
	}
	if to == model.StatusCancelled {
		if err := s.Slots.ReleaseTx(ctx, tx, b.SlotID); err != nil && !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("release slot %d: %w", b.SlotID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	committed = true

	b.Status = to
	switch to {
	case model.StatusConfirmed:
		b.ConfirmedAt = &at
	case model.StatusCompleted:
		b.CompletedAt = &at
	case model.StatusCancelled:
		b.CancelledAt = &at
	}
	s.Logger.Info("booking status changed", "booking_id", b.ID, "status", to)
	return b, nil
}
