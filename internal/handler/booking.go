package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/internal/repository"
	"github.com/iliyamo/detailing-booking/internal/service"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// BookingHandler exposes booking creation, lookup and admin status
// changes.
type BookingHandler struct {
	Bookings *service.BookingService
	Logger   *logging.Logger
}

func NewBookingHandler(s *service.BookingService, logger *logging.Logger) *BookingHandler {
	if s == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{Bookings: s, Logger: logger}
}

type createBookingReq struct {
	BookingData service.BookingRequest `json:"bookingData"`
}

// Create handles POST /api/bookings/enhanced/create.  The booking
// itself is the only thing that can fail the request.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return failDetails(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.Bookings.Create(ctx, req.BookingData, sessionFrom(c))
	if err != nil {
		return h.bookingError(c, err)
	}
	return success(c, http.StatusCreated, res)
}

func (h *BookingHandler) bookingError(c echo.Context, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return failDetails(c, http.StatusBadRequest, verr.Message, strings.Join(verr.Fields, ", "))
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, "Slot not found")
	case errors.Is(err, repository.ErrSlotUnavailable):
		return failDetails(c, http.StatusConflict, "Slot is no longer available", "choose another time")
	case errors.Is(err, service.ErrDatabaseUnavailable):
		return failDetails(c, http.StatusServiceUnavailable, "Database unavailable", "please try again shortly")
	default:
		return failDetails(c, http.StatusInternalServerError, "Failed to create booking", err.Error())
	}
}

// bookingView is the customer-facing shape of a booking.
type bookingView struct {
	ID                uint64              `json:"booking_id"`
	Reference         string              `json:"booking_reference"`
	SlotID            uint64              `json:"slot_id"`
	ServiceID         string              `json:"service_id"`
	CustomerName      string              `json:"customer_name"`
	CustomerEmail     string              `json:"customer_email"`
	ServiceAddress    string              `json:"service_address,omitempty"`
	ServicePricePence int                 `json:"service_price_pence"`
	TotalPricePence   int                 `json:"total_price_pence"`
	Status            model.BookingStatus `json:"status"`
	PaymentStatus     model.PaymentStatus `json:"payment_status"`
	CreatedAt         time.Time           `json:"created_at"`
	ConfirmedAt       *time.Time          `json:"confirmed_at,omitempty"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
}

func toBookingView(b *model.Booking) bookingView {
	return bookingView{
		ID:                b.ID,
		Reference:         b.Reference,
		SlotID:            b.SlotID,
		ServiceID:         b.ServiceID,
		CustomerName:      b.CustomerName,
		CustomerEmail:     b.CustomerEmail,
		ServiceAddress:    b.ServiceAddress,
		ServicePricePence: b.ServicePricePence,
		TotalPricePence:   b.TotalPricePence,
		Status:            b.Status,
		PaymentStatus:     b.PaymentStatus,
		CreatedAt:         b.CreatedAt,
		ConfirmedAt:       b.ConfirmedAt,
		CompletedAt:       b.CompletedAt,
		CancelledAt:       b.CancelledAt,
	}
}

// Get handles GET /api/bookings/:reference.
func (h *BookingHandler) Get(c echo.Context) error {
	ref := strings.TrimSpace(c.Param("reference"))
	if ref == "" || len(ref) > service.MaxReferenceLength {
		return fail(c, http.StatusBadRequest, "invalid booking reference")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.Get(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusNotFound, "booking not found")
	}
	if err != nil {
		h.Logger.Error("load booking", "reference", ref, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to load booking")
	}
	return success(c, http.StatusOK, toBookingView(b))
}

type updateStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/admin/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	to, ok := model.ParseBookingStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !ok {
		return fail(c, http.StatusBadRequest, "unknown status")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	b, err := h.Bookings.UpdateStatus(ctx, id, to)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, "booking not found")
	case errors.Is(err, service.ErrInvalidTransition):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrDatabaseUnavailable):
		return fail(c, http.StatusServiceUnavailable, "database unavailable")
	case err != nil:
		h.Logger.Error("update booking status", "booking_id", id, "status", to, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to update booking")
	}
	return success(c, http.StatusOK, toBookingView(b))
}
