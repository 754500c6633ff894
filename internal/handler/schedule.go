package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/internal/observability/metrics"
	"github.com/iliyamo/detailing-booking/internal/repository"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// ScheduleHandler serves the admin schedule: week overview, day slots
// and the working-day / slot mutations.
type ScheduleHandler struct {
	Slots    *repository.SlotRepo
	Metrics  *metrics.ScheduleMetrics
	Logger   *logging.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewScheduleHandler(slots *repository.SlotRepo, m *metrics.ScheduleMetrics, logger *logging.Logger) *ScheduleHandler {
	if slots == nil {
		panic("nil slot repository passed to NewScheduleHandler")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleHandler{
		Slots:    slots,
		Metrics:  m,
		Logger:   logger,
		validate: newValidator(),
		now:      time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// weekStartParam parses an optional YYYY-MM-DD week start and snaps it
// to its Monday.  Empty means the current week.
func (h *ScheduleHandler) weekStartParam(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return model.WeekStart(h.now()), nil
	}
	d, err := model.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return model.WeekStart(d), nil
}

// Get handles GET /api/admin/schedule?action=get_week_overview|get_day_slots.
func (h *ScheduleHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch c.QueryParam("action") {
	case "get_week_overview":
		start, err := h.weekStartParam(c.QueryParam("week_start"))
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid week_start")
		}
		days, err := h.Slots.WeekOverview(ctx, start)
		if err != nil {
			h.Logger.Error("load week overview", "week_start", start.Format(model.DateLayout), "error", err)
			return fail(c, http.StatusInternalServerError, "failed to load week overview")
		}
		return success(c, http.StatusOK, days)

	case "get_day_slots":
		date := strings.TrimSpace(c.QueryParam("date"))
		if _, err := model.ParseDate(date); err != nil {
			return fail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		slots, err := h.Slots.ListByDate(ctx, date)
		if err != nil {
			h.Logger.Error("load day slots", "date", date, "error", err)
			return fail(c, http.StatusInternalServerError, "failed to load slots")
		}
		return success(c, http.StatusOK, slots)

	default:
		return fail(c, http.StatusBadRequest, "unknown action")
	}
}

// Post handles POST /api/admin/schedule.  The body's action field picks
// the command.
func (h *ScheduleHandler) Post(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 64<<10))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	cmd, err := DecodeScheduleCommand(h.validate, body)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch cmd := cmd.(type) {
	case ToggleWorkingDayCommand:
		return h.toggleWorkingDay(ctx, c, cmd)
	case AddSlotCommand:
		return h.addSlot(ctx, c, cmd)
	case DeleteSlotCommand:
		return h.deleteSlot(ctx, c, cmd)
	}
	return fail(c, http.StatusBadRequest, "unknown action")
}

func (h *ScheduleHandler) toggleWorkingDay(ctx context.Context, c echo.Context, cmd ToggleWorkingDayCommand) error {
	err := h.Slots.SetWorkingDay(ctx, cmd.Date, *cmd.IsWorking)
	h.Metrics.ObserveMutation(string(cmd.Action()), err)
	if err != nil {
		h.Logger.Error("toggle working day", "date", cmd.Date, "is_working", *cmd.IsWorking, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to update working day")
	}
	h.Logger.Info("working day updated", "date", cmd.Date, "is_working", *cmd.IsWorking)
	return success(c, http.StatusOK, echo.Map{"date": cmd.Date, "is_working": *cmd.IsWorking})
}

func (h *ScheduleHandler) addSlot(ctx context.Context, c echo.Context, cmd AddSlotCommand) error {
	end, err := model.EndTime(cmd.StartTime, cmd.DurationMinutes)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	slot := &model.Slot{
		Date:            cmd.SlotDate,
		StartTime:       cmd.StartTime,
		EndTime:         end,
		DurationMinutes: cmd.DurationMinutes,
		MaxBookings:     cmd.MaxBookings,
	}
	err = h.Slots.Create(ctx, slot)
	h.Metrics.ObserveMutation(string(cmd.Action()), err)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, "slot overlaps an existing slot")
	case err != nil:
		h.Logger.Error("add slot", "date", cmd.SlotDate, "start_time", cmd.StartTime, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to add slot")
	}
	h.Logger.Info("slot added", "slot_id", slot.ID, "date", slot.Date, "start_time", slot.StartTime)
	return success(c, http.StatusCreated, slot)
}

func (h *ScheduleHandler) deleteSlot(ctx context.Context, c echo.Context, cmd DeleteSlotCommand) error {
	id, err := cmd.SlotID.Uint64()
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid slot_id")
	}
	err = h.Slots.Delete(ctx, id)
	h.Metrics.ObserveMutation(string(cmd.Action()), err)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, "slot not found")
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, "slot has bookings; switch the day off instead")
	case err != nil:
		h.Logger.Error("delete slot", "slot_id", id, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to delete slot")
	}
	h.Logger.Info("slot deleted", "slot_id", id)
	return success(c, http.StatusOK, echo.Map{"slot_id": cmd.SlotID})
}

type checkUpdatesReq struct {
	LastSync  *time.Time `json:"lastSync"`
	WeekStart string     `json:"weekStart"`
}

// CheckUpdates handles POST /api/admin/schedule/check-updates.  A
// client that has never synced always has updates.
func (h *ScheduleHandler) CheckUpdates(c echo.Context) error {
	var req checkUpdatesReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	start, err := h.weekStartParam(req.WeekStart)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid weekStart")
	}
	if req.LastSync == nil || req.LastSync.IsZero() {
		return c.JSON(http.StatusOK, echo.Map{"hasUpdates": true})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	latest, err := h.Slots.LatestChange(ctx,
		start.Format(model.DateLayout), start.AddDate(0, 0, 6).Format(model.DateLayout))
	if err != nil {
		h.Logger.Warn("check updates", "error", err)
		return fail(c, http.StatusInternalServerError, "failed to check updates")
	}
	return c.JSON(http.StatusOK, echo.Map{"hasUpdates": latest.After(*req.LastSync)})
}

// PublicSlots handles GET /api/slots?date=YYYY-MM-DD and lists the
// slots a customer can still book.
func (h *ScheduleHandler) PublicSlots(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if _, err := model.ParseDate(date); err != nil {
		return fail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	slots, err := h.Slots.ListAvailableByDate(ctx, date)
	if err != nil {
		h.Logger.Error("load available slots", "date", date, "error", err)
		return fail(c, http.StatusInternalServerError, "failed to load slots")
	}
	return success(c, http.StatusOK, slots)
}
