package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/detailing-booking/internal/model"
)

// ScheduleAction discriminates the commands accepted by
// POST /api/admin/schedule.
type ScheduleAction string

const (
	ActionToggleWorkingDay ScheduleAction = "toggle_working_day"
	ActionAddSlot          ScheduleAction = "add_slot"
	ActionDeleteSlot       ScheduleAction = "delete_slot"
)

// ScheduleCommand is one of ToggleWorkingDayCommand, AddSlotCommand or
// DeleteSlotCommand.
type ScheduleCommand interface {
	Action() ScheduleAction
}

type ToggleWorkingDayCommand struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	IsWorking *bool  `json:"is_working" validate:"required"`
}

type AddSlotCommand struct {
	SlotDate        string `json:"slot_date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0,lte=720"`
	MaxBookings     int    `json:"max_bookings" validate:"omitempty,gte=1,lte=50"`
}

type DeleteSlotCommand struct {
	SlotID model.FlexID `json:"slot_id" validate:"required"`
}

func (ToggleWorkingDayCommand) Action() ScheduleAction { return ActionToggleWorkingDay }
func (AddSlotCommand) Action() ScheduleAction          { return ActionAddSlot }
func (DeleteSlotCommand) Action() ScheduleAction       { return ActionDeleteSlot }

// errUnknownAction is returned for a missing or unsupported action.
var errUnknownAction = errors.New("unknown action")

// DecodeScheduleCommand reads the action discriminator and decodes the
// body into the matching command, then validates it.
func DecodeScheduleCommand(v *validator.Validate, body []byte) (ScheduleCommand, error) {
	var env struct {
		Action ScheduleAction `json:"action"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid body: %w", err)
	}

	var cmd ScheduleCommand
	switch env.Action {
	case ActionToggleWorkingDay:
		var c ToggleWorkingDayCommand
		if err := json.Unmarshal(body, &c); err != nil {
			return nil, fmt.Errorf("invalid body: %w", err)
		}
		cmd = c
	case ActionAddSlot:
		var c AddSlotCommand
		if err := json.Unmarshal(body, &c); err != nil {
			return nil, fmt.Errorf("invalid body: %w", err)
		}
		c.StartTime = model.NormalizeTime(c.StartTime)
		if c.MaxBookings == 0 {
			c.MaxBookings = 1
		}
		cmd = c
	case ActionDeleteSlot:
		var c DeleteSlotCommand
		if err := json.Unmarshal(body, &c); err != nil {
			return nil, fmt.Errorf("invalid body: %w", err)
		}
		cmd = c
	default:
		return nil, fmt.Errorf("%w %q", errUnknownAction, env.Action)
	}

	if err := v.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return nil, fmt.Errorf("invalid %s: %s", env.Action, strings.Join(fields, ", "))
		}
		return nil, err
	}
	return cmd, nil
}
