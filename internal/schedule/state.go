package schedule

import (
	"time"

	"github.com/iliyamo/detailing-booking/internal/model"
)

// Operation keys for the loads.  Mutation keys are built by the
// key helpers below.
const (
	KeyLoadWeekOverview = "loadWeekOverview"
	KeyLoadDaySlots     = "loadDaySlots"
)

func toggleKey(date string) string   { return "toggle_" + date }
func addSlotKey(tempID string) string { return "add_slot_" + tempID }
func deleteSlotKey(id string) string  { return "delete_slot_" + id }

// State is what the store holds.  Callers only ever see copies.
type State struct {
	WeekOverview     []model.DayOverview
	DaySlots         []model.Slot
	SelectedDate     string
	CurrentWeekStart string
	LastSync         time.Time
	Loading          map[string]bool
	Errors           map[string]string
}

func newState() State {
	return State{
		WeekOverview: []model.DayOverview{},
		DaySlots:     []model.Slot{},
		Loading:      map[string]bool{},
		Errors:       map[string]string{},
	}
}

func (s State) clone() State {
	out := s
	out.WeekOverview = append([]model.DayOverview(nil), s.WeekOverview...)
	out.DaySlots = append([]model.Slot(nil), s.DaySlots...)
	out.Loading = make(map[string]bool, len(s.Loading))
	for k, v := range s.Loading {
		out.Loading[k] = v
	}
	out.Errors = make(map[string]string, len(s.Errors))
	for k, v := range s.Errors {
		out.Errors[k] = v
	}
	return out
}

// Day returns the overview entry for date.
func (s State) Day(date string) (model.DayOverview, bool) {
	if i := s.dayIndex(date); i >= 0 {
		return s.WeekOverview[i], true
	}
	return model.DayOverview{}, false
}

func (s *State) dayIndex(date string) int {
	for i, d := range s.WeekOverview {
		if d.Date == date {
			return i
		}
	}
	return -1
}

func (s *State) slotIndex(id string) int {
	for i, sl := range s.DaySlots {
		if sl.ID == id {
			return i
		}
	}
	return -1
}

// PersistedState is the navigation state kept across restarts.
type PersistedState struct {
	SelectedDate     string    `json:"selectedDate"`
	CurrentWeekStart string    `json:"currentWeekStart"`
	LastSync         time.Time `json:"lastSync"`
	Timestamp        time.Time `json:"timestamp"`
}
