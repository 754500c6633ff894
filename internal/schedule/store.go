package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// Store holds the admin's view of the schedule.  Mutations follow one
// sequence: apply optimistically, call the API, then either refresh
// the affected views or roll back and record the error under the
// operation key.  The loading flag for a key is cleared only after the
// refresh, so a caller that sees IsLoading(key) == false sees either
// server state or the rolled-back state.
//
// The store does not serialize calls for the same key; callers gate on
// IsLoading.
type Store struct {
	api    API
	logger *logging.Logger
	now    func() time.Time
	newID  func() string

	mu        sync.Mutex
	state     State
	weekGen   uint64
	pending   map[string][]mutation
	listeners map[int]func(State)
	nextSub   int
}

// NewStore returns an empty store backed by api.
func NewStore(api API, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		api:       api,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
		state:     newState(),
		pending:   map[string][]mutation{},
		listeners: map[int]func(State){},
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a copy of the state after every
// change.  The returned func unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// update runs fn under the lock and then notifies listeners.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	fns := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l)
	}
	s.mu.Unlock()
	for _, l := range fns {
		l(snap)
	}
}

// IsLoading reports whether the operation under key is in flight.
func (s *Store) IsLoading(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Loading[key]
}

// AnyLoading reports whether any operation is in flight.
func (s *Store) AnyLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.state.Loading {
		if v {
			return true
		}
	}
	return false
}

// Errors lists every recorded operation error, ordered by key.
// Identical messages under different keys are all kept.
func (s *Store) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.state.Errors))
	for k, v := range s.state.Errors {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.state.Errors[k])
	}
	return out
}

// ClearError drops the error recorded under key.
func (s *Store) ClearError(key string) {
	s.update(func(st *State) { delete(st.Errors, key) })
}

// Restore seeds navigation state, typically from a PersistedState.
func (s *Store) Restore(p PersistedState) {
	s.update(func(st *State) {
		st.SelectedDate = p.SelectedDate
		st.CurrentWeekStart = p.CurrentWeekStart
		st.LastSync = p.LastSync
	})
}

func (s *Store) startLoad(key string) {
	s.update(func(st *State) {
		st.Loading[key] = true
		delete(st.Errors, key)
	})
}

func (s *Store) failLoad(key string, err error) {
	s.update(func(st *State) {
		st.Loading[key] = false
		st.Errors[key] = err.Error()
	})
}

// LoadWeekOverview fetches the week starting at weekStart, or the
// current week when empty.  On failure the previous overview is kept.
// Only the most recently started load is applied; an older response
// that arrives late is dropped.
func (s *Store) LoadWeekOverview(ctx context.Context, weekStart string) error {
	if weekStart == "" {
		weekStart = s.Snapshot().CurrentWeekStart
	}
	if weekStart == "" {
		weekStart = model.WeekStart(s.now()).Format(model.DateLayout)
	}
	var gen uint64
	s.update(func(st *State) {
		s.weekGen++
		gen = s.weekGen
		st.Loading[KeyLoadWeekOverview] = true
		delete(st.Errors, KeyLoadWeekOverview)
	})
	days, err := s.api.WeekOverview(ctx, weekStart)
	if err != nil {
		s.logger.Warn("load week overview failed", "week_start", weekStart, "error", err)
		s.update(func(st *State) {
			if gen != s.weekGen {
				return
			}
			st.Loading[KeyLoadWeekOverview] = false
			st.Errors[KeyLoadWeekOverview] = err.Error()
		})
		return err
	}
	s.update(func(st *State) {
		if gen != s.weekGen {
			s.logger.Debug("dropping superseded week overview", "week_start", weekStart)
			return
		}
		st.WeekOverview = days
		st.CurrentWeekStart = weekStart
		st.LastSync = s.now().UTC()
		st.Loading[KeyLoadWeekOverview] = false
	})
	return nil
}

// LoadDaySlots fetches the slots for date.  A result for a date that
// is no longer selected is dropped.
func (s *Store) LoadDaySlots(ctx context.Context, date string) error {
	s.startLoad(KeyLoadDaySlots)
	slots, err := s.api.DaySlots(ctx, date)
	if err != nil {
		s.logger.Warn("load day slots failed", "date", date, "error", err)
		s.failLoad(KeyLoadDaySlots, err)
		return err
	}
	model.SortSlots(slots)
	s.update(func(st *State) {
		if st.SelectedDate == "" || st.SelectedDate == date {
			st.DaySlots = slots
			st.LastSync = s.now().UTC()
		}
		st.Loading[KeyLoadDaySlots] = false
	})
	return nil
}

// SelectDate makes date the selected day and loads its slots.
func (s *Store) SelectDate(ctx context.Context, date string) error {
	if _, err := model.ParseDate(date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	s.update(func(st *State) {
		if st.SelectedDate != date {
			st.SelectedDate = date
			st.DaySlots = []model.Slot{}
		}
	})
	return s.LoadDaySlots(ctx, date)
}

// ClearSelection deselects the current day.
func (s *Store) ClearSelection() {
	s.update(func(st *State) {
		st.SelectedDate = ""
		st.DaySlots = []model.Slot{}
	})
}

// RefreshData reloads the week overview and, if a day is selected, its
// slots.  Both loads run concurrently and every failure is returned.
func (s *Store) RefreshData(ctx context.Context) error {
	selected := s.Snapshot().SelectedDate
	var (
		g       errgroup.Group
		weekErr error
		dayErr  error
	)
	g.Go(func() error {
		weekErr = s.LoadWeekOverview(ctx, "")
		return nil
	})
	if selected != "" {
		g.Go(func() error {
			dayErr = s.LoadDaySlots(ctx, selected)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(weekErr, dayErr)
}

// refreshAfter reloads the views a mutation on date can have changed:
// always the week, the day only when it is the selected one.  Refresh
// failures are recorded under the load keys and not returned.
func (s *Store) refreshAfter(ctx context.Context, date string) {
	selected := s.Snapshot().SelectedDate
	var g errgroup.Group
	g.Go(func() error {
		_ = s.LoadWeekOverview(ctx, "")
		return nil
	})
	if selected != "" && (date == "" || date == selected) {
		g.Go(func() error {
			_ = s.LoadDaySlots(ctx, selected)
			return nil
		})
	}
	_ = g.Wait()
}

// finish retires m from the mutation table.  The key stays loading
// while another mutation under it is still in flight.  s.mu is held.
func (s *Store) finish(st *State, key string, m mutation) {
	inFlight := s.pending[key][:0]
	for _, p := range s.pending[key] {
		if p != m {
			inFlight = append(inFlight, p)
		}
	}
	if len(inFlight) == 0 {
		delete(s.pending, key)
	} else {
		s.pending[key] = inFlight
	}
	st.Loading[key] = len(inFlight) > 0
}

// run executes one mutation under key.
func (s *Store) run(ctx context.Context, key, date string, m mutation, call func(context.Context) error) error {
	s.update(func(st *State) {
		m.apply(st)
		s.pending[key] = append(s.pending[key], m)
		st.Loading[key] = true
		delete(st.Errors, key)
	})

	if err := call(ctx); err != nil {
		s.logger.Warn("schedule mutation failed", "key", key, "error", err)
		s.update(func(st *State) {
			m.rollback(st)
			s.finish(st, key, m)
			st.Errors[key] = err.Error()
		})
		return err
	}

	s.refreshAfter(ctx, date)
	s.update(func(st *State) {
		m.settle(st)
		s.finish(st, key, m)
	})
	return nil
}

// ToggleWorkingDay switches date on or off.
func (s *Store) ToggleWorkingDay(ctx context.Context, date string, working bool) error {
	m := &toggleDayMutation{date: date, working: working}
	return s.run(ctx, toggleKey(date), date, m, func(ctx context.Context) error {
		return s.api.ToggleWorkingDay(ctx, date, working)
	})
}

// AddSlot adds a slot and returns the temporary ID it was shown under
// until the server's copy replaced it.
func (s *Store) AddSlot(ctx context.Context, in SlotInput) (string, error) {
	tempID := "temp-" + s.newID()
	key := addSlotKey(tempID)

	in.StartTime = model.NormalizeTime(in.StartTime)
	if in.MaxBookings <= 0 {
		in.MaxBookings = 1
	}
	end, err := model.EndTime(in.StartTime, in.DurationMinutes)
	if err != nil {
		s.update(func(st *State) { st.Errors[key] = err.Error() })
		return tempID, err
	}
	m := &addSlotMutation{slot: model.Slot{
		ID:              tempID,
		Date:            in.Date,
		StartTime:       in.StartTime,
		EndTime:         end,
		DurationMinutes: in.DurationMinutes,
		MaxBookings:     in.MaxBookings,
	}.WithDerived()}
	return tempID, s.run(ctx, key, in.Date, m, func(ctx context.Context) error {
		return s.api.AddSlot(ctx, in)
	})
}

// DeleteSlot removes a slot.
func (s *Store) DeleteSlot(ctx context.Context, slotID string) error {
	m := &deleteSlotMutation{id: slotID}
	date := ""
	if st := s.Snapshot(); st.slotIndex(slotID) >= 0 {
		date = st.DaySlots[st.slotIndex(slotID)].Date
	}
	return s.run(ctx, deleteSlotKey(slotID), date, m, func(ctx context.Context) error {
		return s.api.DeleteSlot(ctx, slotID)
	})
}
