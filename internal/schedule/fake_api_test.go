package schedule

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// fakeAPI is an in-memory API with per-call hooks.
type fakeAPI struct {
	mu       sync.Mutex
	week     []model.DayOverview
	slots    map[string][]model.Slot
	weekErrs []error
	dayErr   error
	updates  bool
	checkErr error

	weekFn func(weekStart string) ([]model.DayOverview, error)
	toggle func(ctx context.Context, date string, working bool) error
	add    func(ctx context.Context, in SlotInput) error
	del    func(ctx context.Context, id string) error

	weekCalls  int
	dayCalls   int
	checkCalls int
}

func (f *fakeAPI) WeekOverview(_ context.Context, weekStart string) ([]model.DayOverview, error) {
	f.mu.Lock()
	f.weekCalls++
	fn := f.weekFn
	f.mu.Unlock()
	if fn != nil {
		return fn(weekStart)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.weekErrs) > 0 {
		err := f.weekErrs[0]
		f.weekErrs = f.weekErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return append([]model.DayOverview(nil), f.week...), nil
}

func (f *fakeAPI) DaySlots(_ context.Context, date string) ([]model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dayCalls++
	if f.dayErr != nil {
		return nil, f.dayErr
	}
	return append([]model.Slot(nil), f.slots[date]...), nil
}

func (f *fakeAPI) ToggleWorkingDay(ctx context.Context, date string, working bool) error {
	if f.toggle != nil {
		return f.toggle(ctx, date, working)
	}
	return nil
}

func (f *fakeAPI) AddSlot(ctx context.Context, in SlotInput) error {
	if f.add != nil {
		return f.add(ctx, in)
	}
	return nil
}

func (f *fakeAPI) DeleteSlot(ctx context.Context, id string) error {
	if f.del != nil {
		return f.del(ctx, id)
	}
	return nil
}

func (f *fakeAPI) CheckUpdates(context.Context, time.Time, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkCalls++
	return f.updates, f.checkErr
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *fakeAPI) calls() (week, day, check int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.weekCalls, f.dayCalls, f.checkCalls
}

const (
	testWeek = "2026-10-19"
	testDay  = "2026-10-21"
)

func testSlots() []model.Slot {
	return []model.Slot{
		{ID: "11", Date: testDay, StartTime: "09:00", EndTime: "11:00", DurationMinutes: 120, MaxBookings: 1, IsAvailable: true},
		{ID: "12", Date: testDay, StartTime: "12:00", EndTime: "14:00", DurationMinutes: 120, MaxBookings: 1, CurrentBookings: 1, IsBlocked: true, BlockReason: model.BlockReasonFull},
		{ID: "13", Date: testDay, StartTime: "15:00", EndTime: "17:00", DurationMinutes: 120, MaxBookings: 2, IsAvailable: true},
	}
}

func testWeekOverview() []model.DayOverview {
	start, _ := model.ParseDate(testWeek)
	out := make([]model.DayOverview, 0, 7)
	for _, d := range model.WeekDates(start) {
		var slots []model.Slot
		if d.Format(model.DateLayout) == testDay {
			slots = testSlots()
		}
		out = append(out, model.SummarizeDay(d, d.Weekday() != time.Sunday, slots))
	}
	return out
}

// emptyWeek is a working week with no slots.
func emptyWeek(weekStart string) []model.DayOverview {
	start, _ := model.ParseDate(weekStart)
	out := make([]model.DayOverview, 0, 7)
	for _, d := range model.WeekDates(start) {
		out = append(out, model.SummarizeDay(d, true, nil))
	}
	return out
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		week:  testWeekOverview(),
		slots: map[string][]model.Slot{testDay: testSlots()},
	}
}

func quietLogger() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}
