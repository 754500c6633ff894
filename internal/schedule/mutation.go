package schedule

import (
	"github.com/iliyamo/detailing-booking/internal/model"
)

// mutation is an optimistic change to State.  apply records whatever
// rollback needs to put the state back exactly as it was.  settle runs
// after the server accepted the change and the refresh finished.
type mutation interface {
	apply(s *State)
	rollback(s *State)
	settle(s *State)
}

// dayImage is the pre-image of one week overview entry.
type dayImage struct {
	day   model.DayOverview
	found bool
}

func captureDay(s *State, date string) dayImage {
	d, ok := s.Day(date)
	return dayImage{day: d, found: ok}
}

func (img dayImage) restore(s *State) {
	if !img.found {
		return
	}
	if i := s.dayIndex(img.day.Date); i >= 0 {
		s.WeekOverview[i] = img.day
	}
}

// toggleDayMutation flips a day's working flag.  Switching a day off
// shows it with no slots until the server's figures come back.
type toggleDayMutation struct {
	date    string
	working bool
	pre     dayImage
}

func (m *toggleDayMutation) apply(s *State) {
	m.pre = captureDay(s, m.date)
	i := s.dayIndex(m.date)
	if i < 0 {
		return
	}
	d := &s.WeekOverview[i]
	d.IsWorkingDay = m.working
	if !m.working {
		d.TotalSlots, d.AvailableSlots, d.BookedSlots = 0, 0, 0
	}
}

func (m *toggleDayMutation) rollback(s *State) { m.pre.restore(s) }
func (m *toggleDayMutation) settle(*State)     {}

// addSlotMutation shows a slot under a temporary ID until the server
// has assigned the real one.
type addSlotMutation struct {
	slot     model.Slot
	inserted bool
	pre      dayImage
}

func (m *addSlotMutation) apply(s *State) {
	m.pre = captureDay(s, m.slot.Date)
	if s.SelectedDate == m.slot.Date {
		s.DaySlots = model.InsertSorted(s.DaySlots, m.slot)
		m.inserted = true
	}
	if i := s.dayIndex(m.slot.Date); i >= 0 {
		s.WeekOverview[i].TotalSlots++
		s.WeekOverview[i].AvailableSlots++
	}
}

func (m *addSlotMutation) rollback(s *State) {
	m.removeTemp(s)
	m.pre.restore(s)
}

// settle drops the temporary row if a refresh has not already
// replaced it.
func (m *addSlotMutation) settle(s *State) { m.removeTemp(s) }

func (m *addSlotMutation) removeTemp(s *State) {
	if !m.inserted {
		return
	}
	if i := s.slotIndex(m.slot.ID); i >= 0 {
		s.DaySlots = append(s.DaySlots[:i], s.DaySlots[i+1:]...)
	}
	m.inserted = false
}

// deleteSlotMutation hides a slot and keeps the removed row so it can
// be put back in place.
type deleteSlotMutation struct {
	id      string
	removed model.Slot
	found   bool
	pre     dayImage
}

func (m *deleteSlotMutation) apply(s *State) {
	i := s.slotIndex(m.id)
	if i < 0 {
		return
	}
	m.removed, m.found = s.DaySlots[i], true
	s.DaySlots = append(s.DaySlots[:i], s.DaySlots[i+1:]...)

	m.pre = captureDay(s, m.removed.Date)
	if j := s.dayIndex(m.removed.Date); j >= 0 {
		d := &s.WeekOverview[j]
		switch {
		case m.removed.CurrentBookings > 0:
			d.BookedSlots--
		case !m.removed.IsBlocked:
			d.AvailableSlots--
		default:
			return
		}
		d.TotalSlots--
	}
}

func (m *deleteSlotMutation) rollback(s *State) {
	if !m.found {
		return
	}
	if s.slotIndex(m.id) < 0 && s.SelectedDate == m.removed.Date {
		s.DaySlots = model.InsertSorted(s.DaySlots, m.removed)
	}
	m.pre.restore(s)
}

func (m *deleteSlotMutation) settle(*State) {}
