package scheduler

import (
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/playout-hub/scheduler/internal/timeline"
)

// ExportICS serializes the open day's schedule as an iCalendar document,
// one VEVENT per placement.
func (s *Service) ExportICS() (string, error) {
	s.mu.Lock()
	if s.day.IsZero() {
		s.mu.Unlock()
		return "", ErrNoOpenDay
	}
	day := s.day
	events := s.store.OnDay(day)
	s.mu.Unlock()

	return buildDayCalendar(day, events, s.Now()), nil
}

func buildDayCalendar(day time.Time, events []timeline.Event, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//playout-hub//scheduler//EN")
	cal.SetName("Playout " + day.Format(DayKey))

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.DisplayLabel())
		ve.SetDescription(ev.SourceKey)
	}
	return cal.Serialize()
}
