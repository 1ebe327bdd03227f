package timeline

import (
	"errors"
	"sort"
	"time"
)

var ErrEventNotFound = errors.New("event not found")
var ErrOverlap = errors.New("slot overlaps an existing event")
var ErrInvalidInterval = errors.New("event start must be before its end")

// Store owns the ordered set of events for the currently open day. All
// writes go through the validated operations below; a successful mutation
// marks the store dirty until the next save or hydration.
type Store struct {
	events []Event // ordered by Start
	dirty  bool
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Len() int {
	return len(s.events)
}

func (s *Store) Dirty() bool {
	return s.dirty
}

// ClearDirty marks the store as synchronized with the backend. Callers must
// only do this after a save that captured the current contents.
func (s *Store) ClearDirty() {
	s.dirty = false
}

// Events returns a copy of the schedule ordered by start time.
func (s *Store) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Snapshot is the read used by the sync gateway when serializing a save.
func (s *Store) Snapshot() []Event {
	return s.Events()
}

func (s *Store) Get(id string) (Event, bool) {
	for _, ev := range s.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return Event{}, false
}

// ReplaceAll hydrates the store wholesale from the backend and clears the
// dirty flag. The incoming set must already satisfy the schedule invariants;
// a violation means the backend data is corrupt and hydration is refused.
func (s *Store) ReplaceAll(events []Event) error {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	for i, ev := range sorted {
		if !ev.Start.Before(ev.End) {
			return ErrInvalidInterval
		}
		if i > 0 && sorted[i-1].End.After(ev.Start) {
			return ErrOverlap
		}
	}
	s.events = sorted
	s.dirty = false
	return nil
}

// Add inserts a fully resolved event. The slot must already be free; Add
// re-checks the invariants and refuses rather than repairs on violation.
func (s *Store) Add(ev Event) error {
	if !ev.Start.Before(ev.End) {
		return ErrInvalidInterval
	}
	if !s.freeAt(ev.Start, ev.End, "") {
		return ErrOverlap
	}
	s.insert(ev)
	s.dirty = true
	return nil
}

// AddBatch inserts every event or none. The batch is checked against the
// existing schedule and against itself before any insertion.
func (s *Store) AddBatch(events []Event) error {
	batch := make([]Event, len(events))
	copy(batch, events)
	sort.Slice(batch, func(i, j int) bool { return batch[i].Start.Before(batch[j].Start) })
	for i, ev := range batch {
		if !ev.Start.Before(ev.End) {
			return ErrInvalidInterval
		}
		if i > 0 && batch[i-1].End.After(ev.Start) {
			return ErrOverlap
		}
		if !s.freeAt(ev.Start, ev.End, "") {
			return ErrOverlap
		}
	}
	for _, ev := range batch {
		s.insert(ev)
	}
	if len(batch) > 0 {
		s.dirty = true
	}
	return nil
}

// SetStart moves an event to a new start, preserving its duration. The
// event itself is excluded from the overlap set; on conflict the event
// stays where it was.
func (s *Store) SetStart(id string, newStart time.Time) error {
	ev, ok := s.Get(id)
	if !ok {
		return ErrEventNotFound
	}
	newEnd := newStart.Add(ev.Duration())
	if !s.freeAt(newStart, newEnd, id) {
		return ErrOverlap
	}
	s.remove(id)
	ev.Start = newStart
	ev.End = newEnd
	s.insert(ev)
	s.dirty = true
	return nil
}

// SetDuration resizes an event in place, keeping its start.
func (s *Store) SetDuration(id string, d time.Duration) error {
	ev, ok := s.Get(id)
	if !ok {
		return ErrEventNotFound
	}
	if d <= 0 {
		return ErrInvalidInterval
	}
	newEnd := ev.Start.Add(d)
	if !s.freeAt(ev.Start, newEnd, id) {
		return ErrOverlap
	}
	s.remove(id)
	ev.End = newEnd
	s.insert(ev)
	s.dirty = true
	return nil
}

// Delete removes an event unconditionally. It reports whether the event
// existed.
func (s *Store) Delete(id string) bool {
	if _, ok := s.Get(id); !ok {
		return false
	}
	s.remove(id)
	s.dirty = true
	return true
}

// DeleteDay removes every event whose start falls on the calendar day of
// ref and returns how many were removed.
func (s *Store) DeleteDay(ref time.Time) int {
	kept := s.events[:0]
	removed := 0
	for _, ev := range s.events {
		if ev.onDay(ref) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// OnDay returns the events whose start falls on the calendar day of ref,
// ordered by start time.
func (s *Store) OnDay(ref time.Time) []Event {
	var out []Event
	for _, ev := range s.events {
		if ev.onDay(ref) {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Store) freeAt(start, end time.Time, excludeID string) bool {
	for _, ev := range s.events {
		if excludeID != "" && ev.ID == excludeID {
			continue
		}
		if ev.overlaps(start, end) {
			return false
		}
	}
	return true
}

func (s *Store) insert(ev Event) {
	i := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Start.After(ev.Start)
	})
	s.events = append(s.events, Event{})
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = ev
}

func (s *Store) remove(id string) {
	for i, ev := range s.events {
		if ev.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return
		}
	}
}
