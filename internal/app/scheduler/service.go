package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nuid"

	"github.com/playout-hub/scheduler/internal/contracts"
	"github.com/playout-hub/scheduler/internal/recurrence"
	"github.com/playout-hub/scheduler/internal/timeline"
)

var ErrNoOpenDay = errors.New("no day is open")
var ErrUnsavedChanges = errors.New("unsaved changes; save or discard first")
var ErrResizeDisabled = errors.New("resizing is disabled on the timeline")
var ErrOutsideOpenDay = errors.New("placement falls outside the open day")

// Repository is the sync gateway: it hydrates a day's events on open and
// persists a snapshot on save. Implementations must be all-or-nothing on
// save.
type Repository interface {
	LoadDay(ctx context.Context, day time.Time) ([]contracts.StoredEvent, error)
	SaveDay(ctx context.Context, day time.Time, events []contracts.StoredEvent) error
}

// PublishFunc notifies downstream consumers (the stream runner) that a day's
// schedule was saved. It may be nil.
type PublishFunc func(subject string, payload []byte) error

// Service owns the open day's event store and is the only writer to it.
// Every mutation is validated before it touches the store and either fully
// applies or leaves the store unchanged.
type Service struct {
	Repo              Repository
	Publish           PublishFunc
	Now               func() time.Time
	NewID             func() string
	NewColor          func() string
	Policy            timeline.Policy
	WindowSpanMinutes int

	mu    sync.Mutex
	store *timeline.Store
	day   time.Time // midnight of the open day; zero when none is open
	seq   uint64    // bumped on every committed mutation
}

func NewService(repo Repository) *Service {
	return &Service{
		Repo:              repo,
		Now:               func() time.Time { return time.Now().UTC() },
		NewID:             nuid.Next,
		NewColor:          timeline.RandomColor,
		Policy:            timeline.DefaultPolicy(),
		WindowSpanMinutes: 24 * 60,
		store:             timeline.NewStore(),
	}
}

// DayKey is the wire format for calendar days.
const DayKey = "2006-01-02"

// OpenDay hydrates the store with the backend's events for day, replacing
// the current contents wholesale. While unsaved mutations exist the switch
// is refused unless discard is set.
func (s *Service) OpenDay(ctx context.Context, day time.Time, discard bool) ([]timeline.Event, error) {
	s.mu.Lock()
	if !s.day.IsZero() && s.store.Dirty() && !discard {
		s.mu.Unlock()
		return nil, ErrUnsavedChanges
	}
	s.mu.Unlock()

	stored, err := s.Repo.LoadDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load day %s: %w", day.Format(DayKey), err)
	}
	events := make([]timeline.Event, 0, len(stored))
	for _, rec := range stored {
		events = append(events, storedToEvent(rec))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.ReplaceAll(events); err != nil {
		return nil, fmt.Errorf("hydrate day %s: %w", day.Format(DayKey), err)
	}
	y, m, d := day.Date()
	s.day = time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return s.store.Events(), nil
}

// Day returns the open day, if any.
func (s *Service) Day() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day, !s.day.IsZero()
}

func (s *Service) Events() ([]timeline.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day.IsZero() {
		return nil, ErrNoOpenDay
	}
	return s.store.Events(), nil
}

// IsDirty reports whether unsaved mutations exist; callers use it to gate
// day navigation.
func (s *Service) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Dirty()
}

// PlaceDrop handles a drop gesture: the spatial position is mapped onto the
// open day's time axis, then placed like any other candidate.
func (s *Service) PlaceDrop(sourceKey string, duration time.Duration, offset, extent float64) (timeline.Event, error) {
	s.mu.Lock()
	day := s.day
	span := s.WindowSpanMinutes
	s.mu.Unlock()
	if day.IsZero() {
		return timeline.Event{}, ErrNoOpenDay
	}
	candidate, err := timeline.MapPositionToTime(offset, extent, day, span)
	if err != nil {
		return timeline.Event{}, err
	}
	return s.PlaceAt(sourceKey, candidate, duration)
}

// PlaceAt resolves a candidate start against the schedule and commits the
// resulting event. Resolution may snap behind a nearby event or probe
// forward; failures leave the store untouched.
func (s *Service) PlaceAt(sourceKey string, candidate time.Time, duration time.Duration) (timeline.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day.IsZero() {
		return timeline.Event{}, ErrNoOpenDay
	}

	start, err := timeline.ResolveSlot(candidate, duration, s.store.Events(), s.Now(), s.Policy)
	if err != nil {
		return timeline.Event{}, err
	}
	if !s.withinOpenDay(start, start.Add(duration)) {
		return timeline.Event{}, ErrOutsideOpenDay
	}
	ev := timeline.Event{
		ID:        s.NewID(),
		SourceKey: sourceKey,
		Start:     start,
		End:       start.Add(duration),
		Color:     s.NewColor(),
	}
	if err := s.store.Add(ev); err != nil {
		return timeline.Event{}, err
	}
	s.seq++
	return ev, nil
}

// MoveEvent relocates an existing event to an explicit new start, keeping
// its duration. Unlike placement there is no snapping or probing: a
// conflicting target refuses the move and the event stays put.
func (s *Service) MoveEvent(id string, newStart time.Time) (timeline.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day.IsZero() {
		return timeline.Event{}, ErrNoOpenDay
	}
	current, ok := s.store.Get(id)
	if !ok {
		return timeline.Event{}, timeline.ErrEventNotFound
	}
	if !newStart.After(s.Now()) {
		return timeline.Event{}, timeline.ErrInThePast
	}
	if !s.withinOpenDay(newStart, newStart.Add(current.Duration())) {
		return timeline.Event{}, ErrOutsideOpenDay
	}
	if err := s.store.SetStart(id, newStart); err != nil {
		return timeline.Event{}, err
	}
	s.seq++
	ev, _ := s.store.Get(id)
	return ev, nil
}

// RescheduleEvent is the form-driven variant of MoveEvent; the validation is
// identical.
func (s *Service) RescheduleEvent(id string, newStart time.Time) (timeline.Event, error) {
	return s.MoveEvent(id, newStart)
}

// ResizeEvent changes an event's duration. It is refused unless the policy
// enables it, since durations normally follow the source media.
func (s *Service) ResizeEvent(id string, duration time.Duration) (timeline.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day.IsZero() {
		return timeline.Event{}, ErrNoOpenDay
	}
	if !s.Policy.AllowResize {
		return timeline.Event{}, ErrResizeDisabled
	}
	current, ok := s.store.Get(id)
	if !ok {
		return timeline.Event{}, timeline.ErrEventNotFound
	}
	if duration > 0 && !s.withinOpenDay(current.Start, current.Start.Add(duration)) {
		return timeline.Event{}, ErrOutsideOpenDay
	}
	if err := s.store.SetDuration(id, duration); err != nil {
		return timeline.Event{}, err
	}
	s.seq++
	ev, _ := s.store.Get(id)
	return ev, nil
}

func (s *Service) DeleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day.IsZero() {
		return ErrNoOpenDay
	}
	if !s.store.Delete(id) {
		return timeline.ErrEventNotFound
	}
	s.seq++
	return nil
}

// DeleteAllForDay clears the open day's schedule and returns how many
// events were removed. Confirmation is the caller's concern.
func (s *Service) DeleteAllForDay() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day.IsZero() {
		return 0, ErrNoOpenDay
	}
	removed := s.store.DeleteDay(s.day)
	if removed > 0 {
		s.seq++
	}
	return removed, nil
}

// Automate plans the items into the window and merges the whole batch, or
// nothing: a collision between any planned event and the existing schedule
// rejects the entire batch.
func (s *Service) Automate(items []timeline.PlanItem, windowStart, windowEnd time.Time) ([]timeline.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day.IsZero() {
		return nil, ErrNoOpenDay
	}
	if !s.onOpenDay(windowStart) {
		return nil, ErrOutsideOpenDay
	}

	planner := &timeline.Planner{
		Gap:      s.Policy.SlotGap,
		Now:      s.Now,
		NewID:    s.NewID,
		NewColor: s.NewColor,
	}
	batch, err := planner.Plan(items, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	// The window may legally extend past midnight, but no planned event may:
	// the store holds a single day and anything beyond it would be silently
	// dropped by the next save.
	for _, ev := range batch {
		if !s.withinOpenDay(ev.Start, ev.End) {
			return nil, ErrOutsideOpenDay
		}
	}
	if err := s.store.AddBatch(batch); err != nil {
		return nil, err
	}
	s.seq++
	return batch, nil
}

// AddRepeating expands a recurrence rule from the first start and commits
// every occurrence as one batch. Occurrences are placed at their exact
// expanded times; any conflict, past start, or occurrence leaving the open
// day rejects the whole batch.
func (s *Service) AddRepeating(sourceKey string, first time.Time, duration time.Duration, rule recurrence.Rule) ([]timeline.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day.IsZero() {
		return nil, ErrNoOpenDay
	}
	if duration <= 0 {
		return nil, timeline.ErrInvalidInterval
	}

	starts, err := recurrence.Expand(first, rule)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	color := s.NewColor()
	batch := make([]timeline.Event, 0, len(starts))
	for _, start := range starts {
		if !start.After(now) {
			return nil, timeline.ErrInThePast
		}
		if !s.withinOpenDay(start, start.Add(duration)) {
			return nil, ErrOutsideOpenDay
		}
		batch = append(batch, timeline.Event{
			ID:        s.NewID(),
			SourceKey: sourceKey,
			Start:     start,
			End:       start.Add(duration),
			Color:     color,
		})
	}
	if err := s.store.AddBatch(batch); err != nil {
		return nil, err
	}
	s.seq++
	return batch, nil
}

// Save persists a snapshot of the open day. The snapshot is taken under the
// lock, the write happens without it, and the dirty flag is cleared only if
// no mutation landed while the save was in flight; a failed save leaves the
// flag set so the caller can retry.
func (s *Service) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.day.IsZero() {
		s.mu.Unlock()
		return ErrNoOpenDay
	}
	day := s.day
	seqAtSnapshot := s.seq
	// Stray cross-day entries are filtered out before serializing.
	snapshot := s.store.OnDay(day)
	s.mu.Unlock()

	stored := make([]contracts.StoredEvent, 0, len(snapshot))
	for _, ev := range snapshot {
		stored = append(stored, eventToStored(ev))
	}
	if err := s.Repo.SaveDay(ctx, day, stored); err != nil {
		return fmt.Errorf("save day %s: %w", day.Format(DayKey), err)
	}

	s.mu.Lock()
	if s.seq == seqAtSnapshot {
		s.store.ClearDirty()
	}
	s.mu.Unlock()

	s.notifySaved(day, len(stored))
	return nil
}

// notifySaved is best effort: a publish failure never fails the save.
func (s *Service) notifySaved(day time.Time, count int) {
	if s.Publish == nil {
		return
	}
	msg := contracts.SchedulePublished{
		Day:        day.Format(DayKey),
		EventCount: count,
		SavedAt:    s.Now(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = s.Publish(SavedSubject(day), payload)
}

// SavedSubject is the stream subject announcing a saved day schedule.
func SavedSubject(day time.Time) string {
	return "playout.schedule.saved." + day.Format(DayKey)
}

// onOpenDay must be called with the lock held.
func (s *Service) onOpenDay(t time.Time) bool {
	y1, m1, d1 := t.In(s.day.Location()).Date()
	y2, m2, d2 := s.day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// withinOpenDay reports whether [start, end) lies entirely on the open day.
// The interval is half-open, so an end of exactly the next midnight is fine.
// Must be called with the lock held.
func (s *Service) withinOpenDay(start, end time.Time) bool {
	return s.onOpenDay(start) && !end.After(s.day.AddDate(0, 0, 1))
}

func storedToEvent(rec contracts.StoredEvent) timeline.Event {
	return timeline.Event{
		ID:        rec.EventID,
		SourceKey: rec.SourceKey,
		Start:     rec.Start,
		End:       rec.End,
		Color:     rec.Color,
	}
}

func eventToStored(ev timeline.Event) contracts.StoredEvent {
	return contracts.StoredEvent{
		EventID:   ev.ID,
		SourceKey: ev.SourceKey,
		Start:     ev.Start,
		End:       ev.End,
		Color:     ev.Color,
	}
}
