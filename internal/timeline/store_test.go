package timeline

import (
	"errors"
	"testing"
	"time"
)

func mustAdd(t *testing.T, s *Store, ev Event) {
	t.Helper()
	if err := s.Add(ev); err != nil {
		t.Fatalf("Add(%s) returned error: %v", ev.ID, err)
	}
}

func TestStore_AddKeepsOrderAndSetsDirty(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Event{ID: "b", Start: at(12, 0, 0), End: at(12, 10, 0)})
	mustAdd(t, s, Event{ID: "a", Start: at(9, 0, 0), End: at(9, 30, 0)})

	events := s.Events()
	if len(events) != 2 || events[0].ID != "a" || events[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", events)
	}
	if !s.Dirty() {
		t.Fatal("store should be dirty after a successful add")
	}
}

func TestStore_AddRejectsOverlapWithoutMutating(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Event{ID: "a", Start: at(10, 0, 0), End: at(10, 30, 0)})
	s.ClearDirty()

	err := s.Add(Event{ID: "b", Start: at(10, 15, 0), End: at(10, 45, 0)})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if s.Len() != 1 || s.Dirty() {
		t.Fatalf("failed add mutated the store: len=%d dirty=%v", s.Len(), s.Dirty())
	}
}

func TestStore_AddAllowsTouchingIntervals(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Event{ID: "a", Start: at(10, 0, 0), End: at(10, 5, 0)})
	mustAdd(t, s, Event{ID: "b", Start: at(10, 5, 0), End: at(10, 10, 0)})
}

func TestStore_SetStartExcludesSelfFromOverlap(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Event{ID: "a", Start: at(10, 0, 0), End: at(10, 30, 0)})

	// Shifting within its own old interval must succeed.
	if err := s.SetStart("a", at(10, 10, 0)); err != nil {
		t.Fatalf("SetStart returned error: %v", err)
	}
	moved, _ := s.Get("a")
	if !moved.Start.Equal(at(10, 10, 0)) || !moved.End.Equal(at(10, 40, 0)) {
		t.Fatalf("duration not preserved: %+v", moved)
	}
}

func TestStore_SetStartConflictLeavesEventInPlace(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Event{ID: "a", Start: at(10, 0, 0), End: at(10, 30, 0)})
	mustAdd(t, s, Event{ID: "b", Start: at(11, 0, 0), End: at(11, 30, 0)})
	s.ClearDirty()

	err := s.SetStart("b", at(10, 15, 0))
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	b, _ := s.Get("b")
	if !b.Start.Equal(at(11, 0, 0)) {
		t.Fatalf("rejected move changed the event: %+v", b)
	}
	if s.Dirty() {
		t.Fatal("rejected move set the dirty flag")
	}
}

func TestStore_SetStartUnknownID(t *testing.T) {
	s := NewStore()
	if err := s.SetStart("nope", at(10, 0, 0)); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestStore_SetDuration(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Event{ID: "a", Start: at(10, 0, 0), End: at(10, 10, 0)})
	mustAdd(t, s, Event{ID: "b", Start: at(10, 30, 0), End: at(10, 40, 0)})

	if err := s.SetDuration("a", 45*time.Minute); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap growing into neighbor, got %v", err)
	}
	if err := s.SetDuration("a", 20*time.Minute); err != nil {
		t.Fatalf("SetDuration returned error: %v", err)
	}
	a, _ := s.Get("a")
	if !a.End.Equal(at(10, 20, 0)) {
		t.Fatalf("unexpected end after resize: %v", a.End)
	}
}

func TestStore_AddBatchAllOrNothing(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Event{ID: "x", Start: at(14, 2, 0), End: at(14, 4, 0)})
	s.ClearDirty()

	batch := []Event{
		{ID: "p", Start: at(14, 0, 1), End: at(14, 5, 1)}, // collides with x
		{ID: "q", Start: at(14, 5, 2), End: at(14, 10, 2)},
	}
	if err := s.AddBatch(batch); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if s.Len() != 1 || s.Dirty() {
		t.Fatalf("rejected batch mutated the store: len=%d dirty=%v", s.Len(), s.Dirty())
	}

	if !s.Delete("x") {
		t.Fatal("delete of existing event failed")
	}
	if err := s.AddBatch(batch); err != nil {
		t.Fatalf("AddBatch returned error: %v", err)
	}
	if s.Len() != 2 || !s.Dirty() {
		t.Fatalf("batch not applied: len=%d dirty=%v", s.Len(), s.Dirty())
	}
}

func TestStore_DeleteDay(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Event{ID: "a", Start: at(10, 0, 0), End: at(10, 5, 0)})
	mustAdd(t, s, Event{ID: "b", Start: at(12, 0, 0), End: at(12, 5, 0)})
	other := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	mustAdd(t, s, Event{ID: "c", Start: other, End: other.Add(5 * time.Minute)})

	removed := s.DeleteDay(at(0, 0, 0))
	if removed != 2 {
		t.Fatalf("removed %d events, want 2", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("unexpected remainder: %+v", s.Events())
	}
	if _, ok := s.Get("c"); !ok {
		t.Fatal("event on another day was removed")
	}
}

func TestStore_ReplaceAllHydratesAndClearsDirty(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, Event{ID: "old", Start: at(8, 0, 0), End: at(8, 5, 0)})

	err := s.ReplaceAll([]Event{
		{ID: "n2", Start: at(11, 0, 0), End: at(11, 10, 0)},
		{ID: "n1", Start: at(9, 0, 0), End: at(9, 10, 0)},
	})
	if err != nil {
		t.Fatalf("ReplaceAll returned error: %v", err)
	}
	events := s.Events()
	if len(events) != 2 || events[0].ID != "n1" {
		t.Fatalf("unexpected contents: %+v", events)
	}
	if s.Dirty() {
		t.Fatal("hydration must clear the dirty flag")
	}
}

func TestStore_ReplaceAllRefusesCorruptData(t *testing.T) {
	s := NewStore()
	err := s.ReplaceAll([]Event{
		{ID: "a", Start: at(10, 0, 0), End: at(10, 30, 0)},
		{ID: "b", Start: at(10, 15, 0), End: at(10, 45, 0)},
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatal("refused hydration must not keep partial data")
	}
}

func TestEvent_DisplayLabel(t *testing.T) {
	ev := Event{
		SourceKey: "uploads/promo-spot.mp4",
		Start:     at(14, 0, 1),
		End:       at(14, 5, 1),
	}
	want := "promo-spot.mp4 (14:00:01 - 14:05:01)"
	if got := ev.DisplayLabel(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
