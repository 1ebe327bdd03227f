package timeline

import (
	"errors"
	"testing"
	"time"
)

func at(h, m, s int) time.Time {
	return time.Date(2026, 3, 10, h, m, s, 0, time.UTC)
}

func fixedEvents() []Event {
	return []Event{
		{ID: "a", SourceKey: "clips/a.mp4", Start: at(10, 0, 0), End: at(10, 15, 0)},
		{ID: "b", SourceKey: "clips/b.mp4", Start: at(10, 20, 0), End: at(10, 30, 0)},
	}
}

func TestResolveSlot_FreeSlotIsUntouched(t *testing.T) {
	now := at(8, 0, 0)
	got, err := ResolveSlot(at(12, 0, 0), 10*time.Minute, fixedEvents(), now, DefaultPolicy())
	if err != nil {
		t.Fatalf("ResolveSlot returned error: %v", err)
	}
	if !got.Equal(at(12, 0, 0)) {
		t.Fatalf("got %v want 12:00:00", got)
	}
}

func TestResolveSlot_SnapsBehindNearbyEnd(t *testing.T) {
	// 10:12 is within five minutes of the first event's 10:15 end, so the
	// candidate snaps to 10:15:01 and the four-minute item fits before the
	// second event.
	now := at(8, 0, 0)
	got, err := ResolveSlot(at(10, 12, 0), 4*time.Minute, fixedEvents(), now, DefaultPolicy())
	if err != nil {
		t.Fatalf("ResolveSlot returned error: %v", err)
	}
	if !got.Equal(at(10, 15, 1)) {
		t.Fatalf("got %v want 10:15:01", got)
	}
}

func TestResolveSlot_SnapWindowBoundaryIsInclusive(t *testing.T) {
	// A candidate exactly one snap window away from an event's end still
	// snaps; only strictly larger distances leave the candidate alone.
	existing := []Event{
		{ID: "a", Start: at(10, 0, 0), End: at(10, 15, 0)},
	}
	now := at(8, 0, 0)
	got, err := ResolveSlot(at(10, 20, 0), 4*time.Minute, existing, now, DefaultPolicy())
	if err != nil {
		t.Fatalf("ResolveSlot returned error: %v", err)
	}
	if !got.Equal(at(10, 15, 1)) {
		t.Fatalf("exactly at window edge: got %v want 10:15:01", got)
	}

	got, err = ResolveSlot(at(10, 20, 1), 4*time.Minute, existing, now, DefaultPolicy())
	if err != nil {
		t.Fatalf("ResolveSlot returned error: %v", err)
	}
	if !got.Equal(at(10, 20, 1)) {
		t.Fatalf("just past window edge: got %v want 10:20:01", got)
	}
}

func TestResolveSlot_ProbesPastTooSmallGap(t *testing.T) {
	// A ten-minute item dropped at 10:05 cannot fit in the five-minute gap
	// between the two events; probing lands it right after the second one.
	now := at(8, 0, 0)
	got, err := ResolveSlot(at(10, 5, 0), 10*time.Minute, fixedEvents(), now, DefaultPolicy())
	if err != nil {
		t.Fatalf("ResolveSlot returned error: %v", err)
	}
	if !got.Equal(at(10, 30, 0)) {
		t.Fatalf("got %v want 10:30:00", got)
	}
}

func TestResolveSlot_FindsExactFirstFreeSecond(t *testing.T) {
	existing := []Event{
		{ID: "a", Start: at(10, 0, 0), End: at(10, 0, 30)},
	}
	now := at(8, 0, 0)
	got, err := ResolveSlot(at(10, 0, 0), time.Minute, existing, now, Policy{SnapWindow: time.Millisecond})
	if err != nil {
		t.Fatalf("ResolveSlot returned error: %v", err)
	}
	if !got.Equal(at(10, 0, 30)) {
		t.Fatalf("got %v want 10:00:30", got)
	}
}

func TestResolveSlot_TouchingIntervalsAreLegal(t *testing.T) {
	existing := []Event{
		{ID: "a", Start: at(10, 10, 0), End: at(10, 15, 0)},
	}
	now := at(8, 0, 0)
	// [10:05, 10:10) ends exactly where the existing event starts; under
	// half-open semantics that is not an overlap.
	got, err := ResolveSlot(at(10, 5, 0), 5*time.Minute, existing, now, Policy{SnapWindow: time.Millisecond})
	if err != nil {
		t.Fatalf("ResolveSlot returned error: %v", err)
	}
	if !got.Equal(at(10, 5, 0)) {
		t.Fatalf("got %v want 10:05:00", got)
	}
}

func TestResolveSlot_NoSlotBeforeDayBoundary(t *testing.T) {
	existing := []Event{
		{ID: "a", Start: at(23, 0, 0), End: at(23, 59, 0)},
	}
	now := at(8, 0, 0)
	_, err := ResolveSlot(at(23, 30, 0), 10*time.Minute, existing, now, DefaultPolicy())
	if !errors.Is(err, ErrNoSlotAvailable) {
		t.Fatalf("expected ErrNoSlotAvailable, got %v", err)
	}
}

func TestResolveSlot_RejectsPast(t *testing.T) {
	now := at(12, 0, 0)
	_, err := ResolveSlot(at(11, 59, 59), time.Minute, nil, now, DefaultPolicy())
	if !errors.Is(err, ErrInThePast) {
		t.Fatalf("expected ErrInThePast, got %v", err)
	}
	// Exactly "now" is also in the past; start must be strictly later.
	_, err = ResolveSlot(now, time.Minute, nil, now, DefaultPolicy())
	if !errors.Is(err, ErrInThePast) {
		t.Fatalf("start == now: expected ErrInThePast, got %v", err)
	}
}

func TestResolveSlot_ClampPolicyPullsForward(t *testing.T) {
	now := at(12, 0, 0)
	p := DefaultPolicy()
	p.PastPolicy = PastClamp
	got, err := ResolveSlot(at(9, 0, 0), time.Minute, nil, now, p)
	if err != nil {
		t.Fatalf("ResolveSlot returned error: %v", err)
	}
	if !got.Equal(at(12, 0, 1)) {
		t.Fatalf("got %v want 12:00:01", got)
	}
}

func TestResolveSlot_RejectsNonPositiveDuration(t *testing.T) {
	now := at(8, 0, 0)
	if _, err := ResolveSlot(at(10, 0, 0), 0, nil, now, DefaultPolicy()); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}
