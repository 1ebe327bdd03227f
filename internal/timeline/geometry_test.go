package timeline

import (
	"errors"
	"testing"
	"time"
)

func TestMapPositionToTime_MidnightWindow(t *testing.T) {
	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	got, err := MapPositionToTime(450, 1000, dayStart, 1440)
	if err != nil {
		t.Fatalf("MapPositionToTime returned error: %v", err)
	}
	// 450/1000 of 1440 minutes = 648 minutes = 10:48.
	want := time.Date(2026, 3, 10, 10, 48, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestMapPositionToTime_RoundsToNearestMinute(t *testing.T) {
	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// 100.4/1440 of 1440 minutes = 100.4 minutes, rounds to 100 = 01:40.
	got, err := MapPositionToTime(100.4, 1440, dayStart, 1440)
	if err != nil {
		t.Fatalf("MapPositionToTime returned error: %v", err)
	}
	want := time.Date(2026, 3, 10, 1, 40, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("seconds not zeroed: %v", got)
	}
}

func TestMapPositionToTime_PartialWindow(t *testing.T) {
	// Window showing 10:00-14:00 only (240 minutes).
	windowStart := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	got, err := MapPositionToTime(0.5, 1, windowStart, 240)
	if err != nil {
		t.Fatalf("MapPositionToTime returned error: %v", err)
	}
	want := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestMapPositionToTime_OutsideExtent(t *testing.T) {
	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := MapPositionToTime(-1, 1000, dayStart, 1440); !errors.Is(err, ErrOutsideWindow) {
		t.Fatalf("negative offset: expected ErrOutsideWindow, got %v", err)
	}
	if _, err := MapPositionToTime(1001, 1000, dayStart, 1440); !errors.Is(err, ErrOutsideWindow) {
		t.Fatalf("offset past extent: expected ErrOutsideWindow, got %v", err)
	}
	if _, err := MapPositionToTime(10, 0, dayStart, 1440); !errors.Is(err, ErrInvalidExtent) {
		t.Fatalf("zero extent: expected ErrInvalidExtent, got %v", err)
	}
}

func TestMapPositionToTime_ExtentEdgesAreValid(t *testing.T) {
	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	got, err := MapPositionToTime(0, 1000, dayStart, 1440)
	if err != nil {
		t.Fatalf("offset 0 returned error: %v", err)
	}
	if !got.Equal(dayStart) {
		t.Fatalf("offset 0: got %v want %v", got, dayStart)
	}

	got, err = MapPositionToTime(1000, 1000, dayStart, 1440)
	if err != nil {
		t.Fatalf("offset == extent returned error: %v", err)
	}
	if !got.Equal(dayStart.Add(24 * time.Hour)) {
		t.Fatalf("offset == extent: got %v", got)
	}
}
