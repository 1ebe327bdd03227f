package timeline

import (
	"errors"
	"time"
)

var ErrInThePast = errors.New("cannot schedule into the past")
var ErrNoSlotAvailable = errors.New("no free slot before the end of the day")

const (
	// DefaultSnapWindow is how close an existing event's end has to be to a
	// candidate start for the candidate to snap behind it.
	DefaultSnapWindow = 5 * time.Minute
	// DefaultSlotGap separates back-to-back placements produced by snapping
	// and by the automation planner.
	DefaultSlotGap = time.Second
	// DefaultProbeStep is the granularity of linear probing for a free slot.
	DefaultProbeStep = time.Second
)

// PastPolicy decides what happens to a candidate start that is not in the
// future. Rejection is canonical; clamping is the documented alternative.
type PastPolicy string

const (
	PastReject PastPolicy = "reject"
	PastClamp  PastPolicy = "clamp"
)

// Policy carries the tunable scheduling constants. The zero value is usable;
// zero fields fall back to the defaults above.
type Policy struct {
	SnapWindow  time.Duration
	SlotGap     time.Duration
	ProbeStep   time.Duration
	PastPolicy  PastPolicy
	AllowResize bool
}

func DefaultPolicy() Policy {
	return Policy{
		SnapWindow: DefaultSnapWindow,
		SlotGap:    DefaultSlotGap,
		ProbeStep:  DefaultProbeStep,
		PastPolicy: PastReject,
	}
}

func (p Policy) normalized() Policy {
	if p.SnapWindow <= 0 {
		p.SnapWindow = DefaultSnapWindow
	}
	if p.SlotGap <= 0 {
		p.SlotGap = DefaultSlotGap
	}
	if p.ProbeStep <= 0 {
		p.ProbeStep = DefaultProbeStep
	}
	if p.PastPolicy != PastClamp {
		p.PastPolicy = PastReject
	}
	return p
}

// ResolveSlot turns a candidate start into a committed-ready start:
//
//  1. If an existing event ends within the snap window of the candidate, the
//     candidate shifts to that event's end plus the slot gap, so placements
//     pack back-to-back instead of leaving unusable slivers.
//  2. If [start, start+duration) is not free, the start advances by the
//     probe step (one second) until a free interval is found or probing
//     would cross into the next calendar day, which fails with
//     ErrNoSlotAvailable.
//  3. A resolved start at or before now fails with ErrInThePast under the
//     reject policy; under the clamp policy the candidate is first pulled
//     forward to now plus one second and resolution continues from there.
//
// ResolveSlot never mutates anything; existing is only read.
func ResolveSlot(candidate time.Time, duration time.Duration, existing []Event, now time.Time, p Policy) (time.Time, error) {
	if duration <= 0 {
		return time.Time{}, ErrInvalidInterval
	}
	p = p.normalized()

	if p.PastPolicy == PastClamp && !candidate.After(now) {
		candidate = now.Add(time.Second)
	}

	if snapped, ok := snapBehindNearby(candidate, existing, p); ok {
		candidate = snapped
	}

	dayEnd := startOfNextDay(candidate)
	start := candidate
	for {
		if start.Add(duration).After(dayEnd) {
			return time.Time{}, ErrNoSlotAvailable
		}
		if isFree(existing, start, start.Add(duration), "") {
			break
		}
		start = start.Add(p.ProbeStep)
	}

	if !start.After(now) {
		return time.Time{}, ErrInThePast
	}
	return start, nil
}

// snapBehindNearby finds the latest-ending event whose end lies within the
// snap window of the candidate and returns a start just behind it. The
// window is inclusive: a distance of exactly SnapWindow still snaps.
func snapBehindNearby(candidate time.Time, existing []Event, p Policy) (time.Time, bool) {
	var best time.Time
	found := false
	for _, ev := range existing {
		d := candidate.Sub(ev.End)
		if d < 0 {
			d = -d
		}
		if d <= p.SnapWindow && (!found || ev.End.After(best)) {
			best = ev.End
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return best.Add(p.SlotGap), true
}

func isFree(events []Event, start, end time.Time, excludeID string) bool {
	for _, ev := range events {
		if excludeID != "" && ev.ID == excludeID {
			continue
		}
		if ev.overlaps(start, end) {
			return false
		}
	}
	return true
}

func startOfNextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
