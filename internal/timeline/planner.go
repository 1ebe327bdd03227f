package timeline

import (
	"errors"
	"time"

	"github.com/nats-io/nuid"
)

var ErrNoMediaItems = errors.New("at least one media item is required")
var ErrInvalidWindow = errors.New("window start must be before window end")
var ErrInsufficientWindow = errors.New("window is too short for the selected items")

// PlanItem is the planner's view of a media item: what to play and for how
// long. Order matters; the caller supplies the list in playback order.
type PlanItem struct {
	SourceKey string
	Duration  time.Duration
}

// Planner packs an ordered media list into a bounded window as back-to-back
// events separated by the slot gap. It only produces candidate events; the
// batch is merged into the store elsewhere, atomically.
type Planner struct {
	Gap      time.Duration
	Now      func() time.Time
	NewID    func() string
	NewColor func() string
}

func NewPlanner() *Planner {
	return &Planner{
		Gap:      DefaultSlotGap,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    nuid.Next,
		NewColor: RandomColor,
	}
}

// Plan lays the items out sequentially: the first starts one gap after
// windowStart, each next one gap after the previous end. If the combined
// duration cannot fit in the window at all, it fails up front with
// ErrInsufficientWindow and produces nothing. Items are taken in a single
// pass; an item whose end would cross windowEnd stops the pass.
func (p *Planner) Plan(items []PlanItem, windowStart, windowEnd time.Time) ([]Event, error) {
	if len(items) == 0 {
		return nil, ErrNoMediaItems
	}
	if !windowStart.Before(windowEnd) {
		return nil, ErrInvalidWindow
	}
	if !windowStart.After(p.Now()) {
		return nil, ErrInThePast
	}

	gap := p.Gap
	if gap <= 0 {
		gap = DefaultSlotGap
	}

	var total time.Duration
	for _, item := range items {
		if item.Duration <= 0 {
			return nil, ErrInvalidInterval
		}
		total += item.Duration
	}
	if windowEnd.Sub(windowStart) < total {
		return nil, ErrInsufficientWindow
	}

	events := make([]Event, 0, len(items))
	cursor := windowStart
	for _, item := range items {
		start := cursor.Add(gap)
		end := start.Add(item.Duration)
		if end.After(windowEnd) {
			break
		}
		events = append(events, Event{
			ID:        p.NewID(),
			SourceKey: item.SourceKey,
			Start:     start,
			End:       end,
			Color:     p.NewColor(),
		})
		cursor = end
	}
	return events, nil
}
