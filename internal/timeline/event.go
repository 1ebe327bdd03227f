package timeline

import (
	"fmt"
	"math/rand"
	"path"
	"time"
)

// Event is one scheduled placement of a media item on the day timeline.
// Start/End are absolute; the interval is half-open [Start, End), so an
// event ending exactly when another starts is legal.
type Event struct {
	ID        string
	SourceKey string
	Start     time.Time
	End       time.Time
	Color     string
}

func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// DisplayLabel is derived presentation state and is recomputed from the
// current start/end rather than stored.
func (e Event) DisplayLabel() string {
	return fmt.Sprintf("%s (%s - %s)",
		path.Base(e.SourceKey),
		e.Start.Format("15:04:05"),
		e.End.Format("15:04:05"),
	)
}

// overlaps reports whether [start, end) intersects the event's interval.
func (e Event) overlaps(start, end time.Time) bool {
	return start.Before(e.End) && e.Start.Before(end)
}

// onDay reports whether the event's start falls on the calendar day of ref,
// evaluated in ref's location.
func (e Event) onDay(ref time.Time) bool {
	y1, m1, d1 := e.Start.In(ref.Location()).Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// RandomColor returns a random presentation color in #RRGGBB form.
func RandomColor() string {
	return fmt.Sprintf("#%06X", rand.Intn(0x1000000))
}
