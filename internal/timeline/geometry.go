package timeline

import (
	"errors"
	"math"
	"time"
)

var ErrOutsideWindow = errors.New("position is outside the schedulable area")
var ErrInvalidExtent = errors.New("timeline extent must be positive")

// MapPositionToTime translates a drop position within the rendered timeline
// extent into a timestamp on the visible window's calendar date. offset and
// extent are in the same (arbitrary) spatial unit; windowSpanMinutes is the
// time span the extent represents, typically 1440 for a full day.
//
// Minutes are rounded to the nearest whole minute and seconds are zeroed.
// Positions outside [0, extent] mean the drop landed off the schedulable
// area and no timestamp is produced. The function is pure.
func MapPositionToTime(offset, extent float64, windowStart time.Time, windowSpanMinutes int) (time.Time, error) {
	if extent <= 0 || windowSpanMinutes <= 0 {
		return time.Time{}, ErrInvalidExtent
	}
	if offset < 0 || offset > extent {
		return time.Time{}, ErrOutsideWindow
	}
	minutes := int(math.Round(offset / extent * float64(windowSpanMinutes)))

	base := time.Date(
		windowStart.Year(), windowStart.Month(), windowStart.Day(),
		windowStart.Hour(), windowStart.Minute(), 0, 0,
		windowStart.Location(),
	)
	return base.Add(time.Duration(minutes) * time.Minute), nil
}
