// Package recurrence expands repeat rules into concrete occurrence starts
// using calendar-aware arithmetic: weekly and monthly repeats follow the
// calendar rather than fixed millisecond multiples, so a monthly repeat of a
// Jan 15 placement lands on Feb 15 regardless of month length.
package recurrence

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"
)

var ErrUnknownFrequency = errors.New("unknown recurrence frequency")
var ErrUnboundedRule = errors.New("recurrence rule needs a count or an until bound")
var ErrTooManyOccurrences = errors.New("recurrence rule expands to too many occurrences")

// maxOccurrences caps expansion; the schedule operates on a single day, so
// anything near this bound is a caller mistake, not a real plan.
const maxOccurrences = 1000

type Frequency string

const (
	Minutely Frequency = "minutely"
	Hourly   Frequency = "hourly"
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Monthly  Frequency = "monthly"
)

// Rule describes a bounded repetition. Exactly one of Count or Until must
// bound it; Interval defaults to 1.
type Rule struct {
	Freq     Frequency
	Interval int
	Count    int
	Until    time.Time
}

func (r Rule) frequency() (rrule.Frequency, error) {
	switch r.Freq {
	case Minutely:
		return rrule.MINUTELY, nil
	case Hourly:
		return rrule.HOURLY, nil
	case Daily:
		return rrule.DAILY, nil
	case Weekly:
		return rrule.WEEKLY, nil
	case Monthly:
		return rrule.MONTHLY, nil
	default:
		return 0, ErrUnknownFrequency
	}
}

// Expand returns the occurrence start times for a placement beginning at
// start, including start itself as the first occurrence.
func Expand(start time.Time, r Rule) ([]time.Time, error) {
	freq, err := r.frequency()
	if err != nil {
		return nil, err
	}
	if r.Count <= 0 && r.Until.IsZero() {
		return nil, ErrUnboundedRule
	}
	if r.Count > maxOccurrences {
		return nil, ErrTooManyOccurrences
	}
	interval := r.Interval
	if interval <= 0 {
		interval = 1
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: interval,
		Dtstart:  start,
	}
	if r.Count > 0 {
		opt.Count = r.Count
	} else {
		opt.Until = r.Until
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, err
	}
	occurrences := rule.All()
	if len(occurrences) > maxOccurrences {
		return nil, ErrTooManyOccurrences
	}
	return occurrences, nil
}
