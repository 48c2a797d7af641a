package shift

import (
	"errors"
	"time"
)

var ErrInvalidTimeRange = errors.New("start time must be before end time")

type TimeRange struct {
	start time.Time
	end   time.Time
}

func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, ErrInvalidTimeRange
	}

	return TimeRange{
		start: start,
		end:   end,
	}, nil
}

func (tr TimeRange) Start() time.Time {
	return tr.start
}

func (tr TimeRange) End() time.Time {
	return tr.end
}

func (tr TimeRange) Duration() time.Duration {
	return tr.end.Sub(tr.start)
}

// Overlaps reports whether two ranges share any instant. Adjacent ranges
// (end == start) do not overlap.
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.start.Before(other.end) && other.start.Before(tr.end)
}
