package model

import (
	"fmt"
	"time"
)

// TimeRange - полуоткрытый интервал [Start, End)
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange создаёт интервал; при start >= end возвращает *InvalidRangeError
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, &InvalidRangeError{Start: start, End: end}
	}
	return TimeRange{Start: start, End: end}, nil
}

// Validate проверяет Start < End для интервала, собранного вручную
func (r TimeRange) Validate() error {
	_, err := NewTimeRange(r.Start, r.End)
	return err
}

// Overlaps проверяет пересечение интервалов.
// Интервалы, касающиеся концами, не пересекаются.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains проверяет, что t лежит внутри интервала
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Duration возвращает End - Start
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Shift сдвигает оба конца на d
func (r TimeRange) Shift(d time.Duration) TimeRange {
	return TimeRange{Start: r.Start.Add(d), End: r.End.Add(d)}
}

// In переводит оба конца в часовой пояс loc
func (r TimeRange) In(loc *time.Location) TimeRange {
	return TimeRange{Start: r.Start.In(loc), End: r.End.In(loc)}
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}
