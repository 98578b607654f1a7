package timeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate is returned for date bounds not in yyyy-mm-dd form.
var ErrInvalidDate = errors.New("invalid date, expected yyyy-mm-dd")

const dateLayout = "2006-01-02"

// ParseDate parses a yyyy-mm-dd calendar date. The result is midnight UTC and
// only its calendar fields are meaningful.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(dateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// DateRange is a filter on local calendar dates. Both bounds are inclusive;
// an unset bound is open.
type DateRange struct {
	start    time.Time
	endAfter time.Time // first date past the end bound
	hasStart bool
	hasEnd   bool
}

// Unbounded returns a range that contains every date.
func Unbounded() DateRange { return DateRange{} }

// NewDateRange builds a range from optional yyyy-mm-dd bounds; "" leaves that
// side open.
func NewDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		d, err := ParseDate(start)
		if err != nil {
			return DateRange{}, fmt.Errorf("start date: %w", err)
		}
		r.start, r.hasStart = d, true
	}
	if end != "" {
		d, err := ParseDate(end)
		if err != nil {
			return DateRange{}, fmt.Errorf("end date: %w", err)
		}
		r.endAfter, r.hasEnd = d.AddDate(0, 0, 1), true
	}
	if r.hasStart && r.hasEnd && !r.start.Before(r.endAfter) {
		return DateRange{}, fmt.Errorf("start date %s is after end date %s", start, end)
	}
	return r, nil
}

// IsUnbounded reports whether neither bound is set.
func (r DateRange) IsUnbounded() bool { return !r.hasStart && !r.hasEnd }

// Contains reports whether the calendar date of t, read in t's own location,
// falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if r.hasStart && day.Before(r.start) {
		return false
	}
	if r.hasEnd && !day.Before(r.endAfter) {
		return false
	}
	return true
}

func (r DateRange) String() string {
	start, end := "-inf", "+inf"
	if r.hasStart {
		start = r.start.Format(dateLayout)
	}
	if r.hasEnd {
		end = r.endAfter.AddDate(0, 0, -1).Format(dateLayout)
	}
	return start + ".." + end
}
