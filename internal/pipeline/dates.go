package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ISODateLayout is the yyyy/mm/dd date form used by the scoreboard API
const ISODateLayout = "2006/01/02"

// ErrInvalidDate is returned for a date that is not a real yyyy/mm/dd day
var ErrInvalidDate = errors.New("invalid date")

// ParseISODate parses a yyyy/mm/dd date into UTC midnight
func ParseISODate(s string) (time.Time, error) {
	t, err := time.Parse(ISODateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: want yyyy/mm/dd", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatISODate formats the calendar date of t as yyyy/mm/dd
func FormatISODate(t time.Time) string {
	return t.Format(ISODateLayout)
}

// Clock answers "what day is it" for the league. A day rolls over late
// (rollover after local midnight) so games that finish after midnight still
// belong to the evening they tipped off.
type Clock struct {
	loc      *time.Location
	rollover time.Duration
	now      func() time.Time
}

// NewClock creates a clock for the league time zone
func NewClock(loc *time.Location, rollover time.Duration) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, rollover: rollover, now: time.Now}
}

// WithNow replaces the time source
func (c *Clock) WithNow(now func() time.Time) *Clock {
	c.now = now
	return c
}

// Today returns the league's current date as UTC midnight
func (c *Clock) Today() time.Time {
	local := c.now().In(c.loc).Add(-c.rollover)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// TodayISO returns Today as yyyy/mm/dd
func (c *Clock) TodayISO() string {
	return FormatISODate(c.Today())
}

// eachDay calls fn for every date from start to end inclusive, in ascending order,
// stopping at the first error
func eachDay(start, end time.Time, fn func(isoDate string) error) error {
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := fn(FormatISODate(d)); err != nil {
			return err
		}
	}
	return nil
}
