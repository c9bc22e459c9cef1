package services

import "time"

// Clock gives the engine one timezone basis for calendar days and hours-of-day
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// SiteClock reads wall time in the configured site timezone
type SiteClock struct {
	loc *time.Location
}

func NewSiteClock(tz string) (*SiteClock, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return &SiteClock{loc: loc}, nil
}

func (c *SiteClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c *SiteClock) Location() *time.Location { return c.loc }

// Today returns the clock's current calendar date
func Today(c Clock) time.Time {
	return CivilDate(c.Now().In(c.Location()))
}

// CivilDate keeps only the year/month/day of t as seen in t's own location, as UTC midnight.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b (negative when b is earlier)
func daysBetween(a, b time.Time) int {
	return int(CivilDate(b).Sub(CivilDate(a)).Hours() / 24)
}
