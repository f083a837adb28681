package domain

import (
	"fmt"
	"time"
)

// TimeOfDay is a UTC wall-clock time used for daily triggers.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h, UTC).
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", raw, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On returns the instant of this time of day on the UTC date of t.
func (c TimeOfDay) On(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, time.UTC)
}

// Next returns the first occurrence strictly after now.
func (c TimeOfDay) Next(now time.Time) time.Time {
	at := c.On(now)
	if !at.After(now) {
		at = at.Add(24 * time.Hour)
	}
	return at
}

func (c TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d UTC", c.Hour, c.Minute)
}
