package timesync

import (
	"time"
)

const (
	ticksPerSecond = 10_000_000
	nanosPerTick   = 100

	// unixEpochTicks is the tick count of 1970-01-01T00:00:00.
	unixEpochTicks = 621_355_968_000_000_000
)

// Converter handles conversion between engine ticks and wall-clock time.
type Converter struct {
	loc *time.Location
}

// NewConverter creates a converter for ticks recorded in loc. A nil loc means UTC.
func NewConverter(loc *time.Location) *Converter {
	if loc == nil {
		loc = time.UTC
	}
	return &Converter{loc: loc}
}

// Location returns the location ticks are interpreted in.
func (c *Converter) Location() *time.Location {
	return c.loc
}

// TicksToWallClock converts a tick count to wall-clock time.
// Zero ticks means "not recorded" and yields the zero time.
func (c *Converter) TicksToWallClock(ticks int64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	unix := ticks - unixEpochTicks
	t := time.Unix(unix/ticksPerSecond, (unix%ticksPerSecond)*nanosPerTick).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.loc)
}

// WallClockToTicks is the inverse of TicksToWallClock. The zero time yields zero ticks.
func (c *Converter) WallClockToTicks(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	t = t.In(c.loc)
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return unixEpochTicks + wall.Unix()*ticksPerSecond + int64(wall.Nanosecond())/nanosPerTick
}
