package internal

import "time"

// Clock provides the current time. Expiry decisions are made against a
// Clock rather than calling time.Now directly so that tests can pin the
// instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts an ordinary function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(CurrentTimestamp)

// CurrentTimestamp is *the* way to get a current timestamp and time.Now()
// should be avoided.
//
// Timestamps are rounded to the nearest millisecond, the resolution of a
// token's expiry, and are in UTC so that testify's DeepEqual comparisons
// don't trip over differing time zones.
func CurrentTimestamp() time.Time {
	return time.Now().Round(time.Millisecond).UTC()
}

// FixedClock returns a clock that always reports t. Used in tests.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
