package clock

import (
	"fmt"
	"sync"
	"time"
)

// TimestampFormat is ISO-8601 UTC with millisecond precision and a literal Z.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Clock produces the timestamp placed in DYDX-TIMESTAMP and signed with the action.
type Clock interface {
	Now() string
}

// SystemClock reads the wall clock. Output never goes backwards, even if the
// host clock is stepped back between calls. The zero value is ready to use.
type SystemClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{now: time.Now}
}

func (c *SystemClock) Now() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now
	if now == nil {
		now = time.Now
	}
	t := now().UTC().Truncate(time.Millisecond)
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return FormatTimestamp(t)
}

// FixedClock always returns the same timestamp.
type FixedClock struct {
	Timestamp string
}

func (f FixedClock) Now() string {
	return f.Timestamp
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ParseTimestamp parses a timestamp produced by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
