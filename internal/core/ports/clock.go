package ports

import "time"

// Clock abstracts wall-clock reads so lockout windows and challenge expiry
// are deterministic under test.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
