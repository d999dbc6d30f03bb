package services

import "time"

// Clock returns the current time. Services take it so tests can move time.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}
