package ratelimit

import "time"

type Limiter interface {
	// Allow counts one hit against key and reports whether it stays within
	// limit for the current window.
	Allow(key string, limit int, window time.Duration) Decision
	Close()
}

type Decision struct {
	Allowed   bool
	Count     int
	WindowEnd time.Time
}
