// Package ratelimit throttles expensive per-user operations such as billing
// session creation.
package ratelimit

import (
	"context"
	"time"
)

// Limits caps requests per key. Zero disables a window.
type Limits struct {
	PerMinute int
	PerHour   int
}

// Limiter reports whether one more request for key fits within limits.
type Limiter interface {
	Allow(ctx context.Context, key string, limits Limits) (bool, error)
}

type window struct {
	duration time.Duration
	limit    int
}

func (l Limits) windows() []window {
	return []window{
		{time.Minute, l.PerMinute},
		{time.Hour, l.PerHour},
	}
}
