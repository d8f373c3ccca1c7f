package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// MemoryLimiter keeps token buckets per key in process. Used when no Redis
// is configured; limits are per instance.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, []*rate.Limiter]
}

func NewMemoryLimiter(size int) (*MemoryLimiter, error) {
	buckets, err := lru.New[string, []*rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	return &MemoryLimiter{buckets: buckets}, nil
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limits Limits) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiters, ok := l.buckets.Get(key)
	if !ok {
		for _, w := range limits.windows() {
			if w.limit <= 0 {
				continue
			}
			every := w.duration / time.Duration(w.limit)
			limiters = append(limiters, rate.NewLimiter(rate.Every(every), w.limit))
		}
		l.buckets.Add(key, limiters)
	}

	now := time.Now()
	for _, lim := range limiters {
		if lim.TokensAt(now) < 1 {
			return false, nil
		}
	}
	for _, lim := range limiters {
		lim.AllowN(now, 1)
	}
	return true, nil
}
