package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/vendora-inc/vendora/internal/domain/subscription"
)

// MemoryRecordCache is a process-local, size-bounded record cache for
// single-instance deployments and development.
type MemoryRecordCache struct {
	lru *expirable.LRU[string, subscription.Record]
}

func NewMemoryRecordCache(size int, ttl time.Duration) *MemoryRecordCache {
	return &MemoryRecordCache{
		lru: expirable.NewLRU[string, subscription.Record](size, nil, ttl),
	}
}

func (c *MemoryRecordCache) Get(_ context.Context, userID string) (*subscription.Record, error) {
	rec, ok := c.lru.Get(userID)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (c *MemoryRecordCache) Set(_ context.Context, userID string, rec subscription.Record) error {
	c.lru.Add(userID, rec)
	return nil
}

func (c *MemoryRecordCache) Invalidate(_ context.Context, userID string) error {
	c.lru.Remove(userID)
	return nil
}
