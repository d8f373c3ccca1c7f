// Package subscription resolves the subscription record of the identity
// active in a session, and keeps it fresh.
package subscription

import (
	"context"
	"time"

	domain "github.com/vendora-inc/vendora/internal/domain/subscription"
)

// Fetcher loads a record from the backing store. It returns
// domain.ErrRecordNotFound for users without a record.
type Fetcher interface {
	Fetch(ctx context.Context, userID string) (*domain.Record, error)
}

// FreshFetcher is implemented by fetchers that share reads between callers.
// FetchFresh never joins a read that started before the call.
type FreshFetcher interface {
	FetchFresh(ctx context.Context, userID string) (*domain.Record, error)
}

// RecordCache stores settled records by user id. Get returns nil, nil on a miss.
type RecordCache interface {
	Get(ctx context.Context, userID string) (*domain.Record, error)
	Set(ctx context.Context, userID string, rec domain.Record) error
	Invalidate(ctx context.Context, userID string) error
}

// Fetch outcomes reported to a FetchObserver.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
	OutcomeCacheHit  = "cache_hit"
	OutcomeDiscarded = "discarded"
)

// FetchObserver receives one call per settled fetch.
type FetchObserver interface {
	ObserveFetch(outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, time.Duration) {}
