package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/vendora-inc/vendora/internal/domain/subscription"
	apperrors "github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/goroutine"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// Snapshot is the resolver state for the active identity at one instant.
type Snapshot struct {
	UserID string
	// Record is nil while the first fetch for UserID is pending, or when no
	// identity is set.
	Record *domain.Record
	// IsLoading is true only until the first result for UserID settles.
	// Refreshes of a known record keep IsLoading false.
	IsLoading  bool
	Refreshing bool
	// Err is set when Record is the fail-closed fallback.
	Err error
}

// flight is one fetch started by this resolver.
type flight struct {
	generation uint64
	seq        uint64
	userID     string
	forced     bool
	done       chan struct{}
}

// Resolver tracks the subscription record of whichever user is active in one
// session scope. Identity changes bump a generation counter; results of
// fetches started under an older generation are dropped without touching the
// cache or the current state.
type Resolver struct {
	fetcher  Fetcher
	cache    RecordCache
	observer FetchObserver
	logger   logger.Interface

	mu         sync.Mutex
	userID     string
	generation uint64
	record     *domain.Record
	err        error
	inflight   *flight
	seq        uint64
	applied    uint64
	wg         sync.WaitGroup
}

// NewResolver builds a resolver. cache and observer may be nil.
func NewResolver(fetcher Fetcher, cache RecordCache, observer FetchObserver, log logger.Interface) *Resolver {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Resolver{
		fetcher:  fetcher,
		cache:    cache,
		observer: observer,
		logger:   log,
	}
}

// SetIdentity switches the active user. An empty id means signed out. A
// change clears the known record so the new user never sees the old one.
func (r *Resolver) SetIdentity(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID == r.userID {
		return
	}
	r.generation++
	r.userID = userID
	r.record = nil
	r.err = nil
	r.inflight = nil
}

// ActiveUserID returns the user the resolver currently serves.
func (r *Resolver) ActiveUserID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userID
}

// Resolve returns the current snapshot, starting a background fetch when
// nothing is known for the active user yet. It never blocks on I/O.
func (r *Resolver) Resolve(ctx context.Context) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userID != "" && r.record == nil && r.inflight == nil {
		r.startFetchLocked(ctx, false)
	}
	return r.snapshotLocked()
}

// Await blocks until userID has a settled snapshot or ctx is done, whichever
// comes first. On ctx expiry the loading snapshot is returned. While the scope
// serves a different user, the result is a loading snapshot for userID; a
// caller is never handed another user's record.
func (r *Resolver) Await(ctx context.Context, userID string) Snapshot {
	for {
		r.mu.Lock()
		if r.userID != userID {
			r.mu.Unlock()
			return Snapshot{UserID: userID, IsLoading: userID != ""}
		}
		if r.userID != "" && r.record == nil && r.inflight == nil {
			r.startFetchLocked(ctx, false)
		}
		snap := r.snapshotLocked()
		var wait chan struct{}
		if snap.IsLoading && r.inflight != nil {
			wait = r.inflight.done
		}
		r.mu.Unlock()

		if wait == nil {
			return snap
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return snap
		}
	}
}

// Refresh forces a fetch that bypasses the cache and waits for it. A forced
// fetch already in flight is joined; a plain one is overtaken, since it may
// have read the store before the refresh was requested. The returned error is the
// fetch error, if any; on error the snapshot falls back to FailClosedRecord.
func (r *Resolver) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.userID == "" {
		r.mu.Unlock()
		return nil
	}
	f := r.inflight
	if f == nil || !f.forced {
		f = r.startFetchLocked(ctx, true)
	}
	r.mu.Unlock()

	select {
	case <-f.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f.generation != r.generation {
		return nil
	}
	return r.err
}

func (r *Resolver) snapshotLocked() Snapshot {
	snap := Snapshot{
		UserID:     r.userID,
		Refreshing: r.inflight != nil,
		Err:        r.err,
	}
	if r.userID == "" {
		return snap
	}
	if r.record == nil {
		snap.IsLoading = true
		return snap
	}
	rec := *r.record
	snap.Record = &rec
	return snap
}

// startFetchLocked launches a fetch for the active user. The fetch runs on a
// context detached from the caller's cancellation so that an abandoned
// request does not fail the fetch for everyone sharing it.
func (r *Resolver) startFetchLocked(ctx context.Context, forced bool) *flight {
	r.seq++
	f := &flight{
		generation: r.generation,
		seq:        r.seq,
		userID:     r.userID,
		forced:     forced,
		done:       make(chan struct{}),
	}
	r.inflight = f

	fetchCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	goroutine.SafeGo(r.logger, "subscription-fetch", func() {
		defer r.wg.Done()
		defer close(f.done)
		r.runFetch(fetchCtx, f)
	})
	return f
}

func (r *Resolver) runFetch(ctx context.Context, f *flight) {
	start := time.Now()

	if !f.forced && r.cache != nil {
		cached, err := r.cache.Get(ctx, f.userID)
		if err != nil {
			r.logger.Warnw("subscription cache read failed", "user_id", f.userID, "error", err)
		} else if cached != nil {
			r.complete(ctx, f, cached, nil, OutcomeCacheHit, start)
			return
		}
	}

	var (
		rec *domain.Record
		err error
	)
	if fresh, ok := r.fetcher.(FreshFetcher); ok && f.forced {
		rec, err = fresh.FetchFresh(ctx, f.userID)
	} else {
		rec, err = r.fetcher.Fetch(ctx, f.userID)
	}
	outcome := OutcomeOK
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		// No record means never provisioned: nothing granted, nothing failed.
		rec, err = &domain.Record{}, nil
		outcome = OutcomeNotFound
	case err != nil:
		outcome = OutcomeError
	}
	r.complete(ctx, f, rec, err, outcome, start)
}

func (r *Resolver) complete(ctx context.Context, f *flight, rec *domain.Record, fetchErr error, outcome string, start time.Time) {
	r.mu.Lock()
	if f.generation != r.generation {
		r.mu.Unlock()
		r.observer.ObserveFetch(OutcomeDiscarded, time.Since(start))
		r.logger.Debugw("discarding subscription fetch for previous identity",
			"user_id", f.userID,
			"generation", f.generation,
		)
		return
	}
	if r.inflight == f {
		r.inflight = nil
	}
	// A forced refresh may overtake an earlier fetch; never let the older
	// result land on top of the newer one.
	if f.seq < r.applied {
		r.mu.Unlock()
		r.observer.ObserveFetch(OutcomeDiscarded, time.Since(start))
		return
	}
	r.applied = f.seq

	if fetchErr != nil {
		failClosed := domain.FailClosedRecord()
		r.record = &failClosed
		r.err = apperrors.NewSubscriptionFetchError().WithCause(errors.Join(domain.ErrSubscriptionFetch, fetchErr))
		r.mu.Unlock()

		r.observer.ObserveFetch(outcome, time.Since(start))
		r.logger.Errorw("subscription fetch failed, access fails closed",
			"user_id", f.userID,
			"error", fetchErr,
		)
		return
	}

	r.record = rec
	r.err = nil
	r.mu.Unlock()

	r.observer.ObserveFetch(outcome, time.Since(start))
	if r.cache != nil && outcome != OutcomeCacheHit {
		if err := r.cache.Set(ctx, f.userID, *rec); err != nil {
			r.logger.Warnw("failed to cache subscription record", "user_id", f.userID, "error", err)
		}
	}
}
