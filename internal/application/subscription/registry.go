package subscription

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/vendora-inc/vendora/internal/shared/logger"
)

const refreshConcurrency = 16

// ScopeRegistry holds one Resolver per session. Least recently used sessions
// are evicted once capacity is reached.
type ScopeRegistry struct {
	fetcher  Fetcher
	cache    RecordCache
	observer FetchObserver
	logger   logger.Interface

	mu     sync.Mutex
	scopes *lru.Cache[string, *Resolver]
}

func NewScopeRegistry(capacity int, fetcher Fetcher, cache RecordCache, observer FetchObserver, log logger.Interface) (*ScopeRegistry, error) {
	scopes, err := lru.New[string, *Resolver](capacity)
	if err != nil {
		return nil, err
	}
	return &ScopeRegistry{
		fetcher:  fetcher,
		cache:    cache,
		observer: observer,
		logger:   log,
		scopes:   scopes,
	}, nil
}

// Scope returns the resolver for sessionID, creating it on first use.
func (s *ScopeRegistry) Scope(sessionID string) *Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.scopes.Get(sessionID); ok {
		return r
	}
	r := NewResolver(s.fetcher, s.cache, s.observer, s.logger.With("session_id", sessionID))
	s.scopes.Add(sessionID, r)
	return r
}

// ScopeFor returns the resolver serving userID within sessionID. Each signed-in
// user of a session gets a scope of its own, so requests racing across an
// account switch never share resolver state.
func (s *ScopeRegistry) ScopeFor(sessionID, userID string) *Resolver {
	r := s.Scope(sessionID + "/" + userID)
	r.SetIdentity(userID)
	return r
}

// Len returns the number of live scopes.
func (s *ScopeRegistry) Len() int {
	return s.scopes.Len()
}

// RefreshUser drops the cached record for userID and re-fetches it in every
// scope where that user is active. It returns the number of scopes refreshed.
func (s *ScopeRegistry) RefreshUser(ctx context.Context, userID string) (int, error) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.logger.Warnw("failed to invalidate subscription cache", "user_id", userID, "error", err)
		}
	}

	var targets []*Resolver
	for _, r := range s.scopes.Values() {
		if r.ActiveUserID() == userID {
			targets = append(targets, r)
		}
	}
	return len(targets), s.refresh(ctx, targets)
}

// RefreshAll re-fetches the record of every scope with an active user.
// Scopes of the same user share one fetch through the single-flight fetcher.
func (s *ScopeRegistry) RefreshAll(ctx context.Context) (int, error) {
	var targets []*Resolver
	for _, r := range s.scopes.Values() {
		if r.ActiveUserID() != "" {
			targets = append(targets, r)
		}
	}
	return len(targets), s.refresh(ctx, targets)
}

func (s *ScopeRegistry) refresh(ctx context.Context, targets []*Resolver) error {
	var g errgroup.Group
	g.SetLimit(refreshConcurrency)

	var (
		mu       sync.Mutex
		firstErr error
	)
	for _, r := range targets {
		g.Go(func() error {
			if err := r.Refresh(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return firstErr
}
