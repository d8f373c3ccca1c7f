package subscription

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	domain "github.com/vendora-inc/vendora/internal/domain/subscription"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// SingleFlightFetcher collapses concurrent fetches for the same user into one
// repository call. It is shared by every session scope in the process.
type SingleFlightFetcher struct {
	repo   domain.Repository
	group  singleflight.Group
	logger logger.Interface
}

func NewSingleFlightFetcher(repo domain.Repository, log logger.Interface) *SingleFlightFetcher {
	return &SingleFlightFetcher{
		repo:   repo,
		logger: log,
	}
}

// Fetch returns the record for userID. Callers joining an in-flight fetch get
// the same result, including its error.
func (f *SingleFlightFetcher) Fetch(ctx context.Context, userID string) (*domain.Record, error) {
	return f.fetch(ctx, userID)
}

// FetchFresh starts a new read for userID. Callers already waiting on an
// older read keep that result; later Fetch calls join the new read.
func (f *SingleFlightFetcher) FetchFresh(ctx context.Context, userID string) (*domain.Record, error) {
	f.group.Forget(userID)
	return f.fetch(ctx, userID)
}

func (f *SingleFlightFetcher) fetch(ctx context.Context, userID string) (*domain.Record, error) {
	v, err, shared := f.group.Do(userID, func() (any, error) {
		rec, err := f.repo.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to load subscription record: %w", err)
		}
		return rec, nil
	})
	if shared {
		f.logger.Debugw("joined in-flight subscription fetch", "user_id", userID)
	}
	if err != nil {
		return nil, err
	}

	rec := *v.(*domain.Record)
	return &rec, nil
}
