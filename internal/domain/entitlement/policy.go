package entitlement

import (
	"time"

	"github.com/vendora-inc/vendora/internal/domain/subscription"
)

const day = 24 * time.Hour

// PlanTier is trial for unsubscribed records, otherwise the classified plan.
func PlanTier(r subscription.Record) Tier {
	if !r.Subscribed {
		return TierTrial
	}
	return Classify(r.PlanNameOrEmpty())
}

// EffectiveTier is the tier used for hierarchy comparisons: trial counts as start.
func EffectiveTier(r subscription.Record) Tier {
	t := PlanTier(r)
	if t == TierTrial {
		return TierStart
	}
	return t
}

// IsInTrial reports whether now falls before the trial end. It does not look
// at Subscribed.
func IsInTrial(r subscription.Record, now time.Time) bool {
	return r.TrialEnd != nil && now.Before(*r.TrialEnd)
}

// TrialDaysRemaining rounds the time left in the trial up to whole days.
// It is 0 once the trial has ended or when no trial is set.
func TrialDaysRemaining(r subscription.Record, now time.Time) int {
	if r.TrialEnd == nil {
		return 0
	}
	left := r.TrialEnd.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + day - 1) / day)
}

// HasAccess reports whether the record's effective tier meets required.
func HasAccess(r subscription.Record, required Tier) bool {
	return EffectiveTier(r).AtLeast(required)
}

// HasActivePeriodAccess is true for paying subscribers and users inside their trial.
func HasActivePeriodAccess(r subscription.Record, now time.Time) bool {
	return r.Subscribed || IsInTrial(r, now)
}

// Summary is the entitlement view of one record at one instant.
type Summary struct {
	Tier               Tier       `json:"tier"`
	EffectiveTier      Tier       `json:"effective_tier"`
	Subscribed         bool       `json:"subscribed"`
	PlanName           string     `json:"plan_name,omitempty"`
	InTrial            bool       `json:"in_trial"`
	TrialDaysRemaining int        `json:"trial_days_remaining"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`
	SubscriptionEnd    *time.Time `json:"subscription_end,omitempty"`
	ActivePeriod       bool       `json:"active_period"`
}

func Summarize(r subscription.Record, now time.Time) Summary {
	return Summary{
		Tier:               PlanTier(r),
		EffectiveTier:      EffectiveTier(r),
		Subscribed:         r.Subscribed,
		PlanName:           r.PlanNameOrEmpty(),
		InTrial:            IsInTrial(r, now),
		TrialDaysRemaining: TrialDaysRemaining(r, now),
		TrialEnd:           r.TrialEnd,
		SubscriptionEnd:    r.SubscriptionEnd,
		ActivePeriod:       HasActivePeriodAccess(r, now),
	}
}
