// Package subscription holds the subscription record the access layer reads.
// Records are written by the billing-event pipeline; this codebase only reads
// them, except for the trial record provisioned at signup.
package subscription

import (
	"context"
	"errors"
	"time"
)

// TrialPeriod is the length of the free trial granted at signup.
const TrialPeriod = 7 * 24 * time.Hour

var (
	ErrRecordNotFound = errors.New("subscription record not found")
	// ErrSubscriptionFetch is attached to snapshots that fell back to FailClosedRecord.
	ErrSubscriptionFetch = errors.New("subscription status could not be fetched")
)

// Record is the billing state of one user. Nil pointers mean "not set".
type Record struct {
	Subscribed      bool
	PlanName        *string
	SubscriptionEnd *time.Time
	TrialEnd        *time.Time
}

// NewTrialRecord is the record created at signup: unsubscribed, trial ending
// TrialPeriod after now.
func NewTrialRecord(now time.Time) Record {
	end := now.Add(TrialPeriod)
	return Record{TrialEnd: &end}
}

// FailClosedRecord grants nothing: unsubscribed, no plan, trial already over.
func FailClosedRecord() Record {
	var expired time.Time
	return Record{TrialEnd: &expired}
}

// PlanNameOrEmpty returns the plan name or "" when unset.
func (r Record) PlanNameOrEmpty() string {
	if r.PlanName == nil {
		return ""
	}
	return *r.PlanName
}

// Equal compares by value, including pointed-to fields.
func (r Record) Equal(o Record) bool {
	return r.Subscribed == o.Subscribed &&
		r.PlanNameOrEmpty() == o.PlanNameOrEmpty() &&
		(r.PlanName == nil) == (o.PlanName == nil) &&
		timePtrEqual(r.SubscriptionEnd, o.SubscriptionEnd) &&
		timePtrEqual(r.TrialEnd, o.TrialEnd)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Repository reads subscription records.
type Repository interface {
	// FindByUserID returns ErrRecordNotFound when the user has no record.
	FindByUserID(ctx context.Context, userID string) (*Record, error)
}

// Provisioner creates the signup trial record. Only development tooling uses it.
type Provisioner interface {
	CreateTrial(ctx context.Context, userID, email string, now time.Time) error
}
