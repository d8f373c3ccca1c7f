// Package access decides whether a caller may see a route or a feature.
// The decision functions are pure; rendering the outcome is the caller's job.
package access

import (
	"time"

	"github.com/vendora-inc/vendora/internal/domain/entitlement"
	"github.com/vendora-inc/vendora/internal/domain/identity"
	"github.com/vendora-inc/vendora/internal/domain/subscription"
)

// RouteState is the outcome of the route guard. Checks run in declaration order.
type RouteState string

const (
	RouteLoading               RouteState = "loading"
	RouteDeniedUnauthenticated RouteState = "denied_unauthenticated"
	RouteDeniedSubscription    RouteState = "denied_subscription"
	RouteDeniedRole            RouteState = "denied_role"
	RouteGranted               RouteState = "granted"
)

// FeatureState is the outcome of the feature guard.
type FeatureState string

const (
	FeatureLoading    FeatureState = "loading"
	FeatureDeniedTier FeatureState = "denied_tier"
	FeatureGranted    FeatureState = "granted"
)

// RouteRequirement is what a route demands of its caller.
type RouteRequirement struct {
	Route               string
	RequireActivePeriod bool
	// MinimumTier above TierTrial also demands that tier. Admin bypass applies.
	MinimumTier entitlement.Tier
	RequireRole bool
}

// RequiresSubscription reports whether the subscription record takes part in the decision.
func (r RouteRequirement) RequiresSubscription() bool {
	return r.RequireActivePeriod || r.MinimumTier > entitlement.TierTrial
}

// SubscriptionView is the resolver snapshot as seen by a guard. A nil Record
// that is not loading is treated as FailClosedRecord.
type SubscriptionView struct {
	Record    *subscription.Record
	IsLoading bool
}

func (v SubscriptionView) record() subscription.Record {
	if v.Record == nil {
		return subscription.FailClosedRecord()
	}
	return *v.Record
}

// RoleAuthorizer answers whether a role may enter a route.
type RoleAuthorizer interface {
	RoleAllowed(route string, role identity.OrgRole) bool
}

type RouteInput struct {
	Identity     identity.Identity
	Subscription SubscriptionView
	Requirement  RouteRequirement
	Now          time.Time
}

// ResolveRouteState runs the route guard state machine. The first matching
// state wins. Admins and super-admins skip the subscription and role checks
// but never the authentication check.
func ResolveRouteState(in RouteInput, roles RoleAuthorizer) RouteState {
	id := in.Identity
	req := in.Requirement

	if id.IsLoading {
		return RouteLoading
	}
	if id.IsAuthenticated && req.RequiresSubscription() && in.Subscription.IsLoading {
		return RouteLoading
	}
	if !id.IsAuthenticated {
		return RouteDeniedUnauthenticated
	}

	bypass := id.BypassesPlanChecks()

	if req.RequiresSubscription() && !bypass {
		rec := in.Subscription.record()
		if req.RequireActivePeriod && !entitlement.HasActivePeriodAccess(rec, in.Now) {
			return RouteDeniedSubscription
		}
		if req.MinimumTier > entitlement.TierTrial && !entitlement.HasAccess(rec, req.MinimumTier) {
			return RouteDeniedSubscription
		}
	}

	if req.RequireRole && !bypass {
		if id.OrgRole == nil || roles == nil || !roles.RoleAllowed(req.Route, *id.OrgRole) {
			return RouteDeniedRole
		}
	}

	return RouteGranted
}

type FeatureInput struct {
	Subscription SubscriptionView
	RequiredTier entitlement.Tier
}

// ResolveFeatureState runs the feature guard. It never looks at identity or
// role: a missing tier denies admins too.
func ResolveFeatureState(in FeatureInput) FeatureState {
	if in.Subscription.IsLoading {
		return FeatureLoading
	}
	if !entitlement.HasAccess(in.Subscription.record(), in.RequiredTier) {
		return FeatureDeniedTier
	}
	return FeatureGranted
}
