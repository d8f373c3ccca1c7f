package middleware

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/domain/access"
	"github.com/vendora-inc/vendora/internal/domain/entitlement"
	"github.com/vendora-inc/vendora/internal/domain/identity"
	"github.com/vendora-inc/vendora/internal/domain/subscription"
	"github.com/vendora-inc/vendora/internal/infrastructure/template"
	"github.com/vendora-inc/vendora/internal/shared/constants"
	"github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/logger"
	"github.com/vendora-inc/vendora/internal/shared/utils"
)

// RequirementCatalog looks up declared route and feature requirements.
type RequirementCatalog interface {
	Route(key string) (access.RouteRequirement, bool)
	Feature(key string) (entitlement.Tier, bool)
}

type PromptRenderer interface {
	Render(kind template.PromptKind, data template.PromptData) (template.Prompt, error)
}

// DecisionRecorder counts guard outcomes.
type DecisionRecorder interface {
	ObserveRouteDecision(route, state string)
	ObserveFeatureDecision(feature, state string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRouteDecision(string, string)   {}
func (nopRecorder) ObserveFeatureDecision(string, string) {}

// GuardOptions configures how denials are rendered.
type GuardOptions struct {
	SignInURL  string
	RetryAfter time.Duration
}

// GuardDecision is the JSON body of every non-granted guard response, and of
// the access state endpoint.
type GuardDecision struct {
	State             string           `json:"state"`
	Route             string           `json:"route,omitempty"`
	Feature           string           `json:"feature,omitempty"`
	RequiredTier      string           `json:"required_tier,omitempty"`
	SignInURL         string           `json:"sign_in_url,omitempty"`
	RetryAfterSeconds int              `json:"retry_after_seconds,omitempty"`
	Prompt            *template.Prompt `json:"prompt,omitempty"`
}

type guardBase struct {
	catalog  RequirementCatalog
	prompts  PromptRenderer
	recorder DecisionRecorder
	opts     GuardOptions
	now      func() time.Time
	logger   logger.Interface
}

func newGuardBase(catalog RequirementCatalog, prompts PromptRenderer, recorder DecisionRecorder, opts GuardOptions, log logger.Interface) guardBase {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return guardBase{
		catalog:  catalog,
		prompts:  prompts,
		recorder: recorder,
		opts:     opts,
		now:      time.Now,
		logger:   log,
	}
}

func (g *guardBase) accessContext(c *gin.Context) *AccessContext {
	if ac, ok := GetAccessContext(c); ok {
		return ac
	}
	g.logger.Warnw("access context missing, treating caller as anonymous", "path", c.Request.URL.Path)
	return &AccessContext{Identity: identity.Anonymous()}
}

func (g *guardBase) retryAfterSeconds() int {
	return int(math.Ceil(g.opts.RetryAfter.Seconds()))
}

func (g *guardBase) renderLoading(c *gin.Context, decision GuardDecision) {
	decision.RetryAfterSeconds = g.retryAfterSeconds()
	c.Header(constants.HeaderRetryAfter, strconv.Itoa(decision.RetryAfterSeconds))
	utils.ErrorResponseWithData(c, http.StatusAccepted, constants.GuardErrorLoading, "Access is still being resolved", decision)
	c.Abort()
}

// prompt renders the upgrade copy. A rendering failure is logged and the
// denial goes out without a prompt.
func (g *guardBase) prompt(kind template.PromptKind, target string, required entitlement.Tier, rec subscription.Record) *template.Prompt {
	if g.prompts == nil {
		return nil
	}
	now := g.now()
	data := template.PromptData{
		Target:             target,
		CurrentTier:        entitlement.PlanTier(rec).String(),
		TrialDaysRemaining: entitlement.TrialDaysRemaining(rec, now),
		TrialEnded:         rec.TrialEnd != nil && !entitlement.IsInTrial(rec, now),
	}
	if kind == template.PromptUpgrade {
		data.RequiredTier = required.String()
	}
	p, err := g.prompts.Render(kind, data)
	if err != nil {
		g.logger.Errorw("failed to render prompt", "kind", kind, "target", target, "error", err)
		return nil
	}
	return &p
}

func recordOf(view access.SubscriptionView) subscription.Record {
	if view.Record == nil {
		return subscription.FailClosedRecord()
	}
	return *view.Record
}

// RouteGuard enforces the route state machine.
type RouteGuard struct {
	guardBase
	roles access.RoleAuthorizer
}

func NewRouteGuard(
	catalog RequirementCatalog,
	roles access.RoleAuthorizer,
	prompts PromptRenderer,
	recorder DecisionRecorder,
	opts GuardOptions,
	logger logger.Interface,
) *RouteGuard {
	return &RouteGuard{
		guardBase: newGuardBase(catalog, prompts, recorder, opts, logger),
		roles:     roles,
	}
}

// Evaluate resolves the route state for the request without rendering it.
func (g *RouteGuard) Evaluate(c *gin.Context, req access.RouteRequirement) access.RouteState {
	ac := g.accessContext(c)
	return access.ResolveRouteState(access.RouteInput{
		Identity:     ac.Identity,
		Subscription: ac.View(),
		Requirement:  req,
		Now:          g.now(),
	}, g.roles)
}

// Decide evaluates a declared route and builds its decision body. ok is
// false for an unknown route key.
func (g *RouteGuard) Decide(c *gin.Context, routeKey string) (GuardDecision, bool) {
	req, ok := g.catalog.Route(routeKey)
	if !ok {
		return GuardDecision{}, false
	}
	return g.decide(c, req), true
}

func (g *RouteGuard) decide(c *gin.Context, req access.RouteRequirement) GuardDecision {
	state := g.Evaluate(c, req)
	g.recorder.ObserveRouteDecision(req.Route, string(state))
	c.Set(constants.ContextKeyRouteState, string(state))

	decision := GuardDecision{State: string(state), Route: req.Route}
	switch state {
	case access.RouteLoading:
		decision.RetryAfterSeconds = g.retryAfterSeconds()
	case access.RouteDeniedUnauthenticated:
		decision.SignInURL = g.signInURL(c)
	case access.RouteDeniedSubscription:
		rec := recordOf(g.accessContext(c).View())
		if req.MinimumTier > entitlement.TierTrial {
			decision.RequiredTier = req.MinimumTier.String()
		}
		if req.RequireActivePeriod && !entitlement.HasActivePeriodAccess(rec, g.now()) {
			decision.Prompt = g.prompt(template.PromptExpired, req.Route, req.MinimumTier, rec)
		} else {
			decision.Prompt = g.prompt(template.PromptUpgrade, req.Route, req.MinimumTier, rec)
		}
	}
	return decision
}

// Require guards a handler with the declared route key.
func (g *RouteGuard) Require(routeKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := g.catalog.Route(routeKey)
		if !ok {
			g.logger.Errorw("route guard references undeclared route", "route", routeKey)
			utils.ErrorResponseWithError(c, errors.NewInternalError("Route policy missing"), false)
			c.Abort()
			return
		}
		g.enforce(c, req)
	}
}

// RequireFromParam guards with the route key taken from a path parameter.
// Undeclared keys are 404.
func (g *RouteGuard) RequireFromParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param(param)
		req, ok := g.catalog.Route(key)
		if !ok {
			utils.ErrorResponseWithError(c, errors.NewNotFoundError("Unknown route", key), true)
			c.Abort()
			return
		}
		g.enforce(c, req)
	}
}

// Authenticated only demands a signed-in caller.
func (g *RouteGuard) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.enforce(c, access.RouteRequirement{Route: "authenticated"})
	}
}

func (g *RouteGuard) enforce(c *gin.Context, req access.RouteRequirement) {
	decision := g.decide(c, req)

	switch access.RouteState(decision.State) {
	case access.RouteGranted:
		c.Next()
	case access.RouteLoading:
		g.renderLoading(c, decision)
	case access.RouteDeniedUnauthenticated:
		if wantsHTML(c) {
			c.Redirect(http.StatusFound, decision.SignInURL)
			c.Abort()
			return
		}
		utils.ErrorResponseWithData(c, http.StatusUnauthorized, "unauthorized", "Sign in to continue", decision)
		c.Abort()
	case access.RouteDeniedSubscription:
		utils.ErrorResponseWithData(c, http.StatusPaymentRequired, constants.GuardErrorSubscriptionRequired,
			"An active subscription is required", decision)
		c.Abort()
	case access.RouteDeniedRole:
		utils.ErrorResponseWithData(c, http.StatusForbidden, "forbidden",
			"Your role does not allow access to this page", decision)
		c.Abort()
	}
}

func (g *RouteGuard) signInURL(c *gin.Context) string {
	u, err := url.Parse(g.opts.SignInURL)
	if err != nil {
		return g.opts.SignInURL
	}
	q := u.Query()
	q.Set("redirect_to", c.Request.URL.RequestURI())
	u.RawQuery = q.Encode()
	return u.String()
}

// FeatureGuard enforces the tier-only feature state machine. It has no
// authentication check and no role bypass.
type FeatureGuard struct {
	guardBase
}

func NewFeatureGuard(
	catalog RequirementCatalog,
	prompts PromptRenderer,
	recorder DecisionRecorder,
	opts GuardOptions,
	logger logger.Interface,
) *FeatureGuard {
	return &FeatureGuard{guardBase: newGuardBase(catalog, prompts, recorder, opts, logger)}
}

func (g *FeatureGuard) Evaluate(c *gin.Context, required entitlement.Tier) access.FeatureState {
	ac := g.accessContext(c)
	return access.ResolveFeatureState(access.FeatureInput{
		Subscription: ac.View(),
		RequiredTier: required,
	})
}

// Decide evaluates a declared feature. ok is false for an unknown key.
func (g *FeatureGuard) Decide(c *gin.Context, featureKey string) (GuardDecision, bool) {
	tier, ok := g.catalog.Feature(featureKey)
	if !ok {
		return GuardDecision{}, false
	}
	return g.decide(c, featureKey, tier), true
}

func (g *FeatureGuard) decide(c *gin.Context, featureKey string, required entitlement.Tier) GuardDecision {
	state := g.Evaluate(c, required)
	g.recorder.ObserveFeatureDecision(featureKey, string(state))
	c.Set(constants.ContextKeyFeatureState, string(state))

	decision := GuardDecision{
		State:        string(state),
		Feature:      featureKey,
		RequiredTier: required.String(),
	}
	switch state {
	case access.FeatureLoading:
		decision.RetryAfterSeconds = g.retryAfterSeconds()
	case access.FeatureDeniedTier:
		rec := recordOf(g.accessContext(c).View())
		decision.Prompt = g.prompt(template.PromptUpgrade, featureKey, required, rec)
	}
	return decision
}

func (g *FeatureGuard) Require(featureKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tier, ok := g.catalog.Feature(featureKey)
		if !ok {
			g.logger.Errorw("feature guard references undeclared feature", "feature", featureKey)
			utils.ErrorResponseWithError(c, errors.NewInternalError("Feature policy missing"), false)
			c.Abort()
			return
		}
		g.enforce(c, featureKey, tier)
	}
}

func (g *FeatureGuard) RequireFromParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param(param)
		tier, ok := g.catalog.Feature(key)
		if !ok {
			utils.ErrorResponseWithError(c, errors.NewNotFoundError("Unknown feature", key), true)
			c.Abort()
			return
		}
		g.enforce(c, key, tier)
	}
}

func (g *FeatureGuard) enforce(c *gin.Context, featureKey string, required entitlement.Tier) {
	decision := g.decide(c, featureKey, required)

	switch access.FeatureState(decision.State) {
	case access.FeatureGranted:
		c.Next()
	case access.FeatureLoading:
		g.renderLoading(c, decision)
	case access.FeatureDeniedTier:
		utils.ErrorResponseWithData(c, http.StatusPaymentRequired, constants.GuardErrorUpgradeRequired,
			"Your plan does not include this feature", decision)
		c.Abort()
	}
}

// wantsHTML reports a browser navigation rather than an API call.
func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader(constants.HeaderAccept)
	return strings.Contains(accept, constants.ContentTypeHTML) && !strings.Contains(accept, constants.ContentTypeJSON)
}
