package constants

const (
	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderRetryAfter    = "Retry-After"
	HeaderAccept        = "Accept"

	// Content Types
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html"

	// Context keys
	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"
	ContextKeyAccess    = "access_context"

	// Last guard outcome of the request, for request logs.
	ContextKeyRouteState   = "route_state"
	ContextKeyFeatureState = "feature_state"

	// Guard response error types
	GuardErrorLoading              = "loading"
	GuardErrorSubscriptionRequired = "subscription_required"
	GuardErrorUpgradeRequired      = "upgrade_required"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgUnauthorized        = "Unauthorized access"
	ErrMsgForbidden           = "Access forbidden"
)
