package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/shared/logger"
	"github.com/vendora-inc/vendora/internal/shared/utils"
)

// SubscriptionHandler lets a session force a re-read of its subscription record.
type SubscriptionHandler struct {
	exposeDetails bool
	logger        logger.Interface
	now           func() time.Time
}

func NewSubscriptionHandler(exposeDetails bool, logger logger.Interface) *SubscriptionHandler {
	return &SubscriptionHandler{
		exposeDetails: exposeDetails,
		logger:        logger,
		now:           time.Now,
	}
}

// Refresh godoc
// @Summary Refresh subscription
// @Description Re-fetch the caller's subscription record, bypassing caches
// @Security Bearer
// @Tags subscription
// @Produce json
// @Success 200 {object} utils.APIResponse{data=EntitlementsResponse} "Refreshed entitlements"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 503 {object} utils.APIResponse "Subscription status is unavailable"
// @Router /api/subscription/refresh [post]
func (h *SubscriptionHandler) Refresh(c *gin.Context) {
	ac, err := signedInScope(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err, h.exposeDetails)
		return
	}

	if err := ac.Scope.Refresh(c.Request.Context()); err != nil {
		h.logger.Warnw("subscription refresh failed", "user_id", ac.Identity.UserID, "error", err)
		utils.ErrorResponseWithError(c, err, h.exposeDetails)
		return
	}

	snap := ac.Scope.Resolve(c.Request.Context())
	utils.SuccessResponse(c, http.StatusOK, "", buildEntitlements(ac, snap, h.now()))
}
