package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/application/subscription"
	"github.com/vendora-inc/vendora/internal/domain/entitlement"
	domain "github.com/vendora-inc/vendora/internal/domain/subscription"
	"github.com/vendora-inc/vendora/internal/interfaces/http/middleware"
	"github.com/vendora-inc/vendora/internal/shared/constants"
	"github.com/vendora-inc/vendora/internal/shared/logger"
	"github.com/vendora-inc/vendora/internal/shared/utils"
)

// EntitlementsResponse describes what the caller is entitled to right now.
type EntitlementsResponse struct {
	UserID             string `json:"user_id"`
	OrgID              string `json:"org_id,omitempty"`
	OrgRole            string `json:"org_role,omitempty"`
	IsSuperAdmin       bool   `json:"is_super_admin"`
	BypassesPlanChecks bool   `json:"bypasses_plan_checks"`
	Loading            bool   `json:"loading"`
	Refreshing         bool   `json:"refreshing"`

	// Degraded is set when the summary comes from the fail-closed fallback.
	Degraded     bool                 `json:"degraded"`
	Entitlements *entitlement.Summary `json:"entitlements,omitempty"`
}

// EntitlementHandler serves the caller's entitlement summary.
type EntitlementHandler struct {
	logger logger.Interface
	now    func() time.Time
}

func NewEntitlementHandler(logger logger.Interface) *EntitlementHandler {
	return &EntitlementHandler{
		logger: logger,
		now:    time.Now,
	}
}

// GetMine godoc
// @Summary Get my entitlements
// @Description Tier, trial window and active-period flag of the signed-in caller
// @Security Bearer
// @Tags entitlements
// @Produce json
// @Success 200 {object} utils.APIResponse{data=EntitlementsResponse} "Entitlements"
// @Success 202 {object} utils.APIResponse{data=EntitlementsResponse} "Subscription still loading"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Router /api/entitlements/me [get]
func (h *EntitlementHandler) GetMine(c *gin.Context) {
	ac, err := signedInAccess(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err, false)
		return
	}

	resp := buildEntitlements(ac, ac.Subscription, h.now())
	if resp.Loading {
		c.Header(constants.HeaderRetryAfter, "1")
		utils.SuccessResponse(c, http.StatusAccepted, "Subscription is loading", resp)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

func buildEntitlements(ac *middleware.AccessContext, snap subscription.Snapshot, now time.Time) EntitlementsResponse {
	id := ac.Identity
	resp := EntitlementsResponse{
		UserID:             id.UserID,
		OrgID:              id.OrgID,
		IsSuperAdmin:       id.IsSuperAdmin,
		BypassesPlanChecks: id.BypassesPlanChecks(),
		Loading:            snap.IsLoading,
		Refreshing:         snap.Refreshing,
		Degraded:           snap.Err != nil,
	}
	if id.OrgRole != nil {
		resp.OrgRole = id.OrgRole.String()
	}
	if snap.IsLoading {
		return resp
	}

	rec := domain.FailClosedRecord()
	if snap.Record != nil {
		rec = *snap.Record
	}
	summary := entitlement.Summarize(rec, now)
	resp.Entitlements = &summary
	return resp
}
