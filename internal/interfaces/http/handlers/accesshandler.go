package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/utils"
)

// AccessHandler reports guard decisions and serves guarded placeholders.
type AccessHandler struct {
	routes   routeDecider
	features featureDecider
}

func NewAccessHandler(routes routeDecider, features featureDecider) *AccessHandler {
	return &AccessHandler{routes: routes, features: features}
}

// GetState godoc
// @Summary Get access state
// @Description Evaluate the route guard (route=) or the feature guard (feature=) for the caller without enforcing it
// @Tags access
// @Produce json
// @Param route query string false "Route key"
// @Param feature query string false "Feature key"
// @Success 200 {object} utils.APIResponse{data=middleware.GuardDecision} "Decision"
// @Failure 400 {object} utils.APIResponse "Neither route nor feature given"
// @Failure 404 {object} utils.APIResponse "Unknown key"
// @Router /api/access/state [get]
func (h *AccessHandler) GetState(c *gin.Context) {
	if key := c.Query("route"); key != "" {
		decision, ok := h.routes.Decide(c, key)
		if !ok {
			utils.ErrorResponseWithError(c, errors.NewNotFoundError("Unknown route", key), true)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "", decision)
		return
	}
	if key := c.Query("feature"); key != "" {
		decision, ok := h.features.Decide(c, key)
		if !ok {
			utils.ErrorResponseWithError(c, errors.NewNotFoundError("Unknown feature", key), true)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "", decision)
		return
	}
	utils.ErrorResponseWithError(c, errors.NewBadRequestError("Provide a route or feature key"), true)
}

// ShowPage godoc
// @Summary Open a guarded page
// @Description Runs the route guard for the page key; granted callers receive the page descriptor
// @Security Bearer
// @Tags access
// @Produce json
// @Param route path string true "Route key"
// @Success 200 {object} utils.APIResponse "Granted"
// @Success 202 {object} utils.APIResponse{data=middleware.GuardDecision} "Loading"
// @Failure 401 {object} utils.APIResponse{data=middleware.GuardDecision} "Sign in required"
// @Failure 402 {object} utils.APIResponse{data=middleware.GuardDecision} "Subscription required"
// @Failure 403 {object} utils.APIResponse{data=middleware.GuardDecision} "Role not allowed"
// @Router /api/pages/{route} [get]
func (h *AccessHandler) ShowPage(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"route": c.Param("route"),
		"state": "granted",
	})
}

// ShowFeature godoc
// @Summary Open a tier-gated feature
// @Description Runs the feature guard for the feature key
// @Security Bearer
// @Tags access
// @Produce json
// @Param feature path string true "Feature key"
// @Success 200 {object} utils.APIResponse "Granted"
// @Success 202 {object} utils.APIResponse{data=middleware.GuardDecision} "Loading"
// @Failure 402 {object} utils.APIResponse{data=middleware.GuardDecision} "Upgrade required"
// @Router /api/features/{feature} [get]
func (h *AccessHandler) ShowFeature(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"feature": c.Param("feature"),
		"state":   "granted",
	})
}
