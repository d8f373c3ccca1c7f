package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/application/billing/usecases"
	"github.com/vendora-inc/vendora/internal/shared/constants"
	"github.com/vendora-inc/vendora/internal/shared/errors"
	"github.com/vendora-inc/vendora/internal/shared/logger"
	"github.com/vendora-inc/vendora/internal/shared/utils"
)

type CreateCheckoutRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}

type CreatePortalRequest struct {
	// ReturnOrigin falls back to the Origin header when empty.
	ReturnOrigin string `json:"return_origin"`
}

// BillingHandler handles hosted checkout and portal sessions.
type BillingHandler struct {
	createCheckoutUC createCheckoutSessionUseCase
	createPortalUC   createPortalSessionUseCase
	confirmUC        confirmCheckoutUseCase
	exposeDetails    bool
	logger           logger.Interface
}

func NewBillingHandler(
	createCheckoutUC createCheckoutSessionUseCase,
	createPortalUC createPortalSessionUseCase,
	confirmUC confirmCheckoutUseCase,
	exposeDetails bool,
	logger logger.Interface,
) *BillingHandler {
	return &BillingHandler{
		createCheckoutUC: createCheckoutUC,
		createPortalUC:   createPortalUC,
		confirmUC:        confirmUC,
		exposeDetails:    exposeDetails,
		logger:           logger,
	}
}

// CreateCheckout godoc
// @Summary Create checkout session
// @Description Start a hosted checkout for an allowlisted subscription price
// @Security Bearer
// @Tags billing
// @Accept json
// @Produce json
// @Param request body CreateCheckoutRequest true "Price to subscribe to"
// @Success 200 {object} utils.APIResponse{data=usecases.CreateCheckoutSessionResult} "Checkout URL"
// @Failure 400 {object} utils.APIResponse "Invalid price identifier"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 502 {object} utils.APIResponse "Billing provider error"
// @Failure 503 {object} utils.APIResponse "Billing is not configured"
// @Router /api/billing/checkout [post]
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	ac, err := signedInAccess(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err, h.exposeDetails)
		return
	}

	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid checkout request body", "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("Invalid request body", err.Error()), h.exposeDetails)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err, h.exposeDetails)
		return
	}

	result, err := h.createCheckoutUC.Execute(c.Request.Context(), usecases.CreateCheckoutSessionCommand{
		UserID:  ac.Identity.UserID,
		Email:   ac.Identity.Email,
		PriceID: req.PriceID,
	})
	if err != nil {
		h.logger.Warnw("checkout session creation failed", "user_id", ac.Identity.UserID, "error", err)
		utils.ErrorResponseWithError(c, err, h.exposeDetails)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// CreatePortal godoc
// @Summary Create customer portal session
// @Description Open the billing self-service portal for the caller's billing account
// @Security Bearer
// @Tags billing
// @Accept json
// @Produce json
// @Param request body CreatePortalRequest false "Return origin"
// @Success 200 {object} utils.APIResponse{data=usecases.CreatePortalSessionResult} "Portal URL"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 404 {object} utils.APIResponse "No billing account found"
// @Failure 502 {object} utils.APIResponse "Billing provider error"
// @Router /api/billing/portal [post]
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	ac, err := signedInAccess(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err, h.exposeDetails)
		return
	}

	var req CreatePortalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponseWithError(c, errors.NewValidationError("Invalid request body", err.Error()), h.exposeDetails)
			return
		}
	}
	origin := req.ReturnOrigin
	if origin == "" {
		origin = c.GetHeader("Origin")
	}

	result, err := h.createPortalUC.Execute(c.Request.Context(), usecases.CreatePortalSessionCommand{
		UserID: ac.Identity.UserID,
		Email:  ac.Identity.Email,
		Origin: origin,
	})
	if err != nil {
		h.logger.Warnw("portal session creation failed", "user_id", ac.Identity.UserID, "error", err)
		utils.ErrorResponseWithError(c, err, h.exposeDetails)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// ConfirmCheckout godoc
// @Summary Confirm checkout
// @Description Force a subscription refresh after returning from checkout. Poll while status is activating.
// @Security Bearer
// @Tags billing
// @Produce json
// @Success 200 {object} utils.APIResponse{data=usecases.ConfirmCheckoutResult} "Subscription active"
// @Success 202 {object} utils.APIResponse{data=usecases.ConfirmCheckoutResult} "Subscription activating"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 503 {object} utils.APIResponse "Subscription status is unavailable"
// @Router /api/billing/checkout/confirm [post]
func (h *BillingHandler) ConfirmCheckout(c *gin.Context) {
	ac, err := signedInScope(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err, h.exposeDetails)
		return
	}

	result, err := h.confirmUC.Execute(c.Request.Context(), ac.Scope)
	if err != nil {
		utils.ErrorResponseWithError(c, err, h.exposeDetails)
		return
	}

	if result.Status == usecases.CheckoutStatusActivating {
		c.Header(constants.HeaderRetryAfter, "2")
		utils.SuccessResponse(c, http.StatusAccepted, "Subscription is activating", result)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Subscription is active", result)
}
