package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/shared/logger"
	"github.com/vendora-inc/vendora/internal/shared/utils"
	"github.com/vendora-inc/vendora/internal/shared/version"
)

// HealthCheck checks one dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	checks []HealthCheck
	logger logger.Interface
}

func NewHealthHandler(logger logger.Interface, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// Check godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} utils.APIResponse "Healthy"
// @Failure 503 {object} utils.APIResponse "A dependency is down"
// @Router /healthz [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warnw("health check failed", "dependency", check.Name, "error", err)
			deps[check.Name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[check.Name] = "up"
	}

	body := gin.H{
		"dependencies": deps,
		"version":      version.Get(),
	}
	if status != http.StatusOK {
		utils.ErrorResponseWithData(c, status, "unhealthy", "A dependency is unavailable", body)
		return
	}
	utils.SuccessResponse(c, status, "", body)
}
