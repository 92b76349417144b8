package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
	"rentshare-backend-go/internal/models"
)

// PlanHandler exposes plans and quota checks.
type PlanHandler struct {
	quota  core.QuotaService
	logger *zap.Logger
}

func NewPlanHandler(quota core.QuotaService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{quota: quota, logger: logger}
}

func (h *PlanHandler) mapPlanErrorToStatus(c *gin.Context, op string, err error) {
	if status, body, ok := quotaError(err); ok {
		c.JSON(status, body)
		return
	}
	switch {
	case errors.Is(err, core.ErrPlanAlreadyClaimed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrPlanAlreadyClaimed.Error(), Code: "plan_exists"})
	case errors.Is(err, core.ErrFreePlanUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrFreePlanUnavailable.Error()})
	case errors.Is(err, core.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found", Action: "initialize_profile"})
	default:
		respondInternal(c, h.logger, op, err)
	}
}

// ListPlans handles GET /api/v1/plans.
func (h *PlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.quota.ListPlans(c.Request.Context())
	if err != nil {
		h.mapPlanErrorToStatus(c, "list_plans", err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// ClaimFree handles POST /api/v1/plans/claim-free.
func (h *PlanHandler) ClaimFree(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	plan, err := h.quota.ClaimFreePlan(c.Request.Context(), uid)
	if err != nil {
		h.mapPlanErrorToStatus(c, "claim_free", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// CheckLimits handles POST /api/v1/plans/check-limits. It consumes one unit of the action's quota.
func (h *PlanHandler) CheckLimits(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CheckLimitsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.quota.CheckAndUpdateLimits(c.Request.Context(), uid, req.Action)
	if err != nil {
		h.mapPlanErrorToStatus(c, "check_limits", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reconcile handles POST /api/v1/plans/reconcile.
func (h *PlanHandler) Reconcile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	plan, err := h.quota.ReconcileUsage(c.Request.Context(), uid)
	if err != nil {
		h.mapPlanErrorToStatus(c, "reconcile", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
