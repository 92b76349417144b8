package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
	"rentshare-backend-go/internal/models"
)

// BillingHandler handles the PayPal checkout endpoints.
type BillingHandler struct {
	payments core.PaymentService
	logger   *zap.Logger
}

// PaymentStateResponse is returned while a checkout has not reached a final state.
type PaymentStateResponse struct {
	OrderID string `json:"orderId"`
	State   string `json:"state"`
}

func NewBillingHandler(payments core.PaymentService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{payments: payments, logger: logger}
}

func (h *BillingHandler) mapBillingErrorToStatus(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, core.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrPlanNotFound.Error()})
	case errors.Is(err, core.ErrPlanNotPurchasable):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrPlanNotPurchasable.Error(), Action: "claim_plan"})
	case errors.Is(err, core.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrOrderNotFound.Error(), Action: "restart_checkout"})
	case errors.Is(err, core.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrTransactionNotFound.Error()})
	case errors.Is(err, core.ErrPaymentCancelled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrPaymentCancelled.Error(), Code: "payment_cancelled", Action: "restart_checkout"})
	case errors.Is(err, core.ErrPaymentNotCompleted):
		c.JSON(http.StatusPaymentRequired, ErrorResponse{Error: core.ErrPaymentNotCompleted.Error(), Code: "payment_not_completed"})
	case errors.Is(err, core.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found", Action: "initialize_profile"})
	case errors.Is(err, core.ErrPaymentProvider):
		respondRemote(c, h.logger, op, err)
	default:
		respondInternal(c, h.logger, op, err)
	}
}

// CreateOrder handles POST /api/v1/billing/paypal/orders.
func (h *BillingHandler) CreateOrder(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.payments.CreateOrder(c.Request.Context(), uid, req.PlanID)
	if err != nil {
		h.mapBillingErrorToStatus(c, "create_order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// Redirect handles POST /api/v1/billing/paypal/orders/:orderId/redirect.
// The client reports every URL its approval view navigates to; only the
// success return URL triggers a capture.
func (h *BillingHandler) Redirect(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.RedirectRequest
	if !bindJSON(c, &req) {
		return
	}
	orderID := c.Param("orderId")
	receipt, err := h.payments.HandleRedirect(c.Request.Context(), uid, orderID, req.URL)
	if errors.Is(err, core.ErrPaymentPending) {
		c.JSON(http.StatusAccepted, PaymentStateResponse{OrderID: orderID, State: core.RedirectPending.String()})
		return
	}
	if err != nil {
		h.mapBillingErrorToStatus(c, "handle_redirect", err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// GetTransaction handles GET /api/v1/billing/transactions/:transactionId.
func (h *BillingHandler) GetTransaction(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	receipt, err := h.payments.GetReceipt(c.Request.Context(), uid, c.Param("transactionId"))
	if err != nil {
		h.mapBillingErrorToStatus(c, "get_transaction", err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}
