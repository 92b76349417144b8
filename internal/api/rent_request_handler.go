package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
	"rentshare-backend-go/internal/models"
)

// RentRequestHandler drives rent requests through their lifecycle.
type RentRequestHandler struct {
	rentals core.RentalService
	logger  *zap.Logger
}

func NewRentRequestHandler(rentals core.RentalService, logger *zap.Logger) *RentRequestHandler {
	return &RentRequestHandler{rentals: rentals, logger: logger}
}

func (h *RentRequestHandler) mapRentErrorToStatus(c *gin.Context, op string, err error) {
	if status, body, ok := quotaError(err); ok {
		c.JSON(status, body)
		return
	}
	switch {
	case errors.Is(err, core.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrRequestNotFound.Error()})
	case errors.Is(err, core.ErrItemNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrItemNotFound.Error()})
	case errors.Is(err, core.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrDuplicateRequest.Error(), Code: "duplicate_request", Action: "view_existing_request"})
	case errors.Is(err, core.ErrOwnItem):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: core.ErrOwnItem.Error(), Code: "own_item"})
	case errors.Is(err, core.ErrNotRequestOwner), errors.Is(err, core.ErrNotRequester):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrInvalidTransition.Error(), Code: "invalid_transition", Details: err.Error()})
	case errors.Is(err, core.ErrItemUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrItemUnavailable.Error(), Code: "item_unavailable"})
	case errors.Is(err, core.ErrInvalidRentalDates):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrInvalidRentalDates.Error()})
	case errors.Is(err, core.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found", Action: "initialize_profile"})
	default:
		respondInternal(c, h.logger, op, err)
	}
}

// parseStatuses reads ?status=pending,accepted. Unknown values are a 400.
func parseStatuses(c *gin.Context) ([]models.RentRequestStatus, bool) {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		return nil, true
	}
	var out []models.RentRequestStatus
	for _, s := range strings.Split(raw, ",") {
		st := models.RentRequestStatus(strings.ToLower(strings.TrimSpace(s))).Normalize()
		switch st {
		case models.RentStatusPending, models.RentStatusAccepted, models.RentStatusRejected,
			models.RentStatusCancelled, models.RentStatusCompleted:
			out = append(out, st)
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown status filter", Details: s})
			return nil, false
		}
	}
	return out, true
}

// Submit handles POST /api/v1/rent-requests.
func (h *RentRequestHandler) Submit(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CreateRentRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.rentals.SubmitRequest(c.Request.Context(), uid, req)
	if err != nil {
		h.mapRentErrorToStatus(c, "submit_request", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListOutgoing handles GET /api/v1/rent-requests/outgoing.
func (h *RentRequestHandler) ListOutgoing(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	statuses, ok := parseStatuses(c)
	if !ok {
		return
	}
	list, err := h.rentals.ListOutgoing(c.Request.Context(), uid, statuses, queryLimit(c))
	if err != nil {
		h.mapRentErrorToStatus(c, "list_outgoing", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListIncoming handles GET /api/v1/rent-requests/incoming.
func (h *RentRequestHandler) ListIncoming(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	statuses, ok := parseStatuses(c)
	if !ok {
		return
	}
	list, err := h.rentals.ListIncoming(c.Request.Context(), uid, statuses, queryLimit(c))
	if err != nil {
		h.mapRentErrorToStatus(c, "list_incoming", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /api/v1/rent-requests/:id.
func (h *RentRequestHandler) Get(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	req, err := h.rentals.GetRequest(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.mapRentErrorToStatus(c, "get_request", err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Edit handles PUT /api/v1/rent-requests/:id. Only pending requests can be edited.
func (h *RentRequestHandler) Edit(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var body models.UpdateRentRequest
	if !bindJSON(c, &body) {
		return
	}
	req, err := h.rentals.EditRequest(c.Request.Context(), uid, c.Param("id"), body)
	if err != nil {
		h.mapRentErrorToStatus(c, "edit_request", err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Accept handles POST /api/v1/rent-requests/:id/accept.
func (h *RentRequestHandler) Accept(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	req, err := h.rentals.AcceptRequest(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.mapRentErrorToStatus(c, "accept_request", err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Reject handles POST /api/v1/rent-requests/:id/reject.
func (h *RentRequestHandler) Reject(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	req, err := h.rentals.RejectRequest(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.mapRentErrorToStatus(c, "reject_request", err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Cancel handles DELETE /api/v1/rent-requests/:id.
func (h *RentRequestHandler) Cancel(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.rentals.CancelRequest(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.mapRentErrorToStatus(c, "cancel_request", err)
		return
	}
	c.Status(http.StatusNoContent)
}
