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

// ItemHandler handles listings and image classification.
type ItemHandler struct {
	listings core.ListingService
	rentals  core.RentalService
	logger   *zap.Logger
}

func NewItemHandler(listings core.ListingService, rentals core.RentalService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{listings: listings, rentals: rentals, logger: logger}
}

func (h *ItemHandler) mapItemErrorToStatus(c *gin.Context, op string, err error) {
	if status, body, ok := quotaError(err); ok {
		c.JSON(status, body)
		return
	}
	switch {
	case errors.Is(err, core.ErrItemNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrItemNotFound.Error()})
	case errors.Is(err, core.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No active request for this item"})
	case errors.Is(err, core.ErrNotItemOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: core.ErrNotItemOwner.Error()})
	case errors.Is(err, core.ErrItemUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrItemUnavailable.Error(), Code: "item_unavailable"})
	case errors.Is(err, core.ErrTooManyImages):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrTooManyImages.Error()})
	case errors.Is(err, core.ErrUnsupportedImage):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: core.ErrUnsupportedImage.Error()})
	case errors.Is(err, core.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found", Action: "initialize_profile"})
	case errors.Is(err, core.ErrClassifierFailed):
		respondRemote(c, h.logger, op, err)
	default:
		respondInternal(c, h.logger, op, err)
	}
}

// CreateItem handles POST /api/v1/items. Publishing consumes one list slot.
func (h *ItemHandler) CreateItem(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CreateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.listings.CreateListing(c.Request.Context(), uid, req)
	if err != nil {
		h.mapItemErrorToStatus(c, "create_item", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// SearchItems handles GET /api/v1/items?category=&q=&limit=&startAfter=.
func (h *ItemHandler) SearchItems(c *gin.Context) {
	items, err := h.listings.SearchListings(c.Request.Context(), models.ItemSearch{
		Category:   strings.TrimSpace(c.Query("category")),
		Keyword:    strings.TrimSpace(c.Query("q")),
		Limit:      queryLimit(c),
		StartAfter: c.Query("startAfter"),
	})
	if err != nil {
		h.mapItemErrorToStatus(c, "search_items", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// ListMine handles GET /api/v1/items/mine.
func (h *ItemHandler) ListMine(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.listings.ListMyListings(c.Request.Context(), uid, queryLimit(c))
	if err != nil {
		h.mapItemErrorToStatus(c, "list_mine", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetItem handles GET /api/v1/items/:itemId.
func (h *ItemHandler) GetItem(c *gin.Context) {
	item, err := h.listings.GetListing(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		h.mapItemErrorToStatus(c, "get_item", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// UploadImage handles POST /api/v1/items/:itemId/images (multipart field "image").
func (h *ItemHandler) UploadImage(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	upload, ok := readUpload(c, "image")
	if !ok {
		return
	}
	item, err := h.listings.UploadItemImage(c.Request.Context(), uid, c.Param("itemId"), upload)
	if err != nil {
		h.mapItemErrorToStatus(c, "upload_item_image", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /api/v1/items/:itemId. The list slot is released.
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.listings.DeleteListing(c.Request.Context(), uid, c.Param("itemId")); err != nil {
		h.mapItemErrorToStatus(c, "delete_item", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MyRequest handles GET /api/v1/items/:itemId/my-request.
func (h *ItemHandler) MyRequest(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	req, err := h.rentals.ActiveRequestForItem(c.Request.Context(), uid, c.Param("itemId"))
	if err != nil {
		h.mapItemErrorToStatus(c, "my_request", err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Classify handles POST /api/v1/classify (multipart field "image").
func (h *ItemHandler) Classify(c *gin.Context) {
	upload, ok := readUpload(c, "image")
	if !ok {
		return
	}
	predictions, err := h.listings.ClassifyImage(c.Request.Context(), upload)
	if err != nil {
		h.mapItemErrorToStatus(c, "classify", err)
		return
	}
	c.JSON(http.StatusOK, predictions)
}
