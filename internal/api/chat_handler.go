package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
	"rentshare-backend-go/internal/models"
)

// ChatHandler exposes chats, messages and condition reports.
type ChatHandler struct {
	chats  core.ChatService
	logger *zap.Logger
}

func NewChatHandler(chats core.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, logger: logger}
}

func (h *ChatHandler) mapChatErrorToStatus(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, core.ErrChatNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrChatNotFound.Error()})
	case errors.Is(err, core.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrMessageNotFound.Error()})
	case errors.Is(err, core.ErrNotParticipant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: core.ErrNotParticipant.Error()})
	case errors.Is(err, core.ErrNotRenter):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: core.ErrNotRenter.Error()})
	case errors.Is(err, core.ErrInvalidMessage):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrInvalidMessage.Error()})
	case errors.Is(err, core.ErrInvalidAssessment):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrInvalidAssessment.Error(), Details: err.Error()})
	case errors.Is(err, core.ErrNotAssessment):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrNotAssessment.Error()})
	case errors.Is(err, core.ErrAssessmentLocked):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrAssessmentLocked.Error(), Code: "assessment_locked"})
	case errors.Is(err, core.ErrNoLinkedRequest):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrNoLinkedRequest.Error()})
	case errors.Is(err, core.ErrUnsupportedImage):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: core.ErrUnsupportedImage.Error()})
	default:
		respondInternal(c, h.logger, op, err)
	}
}

// ListChats handles GET /api/v1/chats.
func (h *ChatHandler) ListChats(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	chats, err := h.chats.ListChats(c.Request.Context(), uid)
	if err != nil {
		h.mapChatErrorToStatus(c, "list_chats", err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// ListMessages handles GET /api/v1/chats/:chatId/messages.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	page, err := h.chats.ListMessages(c.Request.Context(), c.Param("chatId"), uid)
	if err != nil {
		h.mapChatErrorToStatus(c, "list_messages", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Stream handles GET /api/v1/chats/:chatId/stream. Every snapshot of the
// message list is sent as a "messages" event until the client goes away.
func (h *ChatHandler) Stream(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	chatID := c.Param("chatId")
	started := false
	err := h.chats.StreamMessages(c.Request.Context(), chatID, uid, func(page *models.MessagePage) error {
		if !started {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Status(http.StatusOK)
			started = true
		}
		c.SSEvent("messages", page)
		c.Writer.Flush()
		return nil
	})
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	if started {
		h.logger.Warn("Chat stream ended", zap.String("chatId", chatID), zap.Error(err))
		c.SSEvent("error", ErrorResponse{Error: genericError})
		c.Writer.Flush()
		return
	}
	h.mapChatErrorToStatus(c, "stream_messages", err)
}

// SendMessage handles POST /api/v1/chats/:chatId/messages.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.chats.SendMessage(c.Request.Context(), c.Param("chatId"), uid, req.Text)
	if err != nil {
		h.mapChatErrorToStatus(c, "send_message", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead handles POST /api/v1/chats/:chatId/read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.chats.MarkChatRead(c.Request.Context(), c.Param("chatId"), uid)
	if err != nil {
		h.mapChatErrorToStatus(c, "mark_read", err)
		return
	}
	c.JSON(http.StatusOK, MarkReadResponse{Marked: n})
}

// RequestAssessment handles POST /api/v1/chats/:chatId/assessments.
func (h *ChatHandler) RequestAssessment(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.RequestAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.chats.RequestConditionAssessment(c.Request.Context(), c.Param("chatId"), uid, req.RentRequestID, req.Phase)
	if err != nil {
		h.mapChatErrorToStatus(c, "request_assessment", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// SubmitAssessment handles PUT /api/v1/chats/:chatId/assessments/:messageId.
func (h *ChatHandler) SubmitAssessment(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.SubmitAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.chats.SubmitConditionAssessment(c.Request.Context(), c.Param("chatId"), c.Param("messageId"), uid, req)
	if err != nil {
		h.mapChatErrorToStatus(c, "submit_assessment", err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// UploadAssessmentPhoto handles POST /api/v1/chats/:chatId/assessments/:messageId/photos.
func (h *ChatHandler) UploadAssessmentPhoto(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	upload, ok := readUpload(c, "image")
	if !ok {
		return
	}
	url, err := h.chats.UploadAssessmentPhoto(c.Request.Context(), c.Param("chatId"), c.Param("messageId"), uid, upload)
	if err != nil {
		h.mapChatErrorToStatus(c, "upload_assessment_photo", err)
		return
	}
	c.JSON(http.StatusCreated, UploadResponse{URL: url})
}
