package api

import "rentshare-backend-go/internal/models"

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Action  string `json:"action,omitempty"` // client hint, e.g. claim_plan
	Details string `json:"details,omitempty"`
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SessionConflictResponse lists the sessions a login would end.
type SessionConflictResponse struct {
	Error          string            `json:"error"`
	Code           string            `json:"code"`
	ActiveSessions []*models.Session `json:"activeSessions"`
}

// MarkReadResponse reports how many messages were marked read.
type MarkReadResponse struct {
	Marked int `json:"marked"`
}

// UploadResponse returns the URL of a stored file.
type UploadResponse struct {
	URL string `json:"url"`
}
