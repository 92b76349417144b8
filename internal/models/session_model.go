package models

import (
	"fmt"
	"time"
)

const (
	TerminationLogout             = "logout"
	TerminationConflictResolution = "conflict_resolution"
	TerminationForced             = "forced"
)

// ConflictResolution is the caller's answer when other sessions are active.
type ConflictResolution string

const (
	ResolutionNone            ConflictResolution = ""
	ResolutionAbort           ConflictResolution = "abort"
	ResolutionTerminateOthers ConflictResolution = "terminate_others"
)

// DeviceInfo describes the device that opened a session.
type DeviceInfo struct {
	Platform   string `json:"platform" firestore:"platform"`
	Model      string `json:"model,omitempty" firestore:"model,omitempty"`
	AppVersion string `json:"appVersion,omitempty" firestore:"appVersion,omitempty"`
	UserAgent  string `json:"userAgent,omitempty" firestore:"userAgent,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty" firestore:"ipAddress,omitempty"`
}

// Session is one login on one device.
type Session struct {
	SessionID         string     `json:"sessionId" firestore:"sessionId"`
	UserID            string     `json:"userId" firestore:"userId"`
	DeviceInfo        DeviceInfo `json:"deviceInfo" firestore:"deviceInfo"`
	IsActive          bool       `json:"isActive" firestore:"isActive"`
	CreatedAt         time.Time  `json:"createdAt" firestore:"createdAt"`
	LastActive        time.Time  `json:"lastActive" firestore:"lastActive"`
	TerminatedAt      *time.Time `json:"terminatedAt,omitempty" firestore:"terminatedAt,omitempty"`
	TerminationReason string     `json:"terminationReason,omitempty" firestore:"terminationReason,omitempty"`
}

// StartedBefore orders sessions by creation time, then by ID for equal timestamps.
func (s *Session) StartedBefore(other *Session) bool {
	if !s.CreatedAt.Equal(other.CreatedAt) {
		return s.CreatedAt.Before(other.CreatedAt)
	}
	return s.SessionID < other.SessionID
}

// NewSessionID builds the {userId}_{unixMillis} identifier.
func NewSessionID(userID string, now time.Time) string {
	return fmt.Sprintf("%s_%d", userID, now.UnixMilli())
}

// LoginResult is returned once a session has been opened.
type LoginResult struct {
	Session            *Session `json:"session"`
	TerminatedSessions []string `json:"terminatedSessions,omitempty"`
	RemainingConflicts int      `json:"remainingConflicts,omitempty"`
}

// TerminateResult is the soft-failure outcome of a forced termination.
type TerminateResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason,omitempty"`
}
