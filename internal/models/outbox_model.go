package models

import "time"

const (
	OutboxPending   = "pending"
	OutboxDelivered = "delivered"
	OutboxFailed    = "failed"
)

// Notification kinds written by the services.
const (
	NotifyListingPublished = "LISTING_PUBLISHED"
	NotifyRentRequested    = "RENT_REQUESTED"
	NotifyRentAccepted     = "RENT_ACCEPTED"
	NotifyRentRejected     = "RENT_REJECTED"
	NotifyRentCancelled    = "RENT_CANCELLED"
	NotifyPlanActivated    = "PLAN_ACTIVATED"
	NotifyWelcome          = "WELCOME"
)

// OutboxEntry is a non-critical side effect queued for delivery.
type OutboxEntry struct {
	ID            string            `json:"id" firestore:"-"`
	Kind          string            `json:"kind" firestore:"kind"`
	UserID        string            `json:"userId" firestore:"userId"`
	Title         string            `json:"title" firestore:"title"`
	Body          string            `json:"body" firestore:"body"`
	Data          map[string]string `json:"data,omitempty" firestore:"data,omitempty"`
	Status        string            `json:"status" firestore:"status"`
	Attempts      int               `json:"attempts" firestore:"attempts"`
	LastError     string            `json:"lastError,omitempty" firestore:"lastError,omitempty"`
	NextAttemptAt time.Time         `json:"nextAttemptAt" firestore:"nextAttemptAt"`
	CreatedAt     time.Time         `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}
