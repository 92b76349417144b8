package models

import "time"

// RentRequestStatus is the lifecycle state of a rent request.
type RentRequestStatus string

const (
	RentStatusPending   RentRequestStatus = "pending"
	RentStatusAccepted  RentRequestStatus = "accepted"
	RentStatusRejected  RentRequestStatus = "rejected"
	RentStatusCancelled RentRequestStatus = "cancelled"
	RentStatusCompleted RentRequestStatus = "completed"

	// rentStatusApproved is written by older clients and read as accepted.
	rentStatusApproved RentRequestStatus = "approved"
)

// Normalize folds legacy spellings into the canonical status.
func (s RentRequestStatus) Normalize() RentRequestStatus {
	if s == rentStatusApproved {
		return RentStatusAccepted
	}
	return s
}

// IsActive reports whether the request still holds the requester's slot for the item.
func (s RentRequestStatus) IsActive() bool {
	n := s.Normalize()
	return n == RentStatusPending || n == RentStatusAccepted
}

// rentTransitions is the allowed state graph. completed has no wired trigger.
var rentTransitions = map[RentRequestStatus][]RentRequestStatus{
	RentStatusPending:  {RentStatusAccepted, RentStatusRejected, RentStatusCancelled},
	RentStatusAccepted: {RentStatusCancelled, RentStatusCompleted},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to RentRequestStatus) bool {
	for _, next := range rentTransitions[from.Normalize()] {
		if next == to.Normalize() {
			return true
		}
	}
	return false
}

// RentRequest is a renter's proposal for a listing.
type RentRequest struct {
	ID          string            `json:"id" firestore:"-"`
	ItemID      string            `json:"itemId" firestore:"itemId"`
	ItemName    string            `json:"itemName" firestore:"itemName"`
	ItemImage   string            `json:"itemImage,omitempty" firestore:"itemImage,omitempty"`
	RequesterID string            `json:"requesterId" firestore:"requesterId"`
	OwnerID     string            `json:"ownerId" firestore:"ownerId"`
	Status      RentRequestStatus `json:"status" firestore:"status"`
	StartDate   time.Time         `json:"startDate" firestore:"startDate"`
	EndDate     time.Time         `json:"endDate" firestore:"endDate"`
	PickupTime  string            `json:"pickupTime" firestore:"pickupTime"`
	Message     string            `json:"message,omitempty" firestore:"message,omitempty"`
	TotalPrice  float64           `json:"totalPrice" firestore:"totalPrice"`
	ChatID      string            `json:"chatId" firestore:"chatId"`
	CreatedAt   time.Time         `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time         `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// ActiveRequestGuard exists exactly while a pending or accepted request exists
// for its (requester, item) pair. Its ID is ActiveRequestGuardID.
type ActiveRequestGuard struct {
	RequestID   string    `json:"requestId" firestore:"requestId"`
	RequesterID string    `json:"requesterId" firestore:"requesterId"`
	ItemID      string    `json:"itemId" firestore:"itemId"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// ActiveRequestGuardID is the document ID of the guard for a pair.
func ActiveRequestGuardID(requesterID, itemID string) string {
	return requesterID + "_" + itemID
}

// RentRequestEdit carries the editable fields of a pending request.
type RentRequestEdit struct {
	StartDate  time.Time
	EndDate    time.Time
	PickupTime string
	Message    string
	TotalPrice float64
}
