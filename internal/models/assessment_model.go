package models

import "time"

const (
	AssessmentPhasePickup = "pickup"
	AssessmentPhaseReturn = "return"
)

// OverallCondition is the renter's rating of the item.
type OverallCondition string

const (
	ConditionExcellent OverallCondition = "excellent"
	ConditionGood      OverallCondition = "good"
	ConditionFair      OverallCondition = "fair"
	ConditionPoor      OverallCondition = "poor"
)

// Valid reports whether c is one of the four ratings.
func (c OverallCondition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// DamageFlags is the checklist part of a condition report.
type DamageFlags struct {
	Scratches     bool `json:"scratches" firestore:"scratches"`
	Dents         bool `json:"dents" firestore:"dents"`
	Stains        bool `json:"stains" firestore:"stains"`
	MissingParts  bool `json:"missingParts" firestore:"missingParts"`
	NotFunctional bool `json:"notFunctional" firestore:"notFunctional"`
}

// Assessment is the condition report attached to a conditionalAssessment message.
// Once Submitted is true the message is read-only.
type Assessment struct {
	Phase            string           `json:"phase" firestore:"phase"`
	RentRequestID    string           `json:"rentRequestId" firestore:"rentRequestId"`
	OwnerID          string           `json:"ownerId" firestore:"ownerId"`
	RenterID         string           `json:"renterId" firestore:"renterId"`
	OverallCondition OverallCondition `json:"overallCondition,omitempty" firestore:"overallCondition,omitempty"`
	Damage           DamageFlags      `json:"damage" firestore:"damage"`
	Notes            string           `json:"notes,omitempty" firestore:"notes,omitempty"`
	PhotoURLs        []string         `json:"photoUrls,omitempty" firestore:"photoUrls,omitempty"`
	Submitted        bool             `json:"submitted" firestore:"submitted"`
	SubmittedAt      *time.Time       `json:"submittedAt,omitempty" firestore:"submittedAt,omitempty"`
}

const (
	guidanceOwner  = "Please review the condition report and confirm receipt."
	guidanceRenter = "Awaiting the owner's acknowledgment."
)

// Guidance returns the role-specific hint shown under a submitted report.
func (a *Assessment) Guidance(viewerID string) string {
	if a == nil || !a.Submitted {
		return ""
	}
	switch viewerID {
	case a.OwnerID:
		return guidanceOwner
	case a.RenterID:
		return guidanceRenter
	}
	return ""
}
