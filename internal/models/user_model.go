package models

import "time"

// User represents a marketplace member. The document ID is the Firebase Auth UID.
type User struct {
	ID             string          `json:"id" firestore:"-"`
	Email          string          `json:"email" firestore:"email"`
	Fullname       string          `json:"fullname" firestore:"fullname"`
	EmailVerified  bool            `json:"emailVerified" firestore:"emailVerified"`
	ProfileImage   string          `json:"profileImage,omitempty" firestore:"profileImage,omitempty"`
	ContactNumber  string          `json:"contactNumber,omitempty" firestore:"contactNumber,omitempty"`
	Birthday       string          `json:"birthday,omitempty" firestore:"birthday,omitempty"` // YYYY-MM-DD
	Location       string          `json:"location,omitempty" firestore:"location,omitempty"`
	IDVerification *IDVerification `json:"idVerification,omitempty" firestore:"idVerification,omitempty"`
	PushToken      string          `json:"-" firestore:"pushToken,omitempty"`
	CurrentPlan    *CurrentPlan    `json:"currentPlan,omitempty" firestore:"currentPlan,omitempty"`
	CreatedAt      time.Time       `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt      time.Time       `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// IDVerification records an uploaded government ID. The stored object is encrypted.
type IDVerification struct {
	DocumentURL  string    `json:"documentUrl" firestore:"documentUrl"`
	DocumentPath string    `json:"-" firestore:"documentPath"`
	Status       string    `json:"status" firestore:"status"` // "submitted", "verified", "rejected"
	SubmittedAt  time.Time `json:"submittedAt" firestore:"submittedAt"`
}

// ProfileCompletion is derived from a User snapshot and never stored.
type ProfileCompletion struct {
	CompletionPercentage int                      `json:"completionPercentage"`
	MissingFields        []string                 `json:"missingFields"`
	Details              ProfileCompletionDetails `json:"details"`
}

// ProfileCompletionDetails holds the six individual checks.
type ProfileCompletionDetails struct {
	IsEmailVerified   bool `json:"isEmailVerified"`
	HasProfileImage   bool `json:"hasProfileImage"`
	HasContact        bool `json:"hasContact"`
	HasBirthday       bool `json:"hasBirthday"`
	HasLocation       bool `json:"hasLocation"`
	HasIDVerification bool `json:"hasIdVerification"`
}

// UserProfileResponse is returned by GET /users/me.
type UserProfileResponse struct {
	User       *User             `json:"user"`
	Completion ProfileCompletion `json:"completion"`
}

// Notification is an in-app notification under users/{uid}/notifications.
type Notification struct {
	ID        string            `json:"id" firestore:"-"`
	Kind      string            `json:"kind" firestore:"kind"`
	Title     string            `json:"title" firestore:"title"`
	Body      string            `json:"body" firestore:"body"`
	Data      map[string]string `json:"data,omitempty" firestore:"data,omitempty"`
	Read      bool              `json:"read" firestore:"read"`
	CreatedAt time.Time         `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}
