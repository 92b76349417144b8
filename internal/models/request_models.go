package models

import "time"

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Fullname string `json:"fullname" binding:"required,min=2,max=80"`
}

// PasswordResetRequest is the body of POST /auth/password-reset.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdateProfileRequest represents a partial profile edit.
// Pointers distinguish "not provided" from "clear".
type UpdateProfileRequest struct {
	Fullname      *string `json:"fullname,omitempty" binding:"omitempty,min=2,max=80"`
	ContactNumber *string `json:"contactNumber,omitempty" binding:"omitempty,phone"`
	Birthday      *string `json:"birthday,omitempty" binding:"omitempty,datetime=2006-01-02"`
	Location      *string `json:"location,omitempty" binding:"omitempty,max=200"`
}

// PushTokenRequest registers the device push token.
type PushTokenRequest struct {
	Token string `json:"token" binding:"required,max=4096"`
}

// LoginRequest opens a marketplace session after the client has signed in with Firebase.
type LoginRequest struct {
	DeviceInfo DeviceInfo         `json:"deviceInfo"`
	Resolution ConflictResolution `json:"resolution" binding:"omitempty,oneof=abort terminate_others"`
}

// CheckLimitsRequest is the body of POST /plans/check-limits.
type CheckLimitsRequest struct {
	Action QuotaAction `json:"action" binding:"required,oneof=list rent"`
}

// CreateItemRequest is the body of POST /items.
type CreateItemRequest struct {
	ItemName      string  `json:"itemName" binding:"required,min=2,max=100"`
	ItemDesc      string  `json:"itemDesc" binding:"required,min=10,max=2000"`
	ItemPrice     float64 `json:"itemPrice" binding:"required,gt=0"`
	ItemCondition string  `json:"itemCondition" binding:"required,itemcondition"`
	ItemLocation  string  `json:"itemLocation" binding:"required,max=200"`
	Category      string  `json:"category" binding:"omitempty,max=60"`
}

// CreateRentRequest is the body of POST /rent-requests.
type CreateRentRequest struct {
	ItemID     string    `json:"itemId" binding:"required"`
	StartDate  time.Time `json:"startDate" binding:"required"`
	EndDate    time.Time `json:"endDate" binding:"required,gtefield=StartDate"`
	PickupTime string    `json:"pickupTime" binding:"required,max=20"`
	Message    string    `json:"message" binding:"omitempty,max=500"`
}

// UpdateRentRequest is the body of PUT /rent-requests/:id.
type UpdateRentRequest struct {
	StartDate  time.Time `json:"startDate" binding:"required"`
	EndDate    time.Time `json:"endDate" binding:"required,gtefield=StartDate"`
	PickupTime string    `json:"pickupTime" binding:"required,max=20"`
	Message    string    `json:"message" binding:"omitempty,max=500"`
}

// SendMessageRequest is the body of POST /chats/:chatId/messages.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// RequestAssessmentRequest opens a condition report in a chat.
type RequestAssessmentRequest struct {
	Phase string `json:"phase" binding:"required,oneof=pickup return"`
	// RentRequestID defaults to the request the chat currently links to.
	RentRequestID string `json:"rentRequestId"`
}

// SubmitAssessmentRequest is the renter's filled-in condition report.
type SubmitAssessmentRequest struct {
	OverallCondition OverallCondition `json:"overallCondition" binding:"required,oneof=excellent good fair poor"`
	Damage           DamageFlags      `json:"damage"`
	Notes            string           `json:"notes" binding:"omitempty,max=2000"`
	PhotoURLs        []string         `json:"photoUrls" binding:"omitempty,max=10,dive,url"`
}

// CreateOrderRequest starts a PayPal checkout for a plan.
type CreateOrderRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

// RedirectRequest reports the URL the approval page navigated to.
type RedirectRequest struct {
	URL string `json:"url" binding:"required"`
}
