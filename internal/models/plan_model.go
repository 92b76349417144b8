package models

import "time"

// QuotaAction selects which usage counter an action consumes.
type QuotaAction string

const (
	QuotaActionList QuotaAction = "list"
	QuotaActionRent QuotaAction = "rent"
)

// Valid reports whether a is a known quota action.
func (a QuotaAction) Valid() bool {
	return a == QuotaActionList || a == QuotaActionRent
}

const (
	PlanTypeFree    = "free"
	PlanTypeBasic   = "basic"
	PlanTypePremium = "premium"

	PlanStatusActive   = "active"
	PlanStatusInactive = "inactive"
	PlanStatusExpired  = "expired"
)

// Plan is a purchasable or claimable tier definition stored under plans/{planId}.
type Plan struct {
	ID           string  `json:"id" firestore:"-"`
	Name         string  `json:"name" firestore:"name"`
	PlanType     string  `json:"planType" firestore:"planType"`
	Price        float64 `json:"price" firestore:"price"`       // in the display currency
	Currency     string  `json:"currency" firestore:"currency"` // display currency, e.g. "PHP"
	ListLimit    int     `json:"listLimit" firestore:"listLimit"`
	RentLimit    int     `json:"rentLimit" firestore:"rentLimit"`
	DurationDays int     `json:"durationDays" firestore:"durationDays"`
}

// CurrentPlan is the entitlement and usage record embedded in a user document.
type CurrentPlan struct {
	PlanID         string `json:"planId" firestore:"planId"`
	PlanType       string `json:"planType" firestore:"planType"`
	RentLimit      int    `json:"rentLimit" firestore:"rentLimit"`
	ListLimit      int    `json:"listLimit" firestore:"listLimit"`
	RentUsed       int    `json:"rentUsed" firestore:"rentUsed"`
	ListUsed       int    `json:"listUsed" firestore:"listUsed"`
	Status         string `json:"status" firestore:"status"`
	SubscriptionID string `json:"subscriptionId,omitempty" firestore:"subscriptionId,omitempty"`
}

// IsActive reports whether the plan currently grants entitlements.
func (p *CurrentPlan) IsActive() bool {
	return p != nil && p.Status == PlanStatusActive
}

// Counters returns pointers to the used counter and limit for an action.
func (p *CurrentPlan) Counters(action QuotaAction) (used *int, limit int) {
	if action == QuotaActionRent {
		return &p.RentUsed, p.RentLimit
	}
	return &p.ListUsed, p.ListLimit
}

// LimitCheckResult is returned by a successful quota check.
type LimitCheckResult struct {
	Success   bool        `json:"success"`
	Action    QuotaAction `json:"action"`
	Used      int         `json:"used"`
	Limit     int         `json:"limit"`
	Remaining int         `json:"remaining"`
}

// Subscription is the append-only record of a purchased plan period.
type Subscription struct {
	ID            string    `json:"id" firestore:"-"`
	UserID        string    `json:"userId" firestore:"userId"`
	PlanID        string    `json:"planId" firestore:"planId"`
	PlanType      string    `json:"planType" firestore:"planType"`
	StartDate     time.Time `json:"startDate" firestore:"startDate"`
	EndDate       time.Time `json:"endDate" firestore:"endDate"`
	Status        string    `json:"status" firestore:"status"`
	TransactionID string    `json:"transactionId" firestore:"transactionId"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// PlanDetails is the snapshot of the plan embedded in a receipt.
type PlanDetails struct {
	PlanID       string `json:"planId" firestore:"planId"`
	Name         string `json:"name" firestore:"name"`
	PlanType     string `json:"planType" firestore:"planType"`
	ListLimit    int    `json:"listLimit" firestore:"listLimit"`
	RentLimit    int    `json:"rentLimit" firestore:"rentLimit"`
	DurationDays int    `json:"durationDays" firestore:"durationDays"`
}

// Transaction is an immutable payment receipt.
type Transaction struct {
	TransactionID   string      `json:"transactionId" firestore:"transactionId"`
	UserID          string      `json:"userId" firestore:"userId"`
	PaypalOrderID   string      `json:"paypalOrderId" firestore:"paypalOrderId"`
	PaypalCaptureID string      `json:"paypalCaptureId,omitempty" firestore:"paypalCaptureId,omitempty"`
	Amount          float64     `json:"amount" firestore:"amount"`
	Currency        string      `json:"currency" firestore:"currency"`
	DisplayAmount   float64     `json:"displayAmount" firestore:"displayAmount"`
	DisplayCurrency string      `json:"displayCurrency" firestore:"displayCurrency"`
	Status          string      `json:"status" firestore:"status"`
	SubscriptionID  string      `json:"subscriptionId" firestore:"subscriptionId"`
	PlanDetails     PlanDetails `json:"planDetails" firestore:"planDetails"`
	CreatedAt       time.Time   `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// Payment is keyed by the provider order ID and marks an order as already activated.
type Payment struct {
	OrderID       string    `json:"orderId" firestore:"-"`
	UserID        string    `json:"userId" firestore:"userId"`
	PlanID        string    `json:"planId" firestore:"planId"`
	CaptureID     string    `json:"captureId" firestore:"captureId"`
	Status        string    `json:"status" firestore:"status"`
	TransactionID string    `json:"transactionId" firestore:"transactionId"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// PendingOrder is the short-lived context of an order awaiting approval. It lives in redis only.
type PendingOrder struct {
	OrderID         string  `json:"orderId"`
	UserID          string  `json:"userId"`
	PlanID          string  `json:"planId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	DisplayAmount   float64 `json:"displayAmount"`
	DisplayCurrency string  `json:"displayCurrency"`
	Rate            float64 `json:"rate"`
}

// CheckoutOrder is returned to the client to open the approval page.
type CheckoutOrder struct {
	OrderID         string  `json:"orderId"`
	ApprovalURL     string  `json:"approvalUrl"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	DisplayAmount   float64 `json:"displayAmount"`
	DisplayCurrency string  `json:"displayCurrency"`
	ReturnURL       string  `json:"returnUrl"`
	CancelURL       string  `json:"cancelUrl"`
}

// Receipt is rendered after a successful capture.
type Receipt struct {
	Transaction  *Transaction  `json:"transaction"`
	Subscription *Subscription `json:"subscription,omitempty"`
	CurrentPlan  *CurrentPlan  `json:"currentPlan,omitempty"`
}
