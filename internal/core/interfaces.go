package core

import (
	"context"
	"io"
	"time"

	"rentshare-backend-go/internal/models"
)

// UserService defines operations on user profiles.
type UserService interface {
	GetOrCreateUser(ctx context.Context, userID, email, fullname string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfileResponse, error)
	GetCompletion(ctx context.Context, userID string) (models.ProfileCompletion, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	UploadAvatar(ctx context.Context, userID string, upload FileUpload) (*models.User, error)
	SubmitIDVerification(ctx context.Context, userID string, upload FileUpload) (*models.User, error)
	RegisterPushToken(ctx context.Context, userID, token string) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
}

// AccountService covers identity-provider backed account actions.
type AccountService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error)
	SendPasswordReset(ctx context.Context, email string) (*EmailStatus, error)
	ResendVerification(ctx context.Context, userID string) (*EmailStatus, error)
}

// QuotaService gates list and rent actions on the user's plan.
type QuotaService interface {
	CheckAndUpdateLimits(ctx context.Context, userID string, action models.QuotaAction) (*models.LimitCheckResult, error)
	ClaimFreePlan(ctx context.Context, userID string) (*models.CurrentPlan, error)
	ReconcileUsage(ctx context.Context, userID string) (*models.CurrentPlan, error)
	ListPlans(ctx context.Context) ([]*models.Plan, error)
}

// SessionService enforces one active marketplace session per user.
type SessionService interface {
	CheckActiveSession(ctx context.Context, userID string) ([]*models.Session, error)
	CreateUserSession(ctx context.Context, userID string, device models.DeviceInfo) (*models.Session, error)
	Login(ctx context.Context, userID string, device models.DeviceInfo, resolution models.ConflictResolution) (*models.LoginResult, error)
	ForceTerminateSession(ctx context.Context, userID, sessionID string) (*models.TerminateResult, error)
	TerminateCurrentSession(ctx context.Context, userID, sessionID string) (*models.TerminateResult, error)
	ValidateSession(ctx context.Context, userID, sessionID string) error
}

// ListingService manages item listings.
type ListingService interface {
	CreateListing(ctx context.Context, ownerID string, req models.CreateItemRequest) (*models.Item, error)
	UploadItemImage(ctx context.Context, ownerID, itemID string, upload FileUpload) (*models.Item, error)
	DeleteListing(ctx context.Context, ownerID, itemID string) error
	GetListing(ctx context.Context, itemID string) (*models.Item, error)
	ListMyListings(ctx context.Context, ownerID string, limit int) ([]*models.Item, error)
	SearchListings(ctx context.Context, search models.ItemSearch) ([]*models.Item, error)
	ClassifyImage(ctx context.Context, upload FileUpload) ([]models.ItemPrediction, error)
}

// RentalService drives the rent request state machine.
type RentalService interface {
	SubmitRequest(ctx context.Context, requesterID string, req models.CreateRentRequest) (*models.RentRequest, error)
	AcceptRequest(ctx context.Context, ownerID, requestID string) (*models.RentRequest, error)
	RejectRequest(ctx context.Context, ownerID, requestID string) (*models.RentRequest, error)
	CancelRequest(ctx context.Context, requesterID, requestID string) error
	EditRequest(ctx context.Context, requesterID, requestID string, req models.UpdateRentRequest) (*models.RentRequest, error)
	GetRequest(ctx context.Context, userID, requestID string) (*models.RentRequest, error)
	ListOutgoing(ctx context.Context, requesterID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error)
	ListIncoming(ctx context.Context, ownerID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error)
	ActiveRequestForItem(ctx context.Context, requesterID, itemID string) (*models.RentRequest, error)
}

// ChatService is the message channel between two users.
type ChatService interface {
	ListChats(ctx context.Context, userID string) ([]*models.Chat, error)
	ListMessages(ctx context.Context, chatID, userID string) (*models.MessagePage, error)
	StreamMessages(ctx context.Context, chatID, userID string, fn func(*models.MessagePage) error) error
	SendMessage(ctx context.Context, chatID, senderID, text string) (*models.Message, error)
	MarkChatRead(ctx context.Context, chatID, userID string) (int, error)
	RequestConditionAssessment(ctx context.Context, chatID, actorID, requestID, phase string) (*models.Message, error)
	SubmitConditionAssessment(ctx context.Context, chatID, messageID, renterID string, req models.SubmitAssessmentRequest) (*models.Message, error)
	UploadAssessmentPhoto(ctx context.Context, chatID, messageID, renterID string, upload FileUpload) (string, error)
}

// PaymentService runs the PayPal checkout and plan activation.
type PaymentService interface {
	CreateOrder(ctx context.Context, userID, planID string) (*models.CheckoutOrder, error)
	HandleRedirect(ctx context.Context, userID, orderID, redirectURL string) (*models.Receipt, error)
	GetReceipt(ctx context.Context, userID, transactionID string) (*models.Receipt, error)
}

// NotificationService queues and delivers non-critical notifications.
type NotificationService interface {
	Notifier
	DispatchPending(ctx context.Context) (int, error)
}

// Notifier queues a best-effort notification for a user.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, title, body string, data map[string]string) error
}

// FileUpload is an uploaded file read fully into memory.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ObjectStore is the blob store for images and documents.
type ObjectStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// IdentityUser is what the identity provider knows about an account.
type IdentityUser struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// IdentityProvider wraps the authentication service.
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password, displayName string) (*IdentityUser, error)
	GetUser(ctx context.Context, uid string) (*IdentityUser, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
	EmailVerificationLink(ctx context.Context, email string) (string, error)
}

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Cooldown is a persisted per-key timer.
type Cooldown interface {
	// Acquire starts the cooldown if none is running. When one is running it
	// returns false and the time left.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error)
	Release(ctx context.Context, key string) error
}

// PendingOrderStore holds orders between creation and capture.
// GetPendingOrder returns nil and no error for unknown or expired orders.
type PendingOrderStore interface {
	SavePendingOrder(ctx context.Context, order *models.PendingOrder, ttl time.Duration) error
	GetPendingOrder(ctx context.Context, orderID string) (*models.PendingOrder, error)
	DeletePendingOrder(ctx context.Context, orderID string) error
}

// OrderRequest is a provider-neutral order creation request.
type OrderRequest struct {
	Amount      float64
	Currency    string
	Description string
	CustomID    string
	ReturnURL   string
	CancelURL   string
}

// CreatedOrder is the provider's answer to an order creation.
type CreatedOrder struct {
	ID          string
	Status      string
	ApprovalURL string
}

// CaptureResult is the provider's answer to a capture.
type CaptureResult struct {
	OrderID   string
	Status    string
	CaptureID string
	Amount    float64
	Currency  string
}

// PaymentGateway is the payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*CreatedOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error)
}

// RateProvider converts the display currency to the settlement currency.
type RateProvider interface {
	Rate(ctx context.Context) float64
}

// ImageClassifier predicts what an item photo shows.
type ImageClassifier interface {
	Classify(ctx context.Context, filename string, r io.Reader) ([]models.ItemPrediction, error)
}

// Pusher delivers a push notification to a device token.
type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

// EventPublisher mirrors domain events to an external bus.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Encryptor seals sensitive documents before they are stored.
type Encryptor interface {
	Seal(plaintext []byte) ([]byte, error)
}
