package db

import (
	"context"
	"time"

	"rentshare-backend-go/internal/models"
)

// Store runs a unit of work atomically against the document store.
// fn may be retried on contention, so it must not have side effects outside tx.
// All reads through tx must happen before the first write.
type Store interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of reads and writes available inside a transaction.
// Missing documents are reported as ErrNotFound.
type Tx interface {
	GetUser(userID string) (*models.User, error)
	SetCurrentPlan(userID string, plan *models.CurrentPlan) error

	GetItem(itemID string) (*models.Item, error)
	CreateItem(item *models.Item) error
	SetItemReservation(itemID, status, reservedBy string, reservedAt *time.Time) error
	DeleteItem(itemID string) error
	CountItemsByOwner(ownerID string) (int, error)

	GetRentRequest(requestID string) (*models.RentRequest, error)
	NewRentRequestID() string
	CreateRentRequest(req *models.RentRequest) error
	SetRentRequestStatus(requestID string, status models.RentRequestStatus) error
	UpdateRentRequestDetails(requestID string, edit models.RentRequestEdit) error
	DeleteRentRequest(requestID string) error
	CountActiveRentRequests(requesterID string) (int, error)
	// ListActiveRentRequestsInChat returns the pending and accepted requests linked to a pair chat.
	ListActiveRentRequestsInChat(chatID string) ([]*models.RentRequest, error)

	GetActiveRequestGuard(requesterID, itemID string) (*models.ActiveRequestGuard, error)
	CreateActiveRequestGuard(guard *models.ActiveRequestGuard) error
	DeleteActiveRequestGuard(requesterID, itemID string) error

	GetChat(chatID string) (*models.Chat, error)
	GetMessage(chatID, messageID string) (*models.Message, error)
	// AppendMessage creates msg and updates the chat summary in one write each.
	// chat carries the fields to merge (participants, status, links); missing chats are created.
	AppendMessage(chat *models.Chat, msg *models.Message) error
	SetCardStatus(chatID, messageID string, status models.RentRequestStatus) error
	// UpdateCardTerms rewrites the dates, pickup time and price shown on a request card.
	UpdateCardTerms(chatID, messageID string, card *models.RentRequestCard) error
	SubmitAssessment(chatID, messageID string, assessment *models.Assessment) error

	GetSession(sessionID string) (*models.Session, error)
	ListActiveSessions(userID string) ([]*models.Session, error)
	CreateSession(session *models.Session) error
	TerminateSession(sessionID, reason string, at time.Time) error

	GetPayment(orderID string) (*models.Payment, error)
	CreatePayment(payment *models.Payment) error
	CreateSubscription(sub *models.Subscription) error
	CreateTransaction(txn *models.Transaction) error
}

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SetPushToken(ctx context.Context, userID, token string) error
}

// PlanRepository reads plan definitions.
type PlanRepository interface {
	GetByID(ctx context.Context, planID string) (*models.Plan, error)
	ListByType(ctx context.Context, planType string) ([]*models.Plan, error)
	List(ctx context.Context) ([]*models.Plan, error)
	Upsert(ctx context.Context, plan *models.Plan) error
}

// ItemRepository covers listing reads and non-quota writes.
type ItemRepository interface {
	GetByID(ctx context.Context, itemID string) (*models.Item, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Item, error)
	Search(ctx context.Context, search models.ItemSearch) ([]*models.Item, error)
	AppendImage(ctx context.Context, itemID, url string) error
}

// RentRequestRepository covers rent request queries.
type RentRequestRepository interface {
	GetByID(ctx context.Context, requestID string) (*models.RentRequest, error)
	ListByRequester(ctx context.Context, requesterID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error)
	ListByOwner(ctx context.Context, ownerID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error)
	GetActiveGuard(ctx context.Context, requesterID, itemID string) (*models.ActiveRequestGuard, error)
}

// ChatRepository covers chat reads and the bulk read-receipt update.
type ChatRepository interface {
	GetByID(ctx context.Context, chatID string) (*models.Chat, error)
	ListByParticipant(ctx context.Context, userID string, limit int) ([]*models.Chat, error)
	// ListRecentMessages returns up to limit messages, newest first.
	ListRecentMessages(ctx context.Context, chatID string, limit int) ([]*models.Message, error)
	// WatchRecentMessages calls fn with the newest-first window on every change until ctx ends or fn errors.
	WatchRecentMessages(ctx context.Context, chatID string, limit int, fn func([]*models.Message) error) error
	// MarkRead flags unread messages not sent by readerID and resets the unread counter.
	MarkRead(ctx context.Context, chatID, readerID string) (int, error)
}

// SessionRepository covers session reads outside of transactions.
type SessionRepository interface {
	GetByID(ctx context.Context, sessionID string) (*models.Session, error)
	ListActive(ctx context.Context, userID string) ([]*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Terminate(ctx context.Context, sessionID, reason string, at time.Time) error
}

// PaymentRepository reads the payment ledger.
type PaymentRepository interface {
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error)
}

// NotificationRepository stores in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, userID string, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
}

// OutboxRepository stores queued side effects.
type OutboxRepository interface {
	Enqueue(ctx context.Context, entry *models.OutboxEntry) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEntry, error)
	MarkDelivered(ctx context.Context, entryID string) error
	MarkAttemptFailed(ctx context.Context, entryID string, attempts int, lastErr string, next time.Time, status string) error
}
