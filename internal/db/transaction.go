package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"

	"rentshare-backend-go/internal/models"
)

const (
	itemsCollection         = "items"
	rentRequestsCollection  = "rentRequests"
	activeGuardsCollection  = "activeRentRequests"
	chatCollection          = "chat"
	messagesCollection      = "messages"
	sessionsCollection      = "userSessions"
	plansCollection         = "plans"
	subscriptionsCollection = "subscription"
	transactionsCollection  = "transactions"
	paymentsCollection      = "payments"
	notificationsCollection = "notifications"
	outboxCollection        = "outbox"
)

// firestoreStore implements Store on top of Firestore transactions.
type firestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Store backed by client.
func NewFirestoreStore(client *firestore.Client) Store {
	if client == nil {
		log.Fatal("Firestore client is not initialized for Store.")
	}
	return &firestoreStore{client: client}
}

func (s *firestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{client: s.client, tx: t})
	})
}

// firestoreTx adapts *firestore.Transaction to Tx.
type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) get(ref *firestore.DocumentRef, kind string, out interface{}) error {
	snap, err := t.tx.Get(ref)
	if err != nil {
		return wrapGetErr(err, kind, ref.ID)
	}
	if !snap.Exists() {
		return fmt.Errorf("%s with ID '%s' not found: %w", kind, ref.ID, ErrNotFound)
	}
	if err := snap.DataTo(out); err != nil {
		return fmt.Errorf("failed to decode %s '%s': %w", kind, ref.ID, err)
	}
	return nil
}

func (t *firestoreTx) count(q firestore.Query) (int, error) {
	docs, err := t.tx.Documents(q).GetAll()
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (t *firestoreTx) GetUser(userID string) (*models.User, error) {
	var user models.User
	if err := t.get(t.client.Collection(usersCollection).Doc(userID), "user", &user); err != nil {
		return nil, err
	}
	user.ID = userID
	return &user, nil
}

func (t *firestoreTx) SetCurrentPlan(userID string, plan *models.CurrentPlan) error {
	return t.tx.Update(t.client.Collection(usersCollection).Doc(userID), []firestore.Update{
		{Path: "currentPlan", Value: plan},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (t *firestoreTx) GetItem(itemID string) (*models.Item, error) {
	var item models.Item
	if err := t.get(t.client.Collection(itemsCollection).Doc(itemID), "item", &item); err != nil {
		return nil, err
	}
	item.ID = itemID
	return &item, nil
}

func (t *firestoreTx) CreateItem(item *models.Item) error {
	if item.ID == "" {
		item.ID = t.client.Collection(itemsCollection).NewDoc().ID
	}
	return t.tx.Create(t.client.Collection(itemsCollection).Doc(item.ID), item)
}

func (t *firestoreTx) SetItemReservation(itemID, itemStatus, reservedBy string, reservedAt *time.Time) error {
	updates := []firestore.Update{{Path: "itemStatus", Value: itemStatus}}
	if reservedBy == "" {
		updates = append(updates,
			firestore.Update{Path: "reservedBy", Value: firestore.Delete},
			firestore.Update{Path: "reservedAt", Value: firestore.Delete})
	} else {
		updates = append(updates,
			firestore.Update{Path: "reservedBy", Value: reservedBy},
			firestore.Update{Path: "reservedAt", Value: reservedAt})
	}
	return t.tx.Update(t.client.Collection(itemsCollection).Doc(itemID), updates)
}

func (t *firestoreTx) DeleteItem(itemID string) error {
	return t.tx.Delete(t.client.Collection(itemsCollection).Doc(itemID))
}

func (t *firestoreTx) CountItemsByOwner(ownerID string) (int, error) {
	return t.count(t.client.Collection(itemsCollection).Where("owner.id", "==", ownerID))
}

func (t *firestoreTx) GetRentRequest(requestID string) (*models.RentRequest, error) {
	var req models.RentRequest
	if err := t.get(t.client.Collection(rentRequestsCollection).Doc(requestID), "rent request", &req); err != nil {
		return nil, err
	}
	req.ID = requestID
	req.Status = req.Status.Normalize()
	return &req, nil
}

func (t *firestoreTx) NewRentRequestID() string {
	return t.client.Collection(rentRequestsCollection).NewDoc().ID
}

func (t *firestoreTx) CreateRentRequest(req *models.RentRequest) error {
	return t.tx.Create(t.client.Collection(rentRequestsCollection).Doc(req.ID), req)
}

func (t *firestoreTx) SetRentRequestStatus(requestID string, s models.RentRequestStatus) error {
	return t.tx.Update(t.client.Collection(rentRequestsCollection).Doc(requestID), []firestore.Update{
		{Path: "status", Value: string(s)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (t *firestoreTx) UpdateRentRequestDetails(requestID string, edit models.RentRequestEdit) error {
	return t.tx.Update(t.client.Collection(rentRequestsCollection).Doc(requestID), []firestore.Update{
		{Path: "startDate", Value: edit.StartDate},
		{Path: "endDate", Value: edit.EndDate},
		{Path: "pickupTime", Value: edit.PickupTime},
		{Path: "message", Value: edit.Message},
		{Path: "totalPrice", Value: edit.TotalPrice},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (t *firestoreTx) DeleteRentRequest(requestID string) error {
	return t.tx.Delete(t.client.Collection(rentRequestsCollection).Doc(requestID))
}

func (t *firestoreTx) CountActiveRentRequests(requesterID string) (int, error) {
	return t.count(t.client.Collection(rentRequestsCollection).
		Where("requesterId", "==", requesterID).
		Where("status", "in", []string{"pending", "accepted", "approved"}))
}

func (t *firestoreTx) ListActiveRentRequestsInChat(chatID string) ([]*models.RentRequest, error) {
	docs, err := t.tx.Documents(t.client.Collection(rentRequestsCollection).
		Where("chatId", "==", chatID).
		Where("status", "in", []string{"pending", "accepted", "approved"})).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query requests of chat '%s': %w", chatID, err)
	}
	reqs := make([]*models.RentRequest, 0, len(docs))
	for _, doc := range docs {
		var req models.RentRequest
		if err := doc.DataTo(&req); err != nil {
			log.Printf("Error decoding rent request (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		req.ID = doc.Ref.ID
		req.Status = req.Status.Normalize()
		reqs = append(reqs, &req)
	}
	return reqs, nil
}

func (t *firestoreTx) GetActiveRequestGuard(requesterID, itemID string) (*models.ActiveRequestGuard, error) {
	var guard models.ActiveRequestGuard
	ref := t.client.Collection(activeGuardsCollection).Doc(models.ActiveRequestGuardID(requesterID, itemID))
	if err := t.get(ref, "active request guard", &guard); err != nil {
		return nil, err
	}
	return &guard, nil
}

func (t *firestoreTx) CreateActiveRequestGuard(guard *models.ActiveRequestGuard) error {
	ref := t.client.Collection(activeGuardsCollection).Doc(models.ActiveRequestGuardID(guard.RequesterID, guard.ItemID))
	return t.tx.Create(ref, guard)
}

func (t *firestoreTx) DeleteActiveRequestGuard(requesterID, itemID string) error {
	return t.tx.Delete(t.client.Collection(activeGuardsCollection).Doc(models.ActiveRequestGuardID(requesterID, itemID)))
}

func (t *firestoreTx) GetChat(chatID string) (*models.Chat, error) {
	var chat models.Chat
	if err := t.get(t.client.Collection(chatCollection).Doc(chatID), "chat", &chat); err != nil {
		return nil, err
	}
	chat.ID = chatID
	return &chat, nil
}

func (t *firestoreTx) GetMessage(chatID, messageID string) (*models.Message, error) {
	var msg models.Message
	ref := t.client.Collection(chatCollection).Doc(chatID).Collection(messagesCollection).Doc(messageID)
	if err := t.get(ref, "message", &msg); err != nil {
		return nil, err
	}
	msg.ID = messageID
	return &msg, nil
}

func (t *firestoreTx) AppendMessage(chat *models.Chat, msg *models.Message) error {
	chatRef := t.client.Collection(chatCollection).Doc(chat.ID)
	msgs := chatRef.Collection(messagesCollection)
	var msgRef *firestore.DocumentRef
	if msg.ID == "" {
		msgRef = msgs.NewDoc()
		msg.ID = msgRef.ID
	} else {
		msgRef = msgs.Doc(msg.ID)
	}
	if err := t.tx.Create(msgRef, msg); err != nil {
		return err
	}

	summary := map[string]interface{}{
		"participants":    chat.Participants,
		"lastMessage":     msg.Text,
		"lastMessageTime": firestore.ServerTimestamp,
		"lastSender":      msg.SenderID,
		"unreadCount":     firestore.Increment(1),
	}
	if chat.ItemID != "" {
		summary["itemId"] = chat.ItemID
	}
	if chat.RentRequestID != "" {
		summary["rentRequestId"] = chat.RentRequestID
	}
	if chat.Status != "" {
		summary["status"] = chat.Status
	}
	return t.tx.Set(chatRef, summary, firestore.MergeAll)
}

func (t *firestoreTx) SetCardStatus(chatID, messageID string, s models.RentRequestStatus) error {
	ref := t.client.Collection(chatCollection).Doc(chatID).Collection(messagesCollection).Doc(messageID)
	return t.tx.Update(ref, []firestore.Update{{Path: "rentRequest.status", Value: string(s)}})
}

func (t *firestoreTx) UpdateCardTerms(chatID, messageID string, card *models.RentRequestCard) error {
	ref := t.client.Collection(chatCollection).Doc(chatID).Collection(messagesCollection).Doc(messageID)
	return t.tx.Update(ref, []firestore.Update{
		{Path: "rentRequest.startDate", Value: card.StartDate},
		{Path: "rentRequest.endDate", Value: card.EndDate},
		{Path: "rentRequest.pickupTime", Value: card.PickupTime},
		{Path: "rentRequest.totalPrice", Value: card.TotalPrice},
	})
}

func (t *firestoreTx) SubmitAssessment(chatID, messageID string, assessment *models.Assessment) error {
	ref := t.client.Collection(chatCollection).Doc(chatID).Collection(messagesCollection).Doc(messageID)
	return t.tx.Update(ref, []firestore.Update{{Path: "assessment", Value: assessment}})
}

func (t *firestoreTx) GetSession(sessionID string) (*models.Session, error) {
	var session models.Session
	if err := t.get(t.client.Collection(sessionsCollection).Doc(sessionID), "session", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (t *firestoreTx) ListActiveSessions(userID string) ([]*models.Session, error) {
	q := t.client.Collection(sessionsCollection).Where("userId", "==", userID).Where("isActive", "==", true)
	docs, err := t.tx.Documents(q).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions for user '%s': %w", userID, err)
	}
	sessions := make([]*models.Session, 0, len(docs))
	for _, doc := range docs {
		var s models.Session
		if err := doc.DataTo(&s); err != nil {
			return nil, fmt.Errorf("failed to decode session '%s': %w", doc.Ref.ID, err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, nil
}

func (t *firestoreTx) CreateSession(session *models.Session) error {
	return t.tx.Create(t.client.Collection(sessionsCollection).Doc(session.SessionID), session)
}

func (t *firestoreTx) TerminateSession(sessionID, reason string, at time.Time) error {
	return t.tx.Update(t.client.Collection(sessionsCollection).Doc(sessionID), []firestore.Update{
		{Path: "isActive", Value: false},
		{Path: "terminatedAt", Value: at},
		{Path: "terminationReason", Value: reason},
	})
}

func (t *firestoreTx) GetPayment(orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := t.get(t.client.Collection(paymentsCollection).Doc(orderID), "payment", &p); err != nil {
		return nil, err
	}
	p.OrderID = orderID
	return &p, nil
}

func (t *firestoreTx) CreatePayment(payment *models.Payment) error {
	return t.tx.Create(t.client.Collection(paymentsCollection).Doc(payment.OrderID), payment)
}

func (t *firestoreTx) CreateSubscription(sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = t.client.Collection(subscriptionsCollection).NewDoc().ID
	}
	return t.tx.Create(t.client.Collection(subscriptionsCollection).Doc(sub.ID), sub)
}

func (t *firestoreTx) CreateTransaction(txn *models.Transaction) error {
	return t.tx.Create(t.client.Collection(transactionsCollection).Doc(txn.TransactionID), txn)
}
