package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"rentshare-backend-go/internal/models"
)

// firestoreNotificationRepository stores in-app notifications under users/{uid}/notifications.
type firestoreNotificationRepository struct {
	client *firestore.Client
}

// NewFirestoreNotificationRepository creates a new instance of firestoreNotificationRepository.
func NewFirestoreNotificationRepository(client *firestore.Client) NotificationRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for NotificationRepository.")
	}
	return &firestoreNotificationRepository{client: client}
}

func (r *firestoreNotificationRepository) coll(userID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(notificationsCollection)
}

// Create writes the notification. A preset ID makes redelivery idempotent.
func (r *firestoreNotificationRepository) Create(ctx context.Context, userID string, n *models.Notification) error {
	var ref *firestore.DocumentRef
	if n.ID == "" {
		ref = r.coll(userID).NewDoc()
		n.ID = ref.ID
	} else {
		ref = r.coll(userID).Doc(n.ID)
	}
	if _, err := ref.Set(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification for user '%s': %w", userID, err)
	}
	return nil
}

func (r *firestoreNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	iter := r.coll(userID).OrderBy("createdAt", firestore.Desc).Limit(clampLimit(limit)).Documents(ctx)
	defer iter.Stop()

	list := []*models.Notification{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate notifications for user '%s': %w", userID, err)
		}
		var n models.Notification
		if err := doc.DataTo(&n); err != nil {
			log.Printf("Error decoding notification (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		n.ID = doc.Ref.ID
		list = append(list, &n)
	}
	return list, nil
}

// firestoreOutboxRepository implements OutboxRepository using Firestore.
type firestoreOutboxRepository struct {
	client *firestore.Client
}

// NewFirestoreOutboxRepository creates a new instance of firestoreOutboxRepository.
func NewFirestoreOutboxRepository(client *firestore.Client) OutboxRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for OutboxRepository.")
	}
	return &firestoreOutboxRepository{client: client}
}

func (r *firestoreOutboxRepository) Enqueue(ctx context.Context, entry *models.OutboxEntry) error {
	ref := r.client.Collection(outboxCollection).NewDoc()
	entry.ID = ref.ID
	if _, err := ref.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to enqueue outbox entry (%s): %w", entry.Kind, err)
	}
	return nil
}

// ListDue returns pending entries whose next attempt is due, oldest first.
func (r *firestoreOutboxRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEntry, error) {
	iter := r.client.Collection(outboxCollection).
		Where("status", "==", models.OutboxPending).
		Where("nextAttemptAt", "<=", now).
		OrderBy("nextAttemptAt", firestore.Asc).
		Limit(clampLimit(limit)).
		Documents(ctx)
	defer iter.Stop()

	entries := []*models.OutboxEntry{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate outbox: %w", err)
		}
		var e models.OutboxEntry
		if err := doc.DataTo(&e); err != nil {
			log.Printf("Error decoding outbox entry (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		e.ID = doc.Ref.ID
		entries = append(entries, &e)
	}
	return entries, nil
}

func (r *firestoreOutboxRepository) MarkDelivered(ctx context.Context, entryID string) error {
	_, err := r.client.Collection(outboxCollection).Doc(entryID).Update(ctx, []firestore.Update{
		{Path: "status", Value: models.OutboxDelivered},
	})
	if err != nil {
		return fmt.Errorf("failed to mark outbox entry '%s' delivered: %w", entryID, err)
	}
	return nil
}

func (r *firestoreOutboxRepository) MarkAttemptFailed(ctx context.Context, entryID string, attempts int, lastErr string, next time.Time, status string) error {
	_, err := r.client.Collection(outboxCollection).Doc(entryID).Update(ctx, []firestore.Update{
		{Path: "attempts", Value: attempts},
		{Path: "lastError", Value: lastErr},
		{Path: "nextAttemptAt", Value: next},
		{Path: "status", Value: status},
	})
	if err != nil {
		return fmt.Errorf("failed to record outbox failure for '%s': %w", entryID, err)
	}
	return nil
}
