package db

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"

	"rentshare-backend-go/internal/models"
)

// firestorePaymentRepository reads the append-only subscription and transaction ledger.
type firestorePaymentRepository struct {
	client *firestore.Client
}

// NewFirestorePaymentRepository creates a new instance of firestorePaymentRepository.
func NewFirestorePaymentRepository(client *firestore.Client) PaymentRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for PaymentRepository.")
	}
	return &firestorePaymentRepository{client: client}
}

func (r *firestorePaymentRepository) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	docSnap, err := r.client.Collection(transactionsCollection).Doc(transactionID).Get(ctx)
	if err != nil {
		return nil, wrapGetErr(err, "transaction", transactionID)
	}
	var txn models.Transaction
	if err := docSnap.DataTo(&txn); err != nil {
		return nil, fmt.Errorf("failed to decode transaction '%s': %w", transactionID, err)
	}
	return &txn, nil
}

func (r *firestorePaymentRepository) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	docSnap, err := r.client.Collection(subscriptionsCollection).Doc(subscriptionID).Get(ctx)
	if err != nil {
		return nil, wrapGetErr(err, "subscription", subscriptionID)
	}
	var sub models.Subscription
	if err := docSnap.DataTo(&sub); err != nil {
		return nil, fmt.Errorf("failed to decode subscription '%s': %w", subscriptionID, err)
	}
	sub.ID = docSnap.Ref.ID
	return &sub, nil
}
