package db

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"rentshare-backend-go/internal/models"
)

// firestoreRentRequestRepository implements RentRequestRepository using Firestore.
type firestoreRentRequestRepository struct {
	client *firestore.Client
}

// NewFirestoreRentRequestRepository creates a new instance of firestoreRentRequestRepository.
func NewFirestoreRentRequestRepository(client *firestore.Client) RentRequestRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for RentRequestRepository.")
	}
	return &firestoreRentRequestRepository{client: client}
}

func (r *firestoreRentRequestRepository) GetByID(ctx context.Context, requestID string) (*models.RentRequest, error) {
	docSnap, err := r.client.Collection(rentRequestsCollection).Doc(requestID).Get(ctx)
	if err != nil {
		return nil, wrapGetErr(err, "rent request", requestID)
	}
	var req models.RentRequest
	if err := docSnap.DataTo(&req); err != nil {
		return nil, fmt.Errorf("failed to decode rent request '%s': %w", requestID, err)
	}
	req.ID = docSnap.Ref.ID
	req.Status = req.Status.Normalize()
	return &req, nil
}

// ListByRequester returns the caller's outgoing requests, newest first.
func (r *firestoreRentRequestRepository) ListByRequester(ctx context.Context, requesterID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error) {
	return r.list(ctx, "requesterId", requesterID, statuses, limit)
}

// ListByOwner returns requests for the caller's items, newest first.
func (r *firestoreRentRequestRepository) ListByOwner(ctx context.Context, ownerID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error) {
	return r.list(ctx, "ownerId", ownerID, statuses, limit)
}

func (r *firestoreRentRequestRepository) list(ctx context.Context, field, uid string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error) {
	query := r.client.Collection(rentRequestsCollection).Where(field, "==", uid)
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses)+1)
		for _, s := range statuses {
			values = append(values, string(s))
			if s == models.RentStatusAccepted {
				values = append(values, "approved")
			}
		}
		query = query.Where("status", "in", values)
	}
	query = query.OrderBy("createdAt", firestore.Desc).Limit(clampLimit(limit))

	iter := query.Documents(ctx)
	defer iter.Stop()

	requests := []*models.RentRequest{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate rent requests for %s '%s': %w", field, uid, err)
		}
		var req models.RentRequest
		if err := doc.DataTo(&req); err != nil {
			log.Printf("Error decoding rent request (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		req.ID = doc.Ref.ID
		req.Status = req.Status.Normalize()
		requests = append(requests, &req)
	}
	return requests, nil
}

func (r *firestoreRentRequestRepository) GetActiveGuard(ctx context.Context, requesterID, itemID string) (*models.ActiveRequestGuard, error) {
	id := models.ActiveRequestGuardID(requesterID, itemID)
	docSnap, err := r.client.Collection(activeGuardsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrapGetErr(err, "active request guard", id)
	}
	var guard models.ActiveRequestGuard
	if err := docSnap.DataTo(&guard); err != nil {
		return nil, fmt.Errorf("failed to decode active request guard '%s': %w", id, err)
	}
	return &guard, nil
}
