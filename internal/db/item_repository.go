package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentshare-backend-go/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// firestoreItemRepository implements the ItemRepository interface using Firestore.
type firestoreItemRepository struct {
	client *firestore.Client
}

// NewFirestoreItemRepository creates a new instance of firestoreItemRepository.
func NewFirestoreItemRepository(client *firestore.Client) ItemRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ItemRepository.")
	}
	return &firestoreItemRepository{client: client}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// GetByID retrieves a listing by its document ID.
func (r *firestoreItemRepository) GetByID(ctx context.Context, itemID string) (*models.Item, error) {
	if itemID == "" {
		return nil, errors.New("itemID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(itemsCollection).Doc(itemID).Get(ctx)
	if err != nil {
		return nil, wrapGetErr(err, "item", itemID)
	}
	var item models.Item
	if err := docSnap.DataTo(&item); err != nil {
		return nil, fmt.Errorf("failed to decode item data for ID '%s': %w", itemID, err)
	}
	item.ID = docSnap.Ref.ID
	return &item, nil
}

// ListByOwner returns the owner's listings, newest first.
func (r *firestoreItemRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Item, error) {
	query := r.client.Collection(itemsCollection).
		Where("owner.id", "==", ownerID).
		OrderBy("createdAt", firestore.Desc).
		Limit(clampLimit(limit))
	return r.collect(ctx, query, "")
}

// Search lists available items, optionally by category, newest first. Keyword matching
// is a case-insensitive substring filter applied after the query since Firestore has no
// full-text search.
func (r *firestoreItemRepository) Search(ctx context.Context, search models.ItemSearch) ([]*models.Item, error) {
	query := r.client.Collection(itemsCollection).Where("itemStatus", "==", models.ItemStatusAvailable)
	if search.Category != "" {
		query = query.Where("category", "==", search.Category)
	}
	query = query.OrderBy("createdAt", firestore.Desc).Limit(clampLimit(search.Limit))

	if search.StartAfter != "" {
		startAfterSnap, err := r.client.Collection(itemsCollection).Doc(search.StartAfter).Get(ctx)
		if err == nil {
			query = query.StartAfter(startAfterSnap)
		} else {
			log.Printf("Warning: Could not fetch startAfter document '%s': %v. Pagination may be affected.", search.StartAfter, err)
		}
	}
	return r.collect(ctx, query, strings.ToLower(strings.TrimSpace(search.Keyword)))
}

func (r *firestoreItemRepository) collect(ctx context.Context, query firestore.Query, keyword string) ([]*models.Item, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	items := []*models.Item{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate items: %w", err)
		}
		var item models.Item
		if err := doc.DataTo(&item); err != nil {
			log.Printf("Error decoding item data (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		item.ID = doc.Ref.ID
		if keyword != "" &&
			!strings.Contains(strings.ToLower(item.ItemName), keyword) &&
			!strings.Contains(strings.ToLower(item.ItemDesc), keyword) {
			continue
		}
		items = append(items, &item)
	}
	return items, nil
}

// AppendImage adds a download URL to the listing's image list.
func (r *firestoreItemRepository) AppendImage(ctx context.Context, itemID, url string) error {
	_, err := r.client.Collection(itemsCollection).Doc(itemID).Update(ctx, []firestore.Update{
		{Path: "images", Value: firestore.ArrayUnion(url)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("item with ID '%s' not found: %w", itemID, ErrNotFound)
		}
		return fmt.Errorf("failed to append image to item '%s': %w", itemID, err)
	}
	return nil
}
