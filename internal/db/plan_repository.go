package db

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"rentshare-backend-go/internal/models"
)

// firestorePlanRepository implements PlanRepository using Firestore.
type firestorePlanRepository struct {
	client *firestore.Client
}

// NewFirestorePlanRepository creates a new instance of firestorePlanRepository.
func NewFirestorePlanRepository(client *firestore.Client) PlanRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for PlanRepository.")
	}
	return &firestorePlanRepository{client: client}
}

func (r *firestorePlanRepository) GetByID(ctx context.Context, planID string) (*models.Plan, error) {
	docSnap, err := r.client.Collection(plansCollection).Doc(planID).Get(ctx)
	if err != nil {
		return nil, wrapGetErr(err, "plan", planID)
	}
	var plan models.Plan
	if err := docSnap.DataTo(&plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan '%s': %w", planID, err)
	}
	plan.ID = docSnap.Ref.ID
	return &plan, nil
}

func (r *firestorePlanRepository) ListByType(ctx context.Context, planType string) ([]*models.Plan, error) {
	return r.collect(r.client.Collection(plansCollection).Where("planType", "==", planType).Documents(ctx))
}

func (r *firestorePlanRepository) List(ctx context.Context) ([]*models.Plan, error) {
	return r.collect(r.client.Collection(plansCollection).OrderBy("price", firestore.Asc).Documents(ctx))
}

// Upsert replaces the plan document with the given id.
func (r *firestorePlanRepository) Upsert(ctx context.Context, plan *models.Plan) error {
	if _, err := r.client.Collection(plansCollection).Doc(plan.ID).Set(ctx, plan); err != nil {
		return fmt.Errorf("failed to write plan '%s': %w", plan.ID, err)
	}
	return nil
}

func (r *firestorePlanRepository) collect(iter *firestore.DocumentIterator) ([]*models.Plan, error) {
	defer iter.Stop()
	plans := []*models.Plan{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate plans: %w", err)
		}
		var plan models.Plan
		if err := doc.DataTo(&plan); err != nil {
			log.Printf("Error decoding plan (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		plan.ID = doc.Ref.ID
		plans = append(plans, &plan)
	}
	return plans, nil
}
