package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentshare-backend-go/internal/models"
)

// firestoreSessionRepository implements SessionRepository using Firestore.
type firestoreSessionRepository struct {
	client *firestore.Client
}

// NewFirestoreSessionRepository creates a new instance of firestoreSessionRepository.
func NewFirestoreSessionRepository(client *firestore.Client) SessionRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for SessionRepository.")
	}
	return &firestoreSessionRepository{client: client}
}

func (r *firestoreSessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	docSnap, err := r.client.Collection(sessionsCollection).Doc(sessionID).Get(ctx)
	if err != nil {
		return nil, wrapGetErr(err, "session", sessionID)
	}
	var s models.Session
	if err := docSnap.DataTo(&s); err != nil {
		return nil, fmt.Errorf("failed to decode session '%s': %w", sessionID, err)
	}
	return &s, nil
}

func (r *firestoreSessionRepository) ListActive(ctx context.Context, userID string) ([]*models.Session, error) {
	docs, err := r.client.Collection(sessionsCollection).
		Where("userId", "==", userID).
		Where("isActive", "==", true).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions for user '%s': %w", userID, err)
	}
	sessions := make([]*models.Session, 0, len(docs))
	for _, doc := range docs {
		var s models.Session
		if err := doc.DataTo(&s); err != nil {
			log.Printf("Error decoding session (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		sessions = append(sessions, &s)
	}
	return sessions, nil
}

func (r *firestoreSessionRepository) Create(ctx context.Context, session *models.Session) error {
	_, err := r.client.Collection(sessionsCollection).Doc(session.SessionID).Create(ctx, session)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("session '%s' already exists: %w", session.SessionID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create session '%s': %w", session.SessionID, err)
	}
	return nil
}

func (r *firestoreSessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.client.Collection(sessionsCollection).Doc(sessionID).Update(ctx, []firestore.Update{
		{Path: "lastActive", Value: at},
	})
	if err != nil {
		return fmt.Errorf("failed to touch session '%s': %w", sessionID, err)
	}
	return nil
}

func (r *firestoreSessionRepository) Terminate(ctx context.Context, sessionID, reason string, at time.Time) error {
	_, err := r.client.Collection(sessionsCollection).Doc(sessionID).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: false},
		{Path: "terminatedAt", Value: at},
		{Path: "terminationReason", Value: reason},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("session '%s' not found: %w", sessionID, ErrNotFound)
		}
		return fmt.Errorf("failed to terminate session '%s': %w", sessionID, err)
	}
	return nil
}
