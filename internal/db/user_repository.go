package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentshare-backend-go/internal/models"
)

const usersCollection = "users"

// ErrAlreadyExists is returned when creating a document whose ID is taken.
var ErrAlreadyExists = errors.New("document already exists")

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for UserRepository.")
	}
	return &firestoreUserRepository{client: client}
}

// Create adds a new user document keyed by the Firebase Auth UID.
// CreatedAt and UpdatedAt are populated server-side through the serverTimestamp tag.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s' already exists: %w", user.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document by its Firebase Auth UID.
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		return nil, wrapGetErr(err, "user", userID)
	}

	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", userID, err)
	}
	user.ID = docSnap.Ref.ID
	return &user, nil
}

// Update writes the editable profile fields. currentPlan is deliberately excluded:
// it only changes inside quota and payment transactions.
func (r *firestoreUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}
	updates := []firestore.Update{
		{Path: "fullname", Value: user.Fullname},
		{Path: "emailVerified", Value: user.EmailVerified},
		{Path: "profileImage", Value: user.ProfileImage},
		{Path: "contactNumber", Value: user.ContactNumber},
		{Path: "birthday", Value: user.Birthday},
		{Path: "location", Value: user.Location},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if user.IDVerification != nil {
		updates = append(updates, firestore.Update{Path: "idVerification", Value: user.IDVerification})
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("user with ID '%s' not found for update: %w", user.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to update user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// SetPushToken stores the device push token used by the notification dispatcher.
// An empty token clears it.
func (r *firestoreUserRepository) SetPushToken(ctx context.Context, userID, token string) error {
	var value interface{} = token
	if token == "" {
		value = firestore.Delete
	}
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "pushToken", Value: value},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to set push token for user '%s': %w", userID, err)
	}
	return nil
}
