package core

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

// ErrUserNotFound is returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

const idVerificationSubmitted = "submitted"

// userService implements the UserService interface.
type userService struct {
	userRepo  db.UserRepository
	notifRepo db.NotificationRepository
	identity  IdentityProvider
	objects   ObjectStore
	sealer    Encryptor
	logger    *zap.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo db.UserRepository, notifRepo db.NotificationRepository, identity IdentityProvider, objects ObjectStore, sealer Encryptor, logger *zap.Logger) UserService {
	return &userService{
		userRepo:  userRepo,
		notifRepo: notifRepo,
		identity:  identity,
		objects:   objects,
		sealer:    sealer,
		logger:    logger,
	}
}

// GetOrCreateUser retrieves a user by ID. If the user doesn't exist, it creates one from
// the identity claims. A concurrent create by another request is treated as found.
func (s *userService) GetOrCreateUser(ctx context.Context, userID, email, fullname string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}

	newUser := &models.User{
		ID:       userID,
		Email:    email,
		Fullname: strings.TrimSpace(fullname),
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			return s.getUser(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create user (id: %s) after not found: %w", userID, err)
	}
	s.logger.Info("User profile created", zap.String("userID", userID))
	return newUser, nil
}

// GetProfile returns the user with its completion score. The email verification flag is
// refreshed from the identity provider since users verify outside the app.
func (s *userService) GetProfile(ctx context.Context, userID string) (*models.UserProfileResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.refreshEmailVerified(ctx, user)
	return &models.UserProfileResponse{
		User:       user,
		Completion: EvaluateProfileCompletion(user),
	}, nil
}

func (s *userService) GetCompletion(ctx context.Context, userID string) (models.ProfileCompletion, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return models.ProfileCompletion{}, err
	}
	s.refreshEmailVerified(ctx, user)
	return EvaluateProfileCompletion(user), nil
}

// UpdateProfile applies the provided fields. Nil fields are left untouched.
func (s *userService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Fullname != nil {
		user.Fullname = strings.TrimSpace(*req.Fullname)
	}
	if req.ContactNumber != nil {
		user.ContactNumber = strings.TrimSpace(*req.ContactNumber)
	}
	if req.Birthday != nil {
		user.Birthday = strings.TrimSpace(*req.Birthday)
	}
	if req.Location != nil {
		user.Location = strings.TrimSpace(*req.Location)
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

// UploadAvatar stores the image under users/{uid}/avatar/ and points the profile at it.
func (s *userService) UploadAvatar(ctx context.Context, userID string, upload FileUpload) (*models.User, error) {
	ext, ok := imageExtensions[upload.ContentType]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedImage, upload.ContentType)
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	objectPath := path.Join("users", userID, "avatar", uuid.NewString()+ext)
	url, err := s.objects.Upload(ctx, objectPath, upload.ContentType, upload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar for user '%s': %w", userID, err)
	}
	user.ProfileImage = url
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

// SubmitIDVerification encrypts the document before it leaves the process.
func (s *userService) SubmitIDVerification(ctx context.Context, userID string, upload FileUpload) (*models.User, error) {
	if _, ok := imageExtensions[upload.ContentType]; !ok && upload.ContentType != "application/pdf" {
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedImage, upload.ContentType)
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sealed, err := s.sealer.Seal(upload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt id document for user '%s': %w", userID, err)
	}
	objectPath := path.Join("users", userID, "id-verification", uuid.NewString()+".enc")
	url, err := s.objects.Upload(ctx, objectPath, "application/octet-stream", sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to upload id document for user '%s': %w", userID, err)
	}

	user.IDVerification = &models.IDVerification{
		DocumentURL:  url,
		DocumentPath: objectPath,
		Status:       idVerificationSubmitted,
		SubmittedAt:  time.Now().UTC(),
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	s.logger.Info("ID verification submitted", zap.String("userID", userID))
	return user, nil
}

func (s *userService) RegisterPushToken(ctx context.Context, userID, token string) error {
	if err := s.userRepo.SetPushToken(ctx, userID, strings.TrimSpace(token)); err != nil {
		return mapNotFound(err, ErrUserNotFound)
	}
	return nil
}

func (s *userService) ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	list, err := s.notifRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user '%s': %w", userID, err)
	}
	return list, nil
}

func (s *userService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}
	return user, nil
}

// refreshEmailVerified copies a newly verified email flag onto the stored profile.
// Lookup failures keep the stored value.
func (s *userService) refreshEmailVerified(ctx context.Context, user *models.User) {
	if user.EmailVerified || s.identity == nil {
		return
	}
	iu, err := s.identity.GetUser(ctx, user.ID)
	if err != nil {
		s.logger.Warn("Failed to refresh email verification", zap.String("userID", user.ID), zap.Error(err))
		return
	}
	if !iu.EmailVerified {
		return
	}
	user.EmailVerified = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn("Failed to persist email verification", zap.String("userID", user.ID), zap.Error(err))
	}
}
