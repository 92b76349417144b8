package core

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

// Custom errors for the AccountService.
var (
	ErrEmailTaken       = errors.New("email is already registered")
	ErrIdentityProvider = errors.New("identity provider error")
	ErrEmailDelivery    = errors.New("failed to send email")
	ErrAlreadyVerified  = errors.New("email is already verified")
	ErrIdentityNotFound = errors.New("no account for this email")
)

// EmailStatus reports whether an email went out or how long until one may be sent.
type EmailStatus struct {
	Sent     bool    `json:"sent"`
	Cooldown float64 `json:"cooldown,omitempty"` // seconds remaining
}

func resetCooldownKey(email string) string {
	return "email:reset:cooldown:" + strings.ToLower(strings.TrimSpace(email))
}

func verifyCooldownKey(userID string) string {
	return "email:verify:cooldown:" + userID
}

// accountService implements the AccountService interface.
type accountService struct {
	identity IdentityProvider
	userRepo db.UserRepository
	mailer   Mailer
	cooldown Cooldown
	notifier Notifier
	window   time.Duration
	logger   *zap.Logger
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(identity IdentityProvider, userRepo db.UserRepository, mailer Mailer, cooldown Cooldown, notifier Notifier, window time.Duration, logger *zap.Logger) AccountService {
	return &accountService{
		identity: identity,
		userRepo: userRepo,
		mailer:   mailer,
		cooldown: cooldown,
		notifier: notifier,
		window:   window,
		logger:   logger,
	}
}

// SignUp creates the identity account and the profile document, then sends the
// verification email. The email is best effort: the account exists either way.
func (s *accountService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	fullname := strings.TrimSpace(req.Fullname)

	iu, err := s.identity.CreateUser(ctx, email, req.Password, fullname)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		s.logger.Error("Identity provider rejected sign up", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrIdentityProvider, err)
	}

	user := &models.User{ID: iu.UID, Email: email, Fullname: fullname}
	if err := s.userRepo.Create(ctx, user); err != nil && !errors.Is(err, db.ErrAlreadyExists) {
		return nil, fmt.Errorf("failed to create profile for '%s': %w", iu.UID, err)
	}

	if _, err := s.sendVerification(ctx, iu.UID, email, fullname); err != nil {
		s.logger.Warn("Verification email after sign up failed", zap.String("userID", iu.UID), zap.Error(err))
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, iu.UID, models.NotifyWelcome, "Welcome",
			"Claim your free plan to start listing and renting.", nil); err != nil {
			s.logger.Warn("Failed to queue welcome notification", zap.String("userID", iu.UID), zap.Error(err))
		}
	}
	s.logger.Info("User signed up", zap.String("userID", iu.UID))
	return user, nil
}

// SendPasswordReset mails a reset link at most once per cooldown window per email.
// Unknown emails look like a successful send so the endpoint cannot be used to discover accounts.
func (s *accountService) SendPasswordReset(ctx context.Context, email string) (*EmailStatus, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	key := resetCooldownKey(email)

	status, err := s.acquire(ctx, key)
	if err != nil || !status.Sent {
		return status, err
	}

	link, err := s.identity.PasswordResetLink(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return &EmailStatus{Sent: true}, nil
		}
		s.release(ctx, key)
		return nil, fmt.Errorf("%w: %w", ErrIdentityProvider, err)
	}

	body := fmt.Sprintf(`<p>We received a request to reset your password.</p><p><a href="%s">Reset password</a></p><p>If you did not ask for this, ignore this email.</p>`,
		html.EscapeString(link))
	if err := s.mailer.Send(ctx, email, "Reset your password", body); err != nil {
		s.release(ctx, key)
		return nil, fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}
	return &EmailStatus{Sent: true}, nil
}

// ResendVerification sends a new verification link for the caller's email.
func (s *accountService) ResendVerification(ctx context.Context, userID string) (*EmailStatus, error) {
	iu, err := s.identity.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityProvider, err)
	}
	if iu.EmailVerified {
		return nil, ErrAlreadyVerified
	}
	return s.sendVerification(ctx, userID, iu.Email, iu.DisplayName)
}

func (s *accountService) sendVerification(ctx context.Context, userID, email, name string) (*EmailStatus, error) {
	key := verifyCooldownKey(userID)
	status, err := s.acquire(ctx, key)
	if err != nil || !status.Sent {
		return status, err
	}

	link, err := s.identity.EmailVerificationLink(ctx, email)
	if err != nil {
		s.release(ctx, key)
		return nil, fmt.Errorf("%w: %w", ErrIdentityProvider, err)
	}
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + html.EscapeString(name)
	}
	body := fmt.Sprintf(`<p>%s,</p><p>Confirm your email address to complete your profile.</p><p><a href="%s">Verify email</a></p>`,
		greeting, html.EscapeString(link))
	if err := s.mailer.Send(ctx, email, "Verify your email", body); err != nil {
		s.release(ctx, key)
		return nil, fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}
	return &EmailStatus{Sent: true}, nil
}

// acquire returns Sent=true when the caller may send now.
func (s *accountService) acquire(ctx context.Context, key string) (*EmailStatus, error) {
	ok, remaining, err := s.cooldown.Acquire(ctx, key, s.window)
	if err != nil {
		return nil, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	if !ok {
		return &EmailStatus{Sent: false, Cooldown: math.Ceil(remaining.Seconds())}, nil
	}
	return &EmailStatus{Sent: true}, nil
}

func (s *accountService) release(ctx context.Context, key string) {
	if err := s.cooldown.Release(ctx, key); err != nil {
		s.logger.Warn("Failed to release email cooldown", zap.String("key", key), zap.Error(err))
	}
}
