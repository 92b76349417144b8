// Package firebase adapts Firebase Auth and Cloud Messaging to the core ports.
package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"rentshare-backend-go/internal/core"
)

// authClient is the part of *auth.Client the adapters use.
type authClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
	EmailVerificationLink(ctx context.Context, email string) (string, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Identity implements core.IdentityProvider on Firebase Auth.
type Identity struct {
	client authClient
}

// NewIdentity wraps an Auth client.
func NewIdentity(client *auth.Client) *Identity {
	return &Identity{client: client}
}

func (i *Identity) CreateUser(ctx context.Context, email, password, displayName string) (*core.IdentityUser, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName).
		EmailVerified(false)
	rec, err := i.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrEmailTaken, email)
		}
		return nil, fmt.Errorf("firebase create user: %w", err)
	}
	return toIdentityUser(rec), nil
}

func (i *Identity) GetUser(ctx context.Context, uid string) (*core.IdentityUser, error) {
	rec, err := i.client.GetUser(ctx, uid)
	if err != nil {
		return nil, mapAuthErr(err, "get user "+uid)
	}
	return toIdentityUser(rec), nil
}

func (i *Identity) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := i.client.PasswordResetLink(ctx, email)
	if err != nil {
		return "", mapAuthErr(err, "password reset link")
	}
	return link, nil
}

func (i *Identity) EmailVerificationLink(ctx context.Context, email string) (string, error) {
	link, err := i.client.EmailVerificationLink(ctx, email)
	if err != nil {
		return "", mapAuthErr(err, "verification link")
	}
	return link, nil
}

// VerifyIDToken checks a client ID token and returns its uid and profile claims.
func (i *Identity) VerifyIDToken(ctx context.Context, idToken string) (*core.IdentityUser, error) {
	tok, err := i.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	u := &core.IdentityUser{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		u.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		u.DisplayName = name
	}
	if verified, ok := tok.Claims["email_verified"].(bool); ok {
		u.EmailVerified = verified
	}
	return u, nil
}

func mapAuthErr(err error, op string) error {
	if auth.IsUserNotFound(err) {
		return fmt.Errorf("%w: %s", core.ErrIdentityNotFound, op)
	}
	return fmt.Errorf("firebase %s: %w", op, err)
}

func toIdentityUser(rec *auth.UserRecord) *core.IdentityUser {
	return &core.IdentityUser{
		UID:           rec.UID,
		Email:         rec.Email,
		DisplayName:   rec.DisplayName,
		EmailVerified: rec.EmailVerified,
	}
}
