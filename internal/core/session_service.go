package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

// Custom errors for the SessionService.
var (
	ErrSessionConflict   = errors.New("another session is active")
	ErrLoginAborted      = errors.New("login aborted")
	ErrLoginFailed       = errors.New("login failed")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionTerminated = errors.New("session is no longer active")
	ErrNotSessionOwner   = errors.New("session belongs to another user")
)

// SessionConflictError carries the sessions the caller has to decide about.
type SessionConflictError struct {
	Active []*models.Session
}

func (e *SessionConflictError) Error() string {
	return fmt.Sprintf("%s: %d active", ErrSessionConflict, len(e.Active))
}

func (e *SessionConflictError) Unwrap() error { return ErrSessionConflict }

// sessionService implements the SessionService interface.
type sessionService struct {
	store       db.Store
	sessionRepo db.SessionRepository
	settleDelay time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewSessionService creates a new SessionService instance.
func NewSessionService(store db.Store, sessionRepo db.SessionRepository, settleDelay time.Duration, logger *zap.Logger) SessionService {
	return &sessionService{
		store:       store,
		sessionRepo: sessionRepo,
		settleDelay: settleDelay,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

func (s *sessionService) CheckActiveSession(ctx context.Context, userID string) ([]*models.Session, error) {
	sessions, err := s.sessionRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions for user '%s': %w", userID, err)
	}
	return sessions, nil
}

// CreateUserSession opens a session without looking at existing ones.
func (s *sessionService) CreateUserSession(ctx context.Context, userID string, device models.DeviceInfo) (*models.Session, error) {
	session := s.newSession(userID, device)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error("Failed to create session", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	return session, nil
}

// Login opens a session, resolving conflicts with other active sessions as the caller chose.
func (s *sessionService) Login(ctx context.Context, userID string, device models.DeviceInfo, resolution models.ConflictResolution) (*models.LoginResult, error) {
	if resolution == models.ResolutionAbort {
		return nil, ErrLoginAborted
	}

	session := s.newSession(userID, device)
	var terminated []string
	var conflict []*models.Session

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		terminated = nil
		conflict = nil
		active, err := tx.ListActiveSessions(userID)
		if err != nil {
			return err
		}
		if len(active) > 0 && resolution != models.ResolutionTerminateOthers {
			conflict = active
			return &SessionConflictError{Active: active}
		}
		at := s.now()
		for _, a := range active {
			if err := tx.TerminateSession(a.SessionID, models.TerminationConflictResolution, at); err != nil {
				return err
			}
			terminated = append(terminated, a.SessionID)
		}
		return tx.CreateSession(session)
	})
	if err != nil {
		if conflict != nil {
			return nil, &SessionConflictError{Active: conflict}
		}
		s.logger.Error("Login transaction failed", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	result := &models.LoginResult{Session: session, TerminatedSessions: terminated}
	if len(terminated) > 0 {
		result.RemainingConflicts = s.settle(ctx, userID, session)
		s.logger.Info("Sessions terminated by new login",
			zap.String("userID", userID), zap.Strings("sessionIDs", terminated))
	}
	return result, nil
}

// settle waits for concurrent logins to land, then ends active sessions that started
// before keep. Newer sessions come from a later terminate-others login, which has already
// ended keep and owns the cleanup. It returns how many older active sessions it ended.
func (s *sessionService) settle(ctx context.Context, userID string, keep *models.Session) int {
	if s.settleDelay > 0 {
		t := time.NewTimer(s.settleDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return 0
		case <-t.C:
		}
	}

	active, err := s.sessionRepo.ListActive(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to re-verify sessions after login", zap.String("userID", userID), zap.Error(err))
		return 0
	}
	extra := 0
	for _, a := range active {
		if a.SessionID == keep.SessionID || !a.StartedBefore(keep) {
			continue
		}
		extra++
		s.logger.Warn("Extra active session after conflict resolution",
			zap.String("userID", userID), zap.String("sessionID", a.SessionID))
		if err := s.sessionRepo.Terminate(ctx, a.SessionID, models.TerminationConflictResolution, s.now()); err != nil {
			s.logger.Warn("Failed to terminate extra session", zap.String("sessionID", a.SessionID), zap.Error(err))
		}
	}
	return extra
}

// ForceTerminateSession ends another session of the same user. Missing or already
// inactive sessions yield Success=false instead of an error.
func (s *sessionService) ForceTerminateSession(ctx context.Context, userID, sessionID string) (*models.TerminateResult, error) {
	return s.terminate(ctx, userID, sessionID, models.TerminationForced)
}

// TerminateCurrentSession is logout.
func (s *sessionService) TerminateCurrentSession(ctx context.Context, userID, sessionID string) (*models.TerminateResult, error) {
	return s.terminate(ctx, userID, sessionID, models.TerminationLogout)
}

func (s *sessionService) terminate(ctx context.Context, userID, sessionID, reason string) (*models.TerminateResult, error) {
	result := &models.TerminateResult{SessionID: sessionID}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		result.Success = false
		result.Reason = ""
		session, err := tx.GetSession(sessionID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				result.Reason = "not_found"
				return nil
			}
			return err
		}
		if session.UserID != userID {
			return fmt.Errorf("%w: '%s'", ErrNotSessionOwner, sessionID)
		}
		if !session.IsActive {
			result.Reason = "already_inactive"
			return nil
		}
		if err := tx.TerminateSession(sessionID, reason, s.now()); err != nil {
			return err
		}
		result.Success = true
		result.Reason = reason
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotSessionOwner) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to terminate session '%s': %w", sessionID, err)
	}
	return result, nil
}

// ValidateSession checks that sessionID is an active session of userID and bumps lastActive.
func (s *sessionService) ValidateSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: '%s'", ErrSessionNotFound, sessionID)
		}
		return fmt.Errorf("failed to load session '%s': %w", sessionID, err)
	}
	if session.UserID != userID {
		return fmt.Errorf("%w: '%s'", ErrNotSessionOwner, sessionID)
	}
	if !session.IsActive {
		return fmt.Errorf("%w: '%s' (%s)", ErrSessionTerminated, sessionID, session.TerminationReason)
	}
	if err := s.sessionRepo.Touch(ctx, sessionID, s.now()); err != nil {
		s.logger.Warn("Failed to update session activity", zap.String("sessionID", sessionID), zap.Error(err))
	}
	return nil
}

func (s *sessionService) newSession(userID string, device models.DeviceInfo) *models.Session {
	now := s.now()
	return &models.Session{
		SessionID:  models.NewSessionID(userID, now),
		UserID:     userID,
		DeviceInfo: device,
		IsActive:   true,
		CreatedAt:  now,
		LastActive: now,
	}
}
