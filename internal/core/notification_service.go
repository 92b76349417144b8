package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

// ErrPushTokenInvalid is returned by a Pusher when the device token is no longer registered.
var ErrPushTokenInvalid = errors.New("push token is no longer valid")

const (
	dispatchBatch  = 50
	retryBaseDelay = 30 * time.Second
	retryMaxDelay  = time.Hour
)

// retryDelay doubles per attempt starting at retryBaseDelay.
func retryDelay(attempts int) time.Duration {
	d := retryBaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return d
}

// notificationService implements the NotificationService interface.
type notificationService struct {
	outboxRepo  db.OutboxRepository
	notifRepo   db.NotificationRepository
	userRepo    db.UserRepository
	pusher      Pusher
	events      EventPublisher
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
}

// NewNotificationService creates a new NotificationService instance. pusher and events
// may be nil to disable push delivery and event mirroring.
func NewNotificationService(outboxRepo db.OutboxRepository, notifRepo db.NotificationRepository, userRepo db.UserRepository, pusher Pusher, events EventPublisher, maxAttempts int, logger *zap.Logger) NotificationService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &notificationService{
		outboxRepo:  outboxRepo,
		notifRepo:   notifRepo,
		userRepo:    userRepo,
		pusher:      pusher,
		events:      events,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

// Notify queues the notification. Delivery happens in DispatchPending.
func (s *notificationService) Notify(ctx context.Context, userID, kind, title, body string, data map[string]string) error {
	entry := &models.OutboxEntry{
		Kind:          kind,
		UserID:        userID,
		Title:         title,
		Body:          body,
		Data:          data,
		Status:        models.OutboxPending,
		NextAttemptAt: s.now(),
	}
	if err := s.outboxRepo.Enqueue(ctx, entry); err != nil {
		return fmt.Errorf("failed to enqueue %s notification: %w", kind, err)
	}
	return nil
}

// DispatchPending delivers due entries and returns how many were delivered.
// Failed entries are retried with backoff until maxAttempts, then parked as failed.
func (s *notificationService) DispatchPending(ctx context.Context) (int, error) {
	entries, err := s.outboxRepo.ListDue(ctx, s.now(), dispatchBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list due outbox entries: %w", err)
	}

	delivered := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if err := s.deliver(ctx, e); err != nil {
			s.recordFailure(ctx, e, err)
			continue
		}
		if err := s.outboxRepo.MarkDelivered(ctx, e.ID); err != nil {
			s.logger.Warn("Failed to mark outbox entry delivered", zap.String("entryID", e.ID), zap.Error(err))
			continue
		}
		s.publish(ctx, e)
		delivered++
	}
	if delivered > 0 {
		s.logger.Debug("Outbox dispatched", zap.Int("delivered", delivered), zap.Int("due", len(entries)))
	}
	return delivered, nil
}

// deliver writes the in-app notification and pushes it to the user's device.
// The notification ID is the entry ID so a retried entry does not duplicate it.
func (s *notificationService) deliver(ctx context.Context, e *models.OutboxEntry) error {
	n := &models.Notification{
		ID:    e.ID,
		Kind:  e.Kind,
		Title: e.Title,
		Body:  e.Body,
		Data:  e.Data,
	}
	if err := s.notifRepo.Create(ctx, e.UserID, n); err != nil {
		return err
	}
	if s.pusher == nil {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, e.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.PushToken == "" {
		return nil
	}
	if err := s.pusher.Push(ctx, user.PushToken, e.Title, e.Body, e.Data); err != nil {
		if errors.Is(err, ErrPushTokenInvalid) {
			s.logger.Info("Clearing stale push token", zap.String("userID", e.UserID))
			if err := s.userRepo.SetPushToken(ctx, e.UserID, ""); err != nil {
				s.logger.Warn("Failed to clear push token", zap.String("userID", e.UserID), zap.Error(err))
			}
			return nil
		}
		return err
	}
	return nil
}

// notificationEvent is the message mirrored for each delivered notification.
type notificationEvent struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Kind        string            `json:"kind"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	DeliveredAt time.Time         `json:"deliveredAt"`
}

// publish is best effort; the notification is already delivered.
func (s *notificationService) publish(ctx context.Context, e *models.OutboxEntry) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(notificationEvent{
		ID: e.ID, UserID: e.UserID, Kind: e.Kind, Title: e.Title, Body: e.Body, Data: e.Data,
		DeliveredAt: s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to encode notification event", zap.String("entryID", e.ID), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, "notification."+e.Kind, body); err != nil {
		s.logger.Warn("Failed to publish notification event", zap.String("entryID", e.ID), zap.Error(err))
	}
}

func (s *notificationService) recordFailure(ctx context.Context, e *models.OutboxEntry, cause error) {
	attempts := e.Attempts + 1
	status := models.OutboxPending
	if attempts >= s.maxAttempts {
		status = models.OutboxFailed
	}
	next := s.now().Add(retryDelay(attempts))
	s.logger.Warn("Outbox delivery failed",
		zap.String("entryID", e.ID), zap.String("kind", e.Kind),
		zap.Int("attempts", attempts), zap.String("status", status), zap.Error(cause))
	if err := s.outboxRepo.MarkAttemptFailed(ctx, e.ID, attempts, cause.Error(), next, status); err != nil {
		s.logger.Error("Failed to record outbox failure", zap.String("entryID", e.ID), zap.Error(err))
	}
}
