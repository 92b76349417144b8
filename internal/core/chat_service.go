package core

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

// Custom errors for the ChatService.
var (
	ErrChatNotFound      = errors.New("chat not found")
	ErrNotParticipant    = errors.New("user is not a participant of this chat")
	ErrInvalidMessage    = errors.New("message must be between 1 and 2000 characters")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNotAssessment     = errors.New("message is not a condition report")
	ErrAssessmentLocked  = errors.New("condition report was already submitted")
	ErrNotRenter         = errors.New("only the renter can submit the condition report")
	ErrNoLinkedRequest   = errors.New("chat has no rent request to assess")
	ErrInvalidAssessment = errors.New("invalid condition report")
)

const (
	maxMessageLength = 2000
	messageWindow    = 100
	chatListLimit    = 50
)

// chatService implements the ChatService interface.
type chatService struct {
	store    db.Store
	chatRepo db.ChatRepository
	reqRepo  db.RentRequestRepository
	objects  ObjectStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewChatService creates a new ChatService instance.
func NewChatService(store db.Store, chatRepo db.ChatRepository, reqRepo db.RentRequestRepository, objects ObjectStore, logger *zap.Logger) ChatService {
	return &chatService{
		store:    store,
		chatRepo: chatRepo,
		reqRepo:  reqRepo,
		objects:  objects,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

func (s *chatService) ListChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	chats, err := s.chatRepo.ListByParticipant(ctx, userID, chatListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats for user '%s': %w", userID, err)
	}
	return chats, nil
}

// ListMessages returns the latest messages oldest first with the newest request card pinned.
func (s *chatService) ListMessages(ctx context.Context, chatID, userID string) (*models.MessagePage, error) {
	if _, err := s.authorize(ctx, chatID, userID); err != nil {
		return nil, err
	}
	newest, err := s.chatRepo.ListRecentMessages(ctx, chatID, messageWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for chat '%s': %w", chatID, err)
	}
	return buildPage(chatID, userID, newest), nil
}

// StreamMessages pushes a fresh page on every change until ctx ends.
func (s *chatService) StreamMessages(ctx context.Context, chatID, userID string, fn func(*models.MessagePage) error) error {
	if _, err := s.authorize(ctx, chatID, userID); err != nil {
		return err
	}
	return s.chatRepo.WatchRecentMessages(ctx, chatID, messageWindow, func(newest []*models.Message) error {
		return fn(buildPage(chatID, userID, newest))
	})
}

// buildPage reverses a newest-first window and fills per-viewer fields.
func buildPage(chatID, viewerID string, newest []*models.Message) *models.MessagePage {
	page := &models.MessagePage{ChatID: chatID, Messages: make([]*models.Message, 0, len(newest))}
	for i := len(newest) - 1; i >= 0; i-- {
		m := newest[i]
		if m.Assessment != nil {
			m.Guidance = m.Assessment.Guidance(viewerID)
		}
		if m.Type == models.MessageTypeRentRequest {
			page.Pinned = m
		}
		page.Messages = append(page.Messages, m)
	}
	return page
}

// SendMessage appends a text message and bumps the chat summary.
func (s *chatService) SendMessage(ctx context.Context, chatID, senderID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > maxMessageLength {
		return nil, ErrInvalidMessage
	}

	msg := &models.Message{SenderID: senderID, Text: text, Type: models.MessageTypeText}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		msg.ID = ""
		chat, err := tx.GetChat(chatID)
		if err != nil {
			return mapNotFound(err, ErrChatNotFound)
		}
		if !chat.HasParticipant(senderID) {
			return fmt.Errorf("%w: chat '%s'", ErrNotParticipant, chatID)
		}
		return tx.AppendMessage(&models.Chat{ID: chatID, Participants: chat.Participants}, msg)
	})
	if err != nil {
		return nil, err
	}
	msg.CreatedAt = s.now()
	return msg, nil
}

// MarkChatRead marks the other party's messages read and returns how many changed.
func (s *chatService) MarkChatRead(ctx context.Context, chatID, userID string) (int, error) {
	if _, err := s.authorize(ctx, chatID, userID); err != nil {
		return 0, err
	}
	n, err := s.chatRepo.MarkRead(ctx, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark chat '%s' read: %w", chatID, err)
	}
	return n, nil
}

// RequestConditionAssessment posts an empty condition report for the renter to fill in.
// requestID names the rental the report is for; empty means the request the chat links to.
// The request must be between the chat's participants.
func (s *chatService) RequestConditionAssessment(ctx context.Context, chatID, actorID, requestID, phase string) (*models.Message, error) {
	if phase != models.AssessmentPhasePickup && phase != models.AssessmentPhaseReturn {
		return nil, fmt.Errorf("%w: phase '%s'", ErrInvalidAssessment, phase)
	}
	chat, err := s.authorize(ctx, chatID, actorID)
	if err != nil {
		return nil, err
	}
	if requestID == "" {
		requestID = chat.RentRequestID
	}
	if requestID == "" {
		return nil, ErrNoLinkedRequest
	}
	req, err := s.reqRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapNotFound(err, ErrRequestNotFound)
	}
	if !chat.HasParticipant(req.RequesterID) || !chat.HasParticipant(req.OwnerID) {
		return nil, fmt.Errorf("%w: request '%s' is not part of chat '%s'", ErrRequestNotFound, requestID, chatID)
	}

	msg := &models.Message{
		SenderID: actorID,
		Text:     fmt.Sprintf("Condition report requested (%s)", phase),
		Type:     models.MessageTypeAssessment,
		Assessment: &models.Assessment{
			Phase:         phase,
			RentRequestID: req.ID,
			OwnerID:       req.OwnerID,
			RenterID:      req.RequesterID,
		},
	}
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		msg.ID = ""
		return tx.AppendMessage(&models.Chat{ID: chatID, Participants: chat.Participants}, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to post condition report: %w", err)
	}
	msg.CreatedAt = s.now()
	return msg, nil
}

// SubmitConditionAssessment fills in a report. Only the renter may submit, and only once.
func (s *chatService) SubmitConditionAssessment(ctx context.Context, chatID, messageID, renterID string, form models.SubmitAssessmentRequest) (*models.Message, error) {
	if !form.OverallCondition.Valid() {
		return nil, fmt.Errorf("%w: overall condition '%s'", ErrInvalidAssessment, form.OverallCondition)
	}

	var submitted *models.Message
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		msg, err := s.loadAssessment(tx, chatID, messageID, renterID)
		if err != nil {
			return err
		}
		at := s.now()
		a := *msg.Assessment
		a.OverallCondition = form.OverallCondition
		a.Damage = form.Damage
		a.Notes = strings.TrimSpace(form.Notes)
		a.PhotoURLs = append(a.PhotoURLs, form.PhotoURLs...)
		a.Submitted = true
		a.SubmittedAt = &at
		if err := tx.SubmitAssessment(chatID, messageID, &a); err != nil {
			return err
		}
		msg.Assessment = &a
		msg.Guidance = a.Guidance(renterID)
		submitted = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

// UploadAssessmentPhoto stores a photo for an unsubmitted report and attaches its URL.
func (s *chatService) UploadAssessmentPhoto(ctx context.Context, chatID, messageID, renterID string, upload FileUpload) (string, error) {
	ext, ok := imageExtensions[upload.ContentType]
	if !ok {
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedImage, upload.ContentType)
	}
	// Check ownership before paying for the upload.
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		_, err := s.loadAssessment(tx, chatID, messageID, renterID)
		return err
	})
	if err != nil {
		return "", err
	}

	objectPath := path.Join("chats", chatID, "assessments", messageID, uuid.NewString()+ext)
	url, err := s.objects.Upload(ctx, objectPath, upload.ContentType, upload.Data)
	if err != nil {
		return "", fmt.Errorf("failed to upload assessment photo: %w", err)
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		msg, err := s.loadAssessment(tx, chatID, messageID, renterID)
		if err != nil {
			return err
		}
		a := *msg.Assessment
		a.PhotoURLs = append(append([]string{}, a.PhotoURLs...), url)
		return tx.SubmitAssessment(chatID, messageID, &a)
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// loadAssessment reads a report message that renterID may still edit.
func (s *chatService) loadAssessment(tx db.Tx, chatID, messageID, renterID string) (*models.Message, error) {
	chat, err := tx.GetChat(chatID)
	if err != nil {
		return nil, mapNotFound(err, ErrChatNotFound)
	}
	if !chat.HasParticipant(renterID) {
		return nil, fmt.Errorf("%w: chat '%s'", ErrNotParticipant, chatID)
	}
	msg, err := tx.GetMessage(chatID, messageID)
	if err != nil {
		return nil, mapNotFound(err, ErrMessageNotFound)
	}
	if msg.Type != models.MessageTypeAssessment || msg.Assessment == nil {
		return nil, fmt.Errorf("%w: '%s'", ErrNotAssessment, messageID)
	}
	if msg.Assessment.RenterID != renterID {
		return nil, ErrNotRenter
	}
	if msg.Assessment.Submitted {
		return nil, fmt.Errorf("%w: '%s'", ErrAssessmentLocked, messageID)
	}
	return msg, nil
}

func (s *chatService) authorize(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, mapNotFound(err, ErrChatNotFound)
	}
	if !chat.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: chat '%s'", ErrNotParticipant, chatID)
	}
	return chat, nil
}
