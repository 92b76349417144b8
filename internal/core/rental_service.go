package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

// Custom errors for the RentalService.
var (
	ErrRequestNotFound    = errors.New("rent request not found")
	ErrDuplicateRequest   = errors.New("an active request for this item already exists")
	ErrOwnItem            = errors.New("cannot rent your own item")
	ErrNotRequestOwner    = errors.New("only the item owner can do this")
	ErrNotRequester       = errors.New("only the requester can do this")
	ErrInvalidTransition  = errors.New("invalid rent request status transition")
	ErrInvalidRentalDates = errors.New("invalid rental dates")
)

// rentalDays counts started days between start and end, at least one.
func rentalDays(start, end time.Time) int {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	return max(1, days)
}

func rentalPrice(pricePerDay float64, start, end time.Time) float64 {
	return math.Round(pricePerDay*float64(rentalDays(start, end))*100) / 100
}

func cardFor(req *models.RentRequest) *models.RentRequestCard {
	return &models.RentRequestCard{
		RequestID:  req.ID,
		ItemID:     req.ItemID,
		ItemName:   req.ItemName,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		PickupTime: req.PickupTime,
		TotalPrice: req.TotalPrice,
		Status:     req.Status,
	}
}

// rentalService implements the RentalService interface.
type rentalService struct {
	store    db.Store
	reqRepo  db.RentRequestRepository
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewRentalService creates a new RentalService instance.
func NewRentalService(store db.Store, reqRepo db.RentRequestRepository, notifier Notifier, logger *zap.Logger) RentalService {
	return &rentalService{
		store:    store,
		reqRepo:  reqRepo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// SubmitRequest creates a pending request, its guard, the quota charge and the chat card atomically.
func (s *rentalService) SubmitRequest(ctx context.Context, requesterID string, in models.CreateRentRequest) (*models.RentRequest, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidRentalDates)
	}

	var created *models.RentRequest
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		created = nil
		item, err := tx.GetItem(in.ItemID)
		if err != nil {
			return mapNotFound(err, ErrItemNotFound)
		}
		if item.Owner.ID == requesterID {
			return ErrOwnItem
		}
		if item.ItemStatus != models.ItemStatusAvailable {
			return fmt.Errorf("%w: item '%s' is %s", ErrItemUnavailable, item.ID, item.ItemStatus)
		}
		if _, err := tx.GetActiveRequestGuard(requesterID, item.ID); err == nil {
			return fmt.Errorf("%w: item '%s'", ErrDuplicateRequest, item.ID)
		} else if !errors.Is(err, db.ErrNotFound) {
			return err
		}
		requester, err := tx.GetUser(requesterID)
		if err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		plan := requester.CurrentPlan
		if err := consumeQuota(plan, models.QuotaActionRent); err != nil {
			return err
		}

		req := &models.RentRequest{
			ID:          tx.NewRentRequestID(),
			ItemID:      item.ID,
			ItemName:    item.ItemName,
			RequesterID: requesterID,
			OwnerID:     item.Owner.ID,
			Status:      models.RentStatusPending,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
			PickupTime:  strings.TrimSpace(in.PickupTime),
			Message:     strings.TrimSpace(in.Message),
			TotalPrice:  rentalPrice(item.ItemPrice, in.StartDate, in.EndDate),
			ChatID:      models.PairChatID(requesterID, item.Owner.ID),
		}
		if len(item.Images) > 0 {
			req.ItemImage = item.Images[0]
		}

		if err := tx.SetCurrentPlan(requesterID, plan); err != nil {
			return err
		}
		if err := tx.CreateRentRequest(req); err != nil {
			return err
		}
		guard := &models.ActiveRequestGuard{RequestID: req.ID, RequesterID: requesterID, ItemID: item.ID}
		if err := tx.CreateActiveRequestGuard(guard); err != nil {
			return err
		}
		chat := &models.Chat{
			ID:            req.ChatID,
			Participants:  []string{requesterID, item.Owner.ID},
			ItemID:        item.ID,
			RentRequestID: req.ID,
			Status:        models.ChatStatusOpen,
		}
		card := &models.Message{
			ID:          models.CardMessageID(req.ID),
			SenderID:    requesterID,
			Text:        fmt.Sprintf("Rent request for %s", item.ItemName),
			Type:        models.MessageTypeRentRequest,
			RentRequest: cardFor(req),
		}
		if err := tx.AppendMessage(chat, card); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Rent request submitted",
		zap.String("requestID", created.ID), zap.String("itemID", created.ItemID), zap.String("requesterID", requesterID))
	s.notify(ctx, created.OwnerID, models.NotifyRentRequested, "New rent request",
		fmt.Sprintf("Someone wants to rent %s.", created.ItemName), created)
	return created, nil
}

// AcceptRequest reserves the item for the requester.
func (s *rentalService) AcceptRequest(ctx context.Context, ownerID, requestID string) (*models.RentRequest, error) {
	var accepted *models.RentRequest
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		req, err := s.loadForTransition(tx, requestID, models.RentStatusAccepted)
		if err != nil {
			return err
		}
		if req.OwnerID != ownerID {
			return fmt.Errorf("%w: request '%s'", ErrNotRequestOwner, requestID)
		}
		item, err := tx.GetItem(req.ItemID)
		if err != nil {
			return mapNotFound(err, ErrItemNotFound)
		}
		if item.ItemStatus != models.ItemStatusAvailable {
			return fmt.Errorf("%w: item '%s' is %s", ErrItemUnavailable, item.ID, item.ItemStatus)
		}
		card, err := s.readCard(tx, req)
		if err != nil {
			return err
		}

		at := s.now()
		if err := tx.SetRentRequestStatus(req.ID, models.RentStatusAccepted); err != nil {
			return err
		}
		if err := tx.SetItemReservation(item.ID, models.ItemStatusReserved, req.RequesterID, &at); err != nil {
			return err
		}
		req.Status = models.RentStatusAccepted
		if err := s.writeStatusMessage(tx, req, card, nil, ownerID, "Request accepted", ""); err != nil {
			return err
		}
		accepted = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, accepted.RequesterID, models.NotifyRentAccepted, "Request accepted",
		fmt.Sprintf("Your request for %s was accepted.", accepted.ItemName), accepted)
	return accepted, nil
}

// RejectRequest closes the request and returns the requester's rent unit.
func (s *rentalService) RejectRequest(ctx context.Context, ownerID, requestID string) (*models.RentRequest, error) {
	var rejected *models.RentRequest
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		req, err := s.loadForTransition(tx, requestID, models.RentStatusRejected)
		if err != nil {
			return err
		}
		if req.OwnerID != ownerID {
			return fmt.Errorf("%w: request '%s'", ErrNotRequestOwner, requestID)
		}
		requester, err := tx.GetUser(req.RequesterID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		card, others, err := s.readChatLinks(tx, req)
		if err != nil {
			return err
		}

		if err := tx.SetRentRequestStatus(req.ID, models.RentStatusRejected); err != nil {
			return err
		}
		if err := tx.DeleteActiveRequestGuard(req.RequesterID, req.ItemID); err != nil {
			return err
		}
		if requester != nil && requester.CurrentPlan != nil {
			releaseQuota(requester.CurrentPlan, models.QuotaActionRent)
			if err := tx.SetCurrentPlan(req.RequesterID, requester.CurrentPlan); err != nil {
				return err
			}
		}
		req.Status = models.RentStatusRejected
		if err := s.writeStatusMessage(tx, req, card, others, ownerID, "Request declined", ""); err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, rejected.RequesterID, models.NotifyRentRejected, "Request declined",
		fmt.Sprintf("Your request for %s was declined.", rejected.ItemName), rejected)
	return rejected, nil
}

// CancelRequest withdraws a pending or accepted request. The request document is
// deleted, the quota unit returned, and a reserved item released. Cancelling a request
// that no longer exists reports ErrRequestNotFound and changes nothing.
func (s *rentalService) CancelRequest(ctx context.Context, requesterID, requestID string) error {
	var cancelled *models.RentRequest
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		cancelled = nil
		req, err := s.loadForTransition(tx, requestID, models.RentStatusCancelled)
		if err != nil {
			return err
		}
		if req.RequesterID != requesterID {
			return fmt.Errorf("%w: request '%s'", ErrNotRequester, requestID)
		}
		requester, err := tx.GetUser(requesterID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		item, err := tx.GetItem(req.ItemID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		card, others, err := s.readChatLinks(tx, req)
		if err != nil {
			return err
		}

		if err := tx.DeleteRentRequest(req.ID); err != nil {
			return err
		}
		if err := tx.DeleteActiveRequestGuard(requesterID, req.ItemID); err != nil {
			return err
		}
		if requester != nil && requester.CurrentPlan != nil {
			releaseQuota(requester.CurrentPlan, models.QuotaActionRent)
			if err := tx.SetCurrentPlan(requesterID, requester.CurrentPlan); err != nil {
				return err
			}
		}
		if item != nil && item.ItemStatus != models.ItemStatusAvailable && item.ReservedBy == requesterID {
			if err := tx.SetItemReservation(item.ID, models.ItemStatusAvailable, "", nil); err != nil {
				return err
			}
		}
		req.Status = models.RentStatusCancelled
		if err := s.writeStatusMessage(tx, req, card, others, requesterID, "Request cancelled", models.ChatStatusCancelled); err != nil {
			return err
		}
		cancelled = req
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, cancelled.OwnerID, models.NotifyRentCancelled, "Request cancelled",
		fmt.Sprintf("A request for %s was cancelled.", cancelled.ItemName), cancelled)
	return nil
}

// EditRequest changes the details of a pending request, reprices it, and refreshes the
// card the owner accepts from.
func (s *rentalService) EditRequest(ctx context.Context, requesterID, requestID string, in models.UpdateRentRequest) (*models.RentRequest, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidRentalDates)
	}
	var edited *models.RentRequest
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		req, err := tx.GetRentRequest(requestID)
		if err != nil {
			return mapNotFound(err, ErrRequestNotFound)
		}
		if req.RequesterID != requesterID {
			return fmt.Errorf("%w: request '%s'", ErrNotRequester, requestID)
		}
		if req.Status != models.RentStatusPending {
			return fmt.Errorf("%w: cannot edit a %s request", ErrInvalidTransition, req.Status)
		}
		item, err := tx.GetItem(req.ItemID)
		if err != nil {
			return mapNotFound(err, ErrItemNotFound)
		}
		card, err := s.readCard(tx, req)
		if err != nil {
			return err
		}
		edit := models.RentRequestEdit{
			StartDate:  in.StartDate,
			EndDate:    in.EndDate,
			PickupTime: strings.TrimSpace(in.PickupTime),
			Message:    strings.TrimSpace(in.Message),
			TotalPrice: rentalPrice(item.ItemPrice, in.StartDate, in.EndDate),
		}
		if err := tx.UpdateRentRequestDetails(req.ID, edit); err != nil {
			return err
		}
		req.StartDate, req.EndDate = edit.StartDate, edit.EndDate
		req.PickupTime, req.Message, req.TotalPrice = edit.PickupTime, edit.Message, edit.TotalPrice
		if card != nil {
			if err := tx.UpdateCardTerms(req.ChatID, card.ID, cardFor(req)); err != nil {
				return err
			}
		}
		edited = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// GetRequest returns a request visible to either party.
func (s *rentalService) GetRequest(ctx context.Context, userID, requestID string) (*models.RentRequest, error) {
	req, err := s.reqRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapNotFound(err, ErrRequestNotFound)
	}
	if req.RequesterID != userID && req.OwnerID != userID {
		return nil, fmt.Errorf("%w: request '%s'", ErrRequestNotFound, requestID)
	}
	return req, nil
}

func (s *rentalService) ListOutgoing(ctx context.Context, requesterID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error) {
	list, err := s.reqRepo.ListByRequester(ctx, requesterID, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outgoing requests: %w", err)
	}
	return list, nil
}

func (s *rentalService) ListIncoming(ctx context.Context, ownerID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error) {
	list, err := s.reqRepo.ListByOwner(ctx, ownerID, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming requests: %w", err)
	}
	return list, nil
}

// ActiveRequestForItem returns the requester's open request for an item, if any.
func (s *rentalService) ActiveRequestForItem(ctx context.Context, requesterID, itemID string) (*models.RentRequest, error) {
	guard, err := s.reqRepo.GetActiveGuard(ctx, requesterID, itemID)
	if err != nil {
		return nil, mapNotFound(err, ErrRequestNotFound)
	}
	return s.GetRequest(ctx, requesterID, guard.RequestID)
}

func (s *rentalService) loadForTransition(tx db.Tx, requestID string, to models.RentRequestStatus) (*models.RentRequest, error) {
	req, err := tx.GetRentRequest(requestID)
	if err != nil {
		return nil, mapNotFound(err, ErrRequestNotFound)
	}
	if !models.CanTransition(req.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, to)
	}
	return req, nil
}

// readCard loads the request's card message. Requests created before cards existed have none.
func (s *rentalService) readCard(tx db.Tx, req *models.RentRequest) (*models.Message, error) {
	if req.ChatID == "" {
		return nil, nil
	}
	card, err := tx.GetMessage(req.ChatID, models.CardMessageID(req.ID))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return card, nil
}

// readChatLinks reads the request's card and the other active requests sharing its pair chat.
func (s *rentalService) readChatLinks(tx db.Tx, req *models.RentRequest) (*models.Message, []*models.RentRequest, error) {
	card, err := s.readCard(tx, req)
	if err != nil || req.ChatID == "" {
		return card, nil, err
	}
	active, err := tx.ListActiveRentRequestsInChat(req.ChatID)
	if err != nil {
		return nil, nil, err
	}
	others := make([]*models.RentRequest, 0, len(active))
	for _, r := range active {
		if r.ID != req.ID {
			others = append(others, r)
		}
	}
	return card, others, nil
}

// chatLink picks the request a pair chat should point at once req is closed:
// an accepted request first, then any other open one.
func chatLink(others []*models.RentRequest) *models.RentRequest {
	for _, r := range others {
		if r.Status == models.RentStatusAccepted {
			return r
		}
	}
	if len(others) > 0 {
		return others[0]
	}
	return nil
}

// writeStatusMessage updates the card and appends a requestStatus message. When req is
// closed while other requests of the pair are still active, the chat stays open and links
// to one of them; otherwise it links to req and takes chatStatus when set.
func (s *rentalService) writeStatusMessage(tx db.Tx, req *models.RentRequest, card *models.Message, others []*models.RentRequest, actorID, text, chatStatus string) error {
	if req.ChatID == "" {
		return nil
	}
	if card != nil {
		if err := tx.SetCardStatus(req.ChatID, card.ID, req.Status); err != nil {
			return err
		}
	}
	chat := &models.Chat{
		ID:            req.ChatID,
		Participants:  []string{req.RequesterID, req.OwnerID},
		ItemID:        req.ItemID,
		RentRequestID: req.ID,
		Status:        chatStatus,
	}
	if !req.Status.IsActive() {
		if live := chatLink(others); live != nil {
			chat.ItemID = live.ItemID
			chat.RentRequestID = live.ID
			chat.Status = models.ChatStatusOpen
		}
	}
	msg := &models.Message{
		SenderID:    actorID,
		Text:        text,
		Type:        models.MessageTypeRequestStatus,
		RentRequest: cardFor(req),
	}
	return tx.AppendMessage(chat, msg)
}

func (s *rentalService) notify(ctx context.Context, userID, kind, title, body string, req *models.RentRequest) {
	if s.notifier == nil {
		return
	}
	data := map[string]string{"requestId": req.ID, "itemId": req.ItemID, "chatId": req.ChatID}
	if err := s.notifier.Notify(ctx, userID, kind, title, body, data); err != nil {
		s.logger.Warn("Failed to queue notification", zap.String("kind", kind), zap.String("userID", userID), zap.Error(err))
	}
}
