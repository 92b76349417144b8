package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

// Custom errors for the PaymentService.
var (
	ErrPaymentProvider     = errors.New("payment provider error")
	ErrPaymentCancelled    = errors.New("payment was cancelled")
	ErrPaymentPending      = errors.New("payment is not approved yet")
	ErrPaymentNotCompleted = errors.New("payment was not completed")
	ErrOrderNotFound       = errors.New("order not found or expired")
	ErrPlanNotPurchasable  = errors.New("plan cannot be purchased")
	ErrTransactionNotFound = errors.New("transaction not found")
)

const captureCompleted = "COMPLETED"

// PaymentSettings are the checkout parameters taken from configuration.
type PaymentSettings struct {
	ReturnURL          string
	DisplayCurrency    string
	SettlementCurrency string
	PendingOrderTTL    time.Duration
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// paymentService implements the PaymentService interface.
type paymentService struct {
	store    db.Store
	planRepo db.PlanRepository
	payRepo  db.PaymentRepository
	gateway  PaymentGateway
	rates    RateProvider
	pending  PendingOrderStore
	notifier Notifier
	settings PaymentSettings
	now      func() time.Time
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService instance.
func NewPaymentService(store db.Store, planRepo db.PlanRepository, payRepo db.PaymentRepository, gateway PaymentGateway, rates RateProvider, pending PendingOrderStore, notifier Notifier, settings PaymentSettings, logger *zap.Logger) PaymentService {
	return &paymentService{
		store:    store,
		planRepo: planRepo,
		payRepo:  payRepo,
		gateway:  gateway,
		rates:    rates,
		pending:  pending,
		notifier: notifier,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// CreateOrder prices the plan in the settlement currency and opens a provider order.
// Nothing is written to Firestore until the order is captured.
func (s *paymentService) CreateOrder(ctx context.Context, userID, planID string) (*models.CheckoutOrder, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, mapNotFound(err, ErrPlanNotFound)
	}
	if plan.PlanType == models.PlanTypeFree || plan.Price <= 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrPlanNotPurchasable, planID)
	}

	rate := s.rates.Rate(ctx)
	amount := round2(plan.Price * rate)
	if amount <= 0 {
		s.logger.Error("Converted amount is not positive", zap.Float64("price", plan.Price), zap.Float64("rate", rate))
		return nil, fmt.Errorf("%w: invalid conversion rate", ErrPaymentProvider)
	}

	returnURL := redirectURL(s.settings.ReturnURL, redirectSuccess)
	cancelURL := redirectURL(s.settings.ReturnURL, redirectCancel)
	order, err := s.gateway.CreateOrder(ctx, OrderRequest{
		Amount:      amount,
		Currency:    s.settings.SettlementCurrency,
		Description: plan.Name,
		CustomID:    userID + ":" + plan.ID,
		ReturnURL:   returnURL,
		CancelURL:   cancelURL,
	})
	if err != nil {
		s.logger.Error("Failed to create provider order", zap.String("userID", userID), zap.String("planID", planID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
	}

	pending := &models.PendingOrder{
		OrderID:         order.ID,
		UserID:          userID,
		PlanID:          plan.ID,
		Amount:          amount,
		Currency:        s.settings.SettlementCurrency,
		DisplayAmount:   plan.Price,
		DisplayCurrency: s.settings.DisplayCurrency,
		Rate:            rate,
	}
	if err := s.pending.SavePendingOrder(ctx, pending, s.settings.PendingOrderTTL); err != nil {
		return nil, fmt.Errorf("failed to save pending order '%s': %w", order.ID, err)
	}

	s.logger.Info("Checkout order created",
		zap.String("userID", userID), zap.String("orderID", order.ID), zap.Float64("amount", amount))
	return &models.CheckoutOrder{
		OrderID:         order.ID,
		ApprovalURL:     order.ApprovalURL,
		Amount:          amount,
		Currency:        s.settings.SettlementCurrency,
		DisplayAmount:   plan.Price,
		DisplayCurrency: s.settings.DisplayCurrency,
		ReturnURL:       returnURL,
		CancelURL:       cancelURL,
	}, nil
}

// HandleRedirect advances the checkout from the URL the approval page reached.
// Cancelled orders of the caller are dropped without any Firestore write. Approved orders are captured and
// activated exactly once per order ID.
func (s *paymentService) HandleRedirect(ctx context.Context, userID, orderID, redirect string) (*models.Receipt, error) {
	state := ClassifyRedirect(redirect, s.settings.ReturnURL, orderID)
	s.logger.Debug("Checkout redirect", zap.String("orderID", orderID), zap.Stringer("state", state))

	switch state {
	case RedirectPending:
		return nil, ErrPaymentPending
	case RedirectCancelled:
		return nil, s.dropCancelled(ctx, userID, orderID)
	}

	pending, err := s.pending.GetPendingOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending order '%s': %w", orderID, err)
	}
	if pending == nil {
		// Already activated by an earlier redirect, or expired.
		return s.existingReceipt(ctx, userID, orderID)
	}
	if pending.UserID != userID {
		return nil, fmt.Errorf("%w: '%s'", ErrOrderNotFound, orderID)
	}
	plan, err := s.planRepo.GetByID(ctx, pending.PlanID)
	if err != nil {
		return nil, mapNotFound(err, ErrPlanNotFound)
	}

	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to capture order", zap.String("orderID", orderID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentProvider, err)
	}
	if capture.Status != captureCompleted {
		s.logger.Warn("Capture not completed", zap.String("orderID", orderID), zap.String("status", capture.Status))
		return nil, fmt.Errorf("%w: status %s", ErrPaymentNotCompleted, capture.Status)
	}

	receipt, created, err := s.activate(ctx, pending, plan, capture)
	if err != nil {
		s.logger.Error("Plan activation failed after capture",
			zap.String("orderID", orderID), zap.String("captureID", capture.CaptureID), zap.Error(err))
		return nil, err
	}
	if err := s.pending.DeletePendingOrder(ctx, orderID); err != nil {
		s.logger.Warn("Failed to drop activated order", zap.String("orderID", orderID), zap.Error(err))
	}
	if created && s.notifier != nil {
		if err := s.notifier.Notify(ctx, userID, models.NotifyPlanActivated, "Plan activated",
			fmt.Sprintf("Your %s plan is now active.", plan.Name),
			map[string]string{"transactionId": receipt.Transaction.TransactionID}); err != nil {
			s.logger.Warn("Failed to queue notification", zap.String("userID", userID), zap.Error(err))
		}
	}
	return receipt, nil
}

// dropCancelled forgets the caller's own pending order and reports ErrPaymentCancelled.
// Orders of other users are reported as not found and left alone.
func (s *paymentService) dropCancelled(ctx context.Context, userID, orderID string) error {
	pending, err := s.pending.GetPendingOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load pending order '%s': %w", orderID, err)
	}
	if pending == nil {
		return ErrPaymentCancelled
	}
	if pending.UserID != userID {
		s.logger.Warn("Cancel redirect for another user's order", zap.String("userID", userID), zap.String("orderID", orderID))
		return fmt.Errorf("%w: '%s'", ErrOrderNotFound, orderID)
	}
	if err := s.pending.DeletePendingOrder(ctx, orderID); err != nil {
		s.logger.Warn("Failed to drop cancelled order", zap.String("orderID", orderID), zap.Error(err))
	}
	return ErrPaymentCancelled
}

// activate records the payment, subscription and receipt and swaps the user's plan in one
// transaction. Usage counters carry over. created is false when the order was already activated.
func (s *paymentService) activate(ctx context.Context, pending *models.PendingOrder, plan *models.Plan, capture *CaptureResult) (*models.Receipt, bool, error) {
	var receipt *models.Receipt
	var existing *models.Payment

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		receipt, existing = nil, nil
		p, err := tx.GetPayment(pending.OrderID)
		if err == nil {
			existing = p
			return nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return err
		}
		user, err := tx.GetUser(pending.UserID)
		if err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}

		now := s.now()
		sub := &models.Subscription{
			UserID:    pending.UserID,
			PlanID:    plan.ID,
			PlanType:  plan.PlanType,
			StartDate: now,
			EndDate:   now.AddDate(0, 0, plan.DurationDays),
			Status:    models.PlanStatusActive,
		}
		txn := &models.Transaction{
			TransactionID:   uuid.NewString(),
			UserID:          pending.UserID,
			PaypalOrderID:   pending.OrderID,
			PaypalCaptureID: capture.CaptureID,
			Amount:          pending.Amount,
			Currency:        pending.Currency,
			DisplayAmount:   pending.DisplayAmount,
			DisplayCurrency: pending.DisplayCurrency,
			Status:          capture.Status,
			PlanDetails: models.PlanDetails{
				PlanID:       plan.ID,
				Name:         plan.Name,
				PlanType:     plan.PlanType,
				ListLimit:    plan.ListLimit,
				RentLimit:    plan.RentLimit,
				DurationDays: plan.DurationDays,
			},
		}
		sub.TransactionID = txn.TransactionID

		if err := tx.CreatePayment(&models.Payment{
			OrderID:       pending.OrderID,
			UserID:        pending.UserID,
			PlanID:        plan.ID,
			CaptureID:     capture.CaptureID,
			Status:        capture.Status,
			TransactionID: txn.TransactionID,
		}); err != nil {
			return err
		}
		if err := tx.CreateSubscription(sub); err != nil {
			return err
		}
		txn.SubscriptionID = sub.ID
		if err := tx.CreateTransaction(txn); err != nil {
			return err
		}

		next := &models.CurrentPlan{
			PlanID:         plan.ID,
			PlanType:       plan.PlanType,
			RentLimit:      plan.RentLimit,
			ListLimit:      plan.ListLimit,
			Status:         models.PlanStatusActive,
			SubscriptionID: sub.ID,
		}
		if cur := user.CurrentPlan; cur != nil {
			next.RentUsed = cur.RentUsed
			next.ListUsed = cur.ListUsed
		}
		if err := tx.SetCurrentPlan(pending.UserID, next); err != nil {
			return err
		}
		txn.CreatedAt = now
		sub.CreatedAt = now
		receipt = &models.Receipt{Transaction: txn, Subscription: sub, CurrentPlan: next}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to activate plan for order '%s': %w", pending.OrderID, err)
	}
	if existing != nil {
		r, err := s.GetReceipt(ctx, pending.UserID, existing.TransactionID)
		return r, false, err
	}
	s.logger.Info("Plan activated",
		zap.String("userID", pending.UserID), zap.String("planID", plan.ID), zap.String("orderID", pending.OrderID))
	return receipt, true, nil
}

// existingReceipt answers a repeated approved redirect for an order that has no pending context.
func (s *paymentService) existingReceipt(ctx context.Context, userID, orderID string) (*models.Receipt, error) {
	var payment *models.Payment
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		p, err := tx.GetPayment(orderID)
		if err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: '%s'", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to look up payment '%s': %w", orderID, err)
	}
	if payment.UserID != userID {
		return nil, fmt.Errorf("%w: '%s'", ErrOrderNotFound, orderID)
	}
	return s.GetReceipt(ctx, userID, payment.TransactionID)
}

// GetReceipt returns a transaction with its subscription. Other users' receipts are not found.
func (s *paymentService) GetReceipt(ctx context.Context, userID, transactionID string) (*models.Receipt, error) {
	txn, err := s.payRepo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, mapNotFound(err, ErrTransactionNotFound)
	}
	if txn.UserID != userID {
		return nil, fmt.Errorf("%w: '%s'", ErrTransactionNotFound, transactionID)
	}
	receipt := &models.Receipt{Transaction: txn}
	if txn.SubscriptionID != "" {
		sub, err := s.payRepo.GetSubscription(ctx, txn.SubscriptionID)
		if err != nil {
			s.logger.Warn("Receipt subscription missing", zap.String("subscriptionID", txn.SubscriptionID), zap.Error(err))
		} else {
			receipt.Subscription = sub
		}
	}
	return receipt, nil
}
