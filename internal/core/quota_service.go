package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

// Custom errors for plan and quota handling.
var (
	ErrNoPlan              = errors.New("no plan claimed yet")
	ErrPlanInactive        = errors.New("current plan is not active")
	ErrLimitReached        = errors.New("plan limit reached")
	ErrInvalidQuotaAction  = errors.New("invalid quota action")
	ErrFreePlanUnavailable = errors.New("free plan is not configured")
	ErrPlanAlreadyClaimed  = errors.New("user already has a plan")
	ErrPlanNotFound        = errors.New("plan not found")
)

// consumeQuota authorizes one action against plan and increments its counter.
func consumeQuota(plan *models.CurrentPlan, action models.QuotaAction) error {
	if !action.Valid() {
		return fmt.Errorf("%w: '%s'", ErrInvalidQuotaAction, action)
	}
	if plan == nil {
		return ErrNoPlan
	}
	if !plan.IsActive() {
		return fmt.Errorf("%w: status '%s'", ErrPlanInactive, plan.Status)
	}
	used, limit := plan.Counters(action)
	if *used >= limit {
		return fmt.Errorf("%w: %s used %d of %d", ErrLimitReached, action, *used, limit)
	}
	*used++
	return nil
}

// releaseQuota frees one unit, never going below zero.
func releaseQuota(plan *models.CurrentPlan, action models.QuotaAction) {
	if plan == nil || !action.Valid() {
		return
	}
	used, _ := plan.Counters(action)
	*used = max(0, *used-1)
}

func limitResult(plan *models.CurrentPlan, action models.QuotaAction) *models.LimitCheckResult {
	used, limit := plan.Counters(action)
	return &models.LimitCheckResult{
		Success:   true,
		Action:    action,
		Used:      *used,
		Limit:     limit,
		Remaining: max(0, limit-*used),
	}
}

// quotaService implements the QuotaService interface.
type quotaService struct {
	store    db.Store
	planRepo db.PlanRepository
	logger   *zap.Logger
}

// NewQuotaService creates a new QuotaService instance.
func NewQuotaService(store db.Store, planRepo db.PlanRepository, logger *zap.Logger) QuotaService {
	return &quotaService{store: store, planRepo: planRepo, logger: logger}
}

// CheckAndUpdateLimits consumes one unit of the action's quota in a single transaction.
func (s *quotaService) CheckAndUpdateLimits(ctx context.Context, userID string, action models.QuotaAction) (*models.LimitCheckResult, error) {
	var result *models.LimitCheckResult
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		user, err := tx.GetUser(userID)
		if err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		plan := user.CurrentPlan
		if err := consumeQuota(plan, action); err != nil {
			return err
		}
		if err := tx.SetCurrentPlan(userID, plan); err != nil {
			return err
		}
		result = limitResult(plan, action)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ClaimFreePlan gives a user without any plan the free tier with zero usage.
func (s *quotaService) ClaimFreePlan(ctx context.Context, userID string) (*models.CurrentPlan, error) {
	plans, err := s.planRepo.ListByType(ctx, models.PlanTypeFree)
	if err != nil {
		return nil, fmt.Errorf("failed to look up free plan: %w", err)
	}
	if len(plans) == 0 {
		s.logger.Error("Free plan definition missing", zap.String("userID", userID))
		return nil, ErrFreePlanUnavailable
	}
	free := plans[0]

	var claimed *models.CurrentPlan
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		user, err := tx.GetUser(userID)
		if err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		if user.CurrentPlan != nil {
			return ErrPlanAlreadyClaimed
		}
		claimed = &models.CurrentPlan{
			PlanID:    free.ID,
			PlanType:  models.PlanTypeFree,
			RentLimit: free.RentLimit,
			ListLimit: free.ListLimit,
			Status:    models.PlanStatusActive,
		}
		return tx.SetCurrentPlan(userID, claimed)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Free plan claimed", zap.String("userID", userID), zap.String("planID", free.ID))
	return claimed, nil
}

// ReconcileUsage rewrites the usage counters from the documents that actually exist.
func (s *quotaService) ReconcileUsage(ctx context.Context, userID string) (*models.CurrentPlan, error) {
	var plan *models.CurrentPlan
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		user, err := tx.GetUser(userID)
		if err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		if user.CurrentPlan == nil {
			return ErrNoPlan
		}
		listed, err := tx.CountItemsByOwner(userID)
		if err != nil {
			return fmt.Errorf("failed to count items: %w", err)
		}
		renting, err := tx.CountActiveRentRequests(userID)
		if err != nil {
			return fmt.Errorf("failed to count rent requests: %w", err)
		}
		plan = user.CurrentPlan
		if plan.ListUsed != listed || plan.RentUsed != renting {
			s.logger.Warn("Usage counters drifted",
				zap.String("userID", userID),
				zap.Int("listUsed", plan.ListUsed), zap.Int("listCount", listed),
				zap.Int("rentUsed", plan.RentUsed), zap.Int("rentCount", renting))
		}
		plan.ListUsed = listed
		plan.RentUsed = renting
		return tx.SetCurrentPlan(userID, plan)
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListPlans returns all plan definitions, cheapest first.
func (s *quotaService) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	plans, err := s.planRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// mapNotFound turns db.ErrNotFound into the service-level sentinel.
func mapNotFound(err, sentinel error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return err
}
