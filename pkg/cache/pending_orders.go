package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rentshare-backend-go/internal/models"
)

const pendingOrderPrefix = "paypal:order:"

// PendingOrderStore keeps checkout context in redis until the order is captured or expires.
type PendingOrderStore struct {
	client *redis.Client
}

// NewPendingOrderStore returns a store backed by the cache's client.
func NewPendingOrderStore(c *RedisCache) *PendingOrderStore {
	return &PendingOrderStore{client: c.client}
}

func (s *PendingOrderStore) SavePendingOrder(ctx context.Context, order *models.PendingOrder, ttl time.Duration) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal pending order: %w", err)
	}
	if err := s.client.Set(ctx, pendingOrderPrefix+order.OrderID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save pending order %s: %w", order.OrderID, err)
	}
	return nil
}

// GetPendingOrder returns nil, nil when the order is unknown or has expired.
func (s *PendingOrderStore) GetPendingOrder(ctx context.Context, orderID string) (*models.PendingOrder, error) {
	raw, err := s.client.Get(ctx, pendingOrderPrefix+orderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending order %s: %w", orderID, err)
	}
	var order models.PendingOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode pending order %s: %w", orderID, err)
	}
	return &order, nil
}

func (s *PendingOrderStore) DeletePendingOrder(ctx context.Context, orderID string) error {
	if err := s.client.Del(ctx, pendingOrderPrefix+orderID).Err(); err != nil {
		return fmt.Errorf("delete pending order %s: %w", orderID, err)
	}
	return nil
}
