package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"localserve/models"
	"localserve/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// releaseLock deletes the lock only while it still holds the caller's token,
// so a holder whose lock expired cannot release a later holder's lock.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// OrderRegistry keeps at most one outstanding order per booking in Redis and
// serialises order creation across service instances.
type OrderRegistry struct {
	cache *redis.Client
	ttl   time.Duration
}

func NewOrderRegistry(cache *redis.Client, ttl time.Duration) *OrderRegistry {
	return &OrderRegistry{cache: cache, ttl: ttl}
}

// Get returns the cached order for bookingID, or nil when none is cached.
func (r *OrderRegistry) Get(ctx context.Context, bookingID string) (*models.PaymentOrder, error) {
	raw, err := r.cache.Get(ctx, utils.OrderCachePrefix+bookingID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached order: %w", err)
	}
	var order models.PaymentOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decoding cached order: %w", err)
	}
	return &order, nil
}

// Put caches order as the outstanding order of its booking.
func (r *OrderRegistry) Put(ctx context.Context, order *models.PaymentOrder) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, utils.OrderCachePrefix+order.BookingID, raw, r.ttl).Err()
}

// Clear forgets the outstanding order of bookingID.
func (r *OrderRegistry) Clear(ctx context.Context, bookingID string) error {
	return r.cache.Del(ctx, utils.OrderCachePrefix+bookingID).Err()
}

// Lock acquires the order-creation lock for bookingID. ok is false when
// another caller holds it.
func (r *OrderRegistry) Lock(ctx context.Context, bookingID string) (unlock func(), ok bool, err error) {
	key := utils.OrderLockPrefix + bookingID
	token := uuid.New().String()
	ok, err = r.cache.SetNX(ctx, key, token, utils.OrderLockTTL).Result()
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() {
		if err := releaseLock.Run(context.Background(), r.cache, []string{key}, token).Err(); err != nil {
			zap.L().Warn("failed to release order lock", zap.String("bookingId", bookingID), zap.Error(err))
		}
	}, true, nil
}
