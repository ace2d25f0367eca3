package payment

import (
	"context"
	"testing"
	"time"

	"localserve/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*OrderRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewOrderRegistry(client, time.Minute), mr
}

func TestOrderRegistryRoundTrip(t *testing.T) {
	reg, mr := newTestRegistry(t)
	ctx := context.Background()

	got, err := reg.Get(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, reg.Put(ctx, &models.PaymentOrder{OrderID: "order_1", BookingID: "42", Amount: 500, Currency: "INR"}))
	got, err = reg.Get(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "order_1", got.OrderID)

	mr.FastForward(2 * time.Minute)
	got, err = reg.Get(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, got, "cached order expires with the ttl")

	require.NoError(t, reg.Put(ctx, &models.PaymentOrder{OrderID: "order_2", BookingID: "42"}))
	require.NoError(t, reg.Clear(ctx, "42"))
	got, err = reg.Get(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderRegistryLock(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	unlock, ok, err := reg.Lock(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = reg.Lock(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok, "second caller must not create a parallel order")

	unlock()
	_, ok, err = reg.Lock(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOrderRegistryExpiredUnlockKeepsNewHolder(t *testing.T) {
	reg, mr := newTestRegistry(t)
	ctx := context.Background()

	staleUnlock, ok, err := reg.Lock(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Minute)
	_, ok, err = reg.Lock(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok, "an expired lock can be taken over")

	staleUnlock()
	_, ok, err = reg.Lock(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok, "the late unlock left the new holder's lock alone")
}
