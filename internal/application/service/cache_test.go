package service

import (
	"testing"
	"time"

	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatusCache_ExpiresAfterTTL(t *testing.T) {
	cache := NewStatusCache(20 * time.Millisecond)
	orderID := uuid.New()

	cache.Set(orderID, PaymentStatusView{OrderID: orderID, PaymentStatus: enum.PaymentStatusPending})

	_, ok := cache.Get(orderID)
	assert.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = cache.Get(orderID)
	assert.False(t, ok)
}

func TestStatusCache_Invalidate(t *testing.T) {
	cache := NewStatusCache(time.Minute)
	orderID := uuid.New()

	cache.Set(orderID, PaymentStatusView{OrderID: orderID})
	cache.Invalidate(orderID)

	_, ok := cache.Get(orderID)
	assert.False(t, ok)
}

func TestCheckLimiter_EnforcesPerInvoiceInterval(t *testing.T) {
	limiter := NewCheckLimiter(time.Hour)

	assert.True(t, limiter.Allow("inv-1"))
	assert.False(t, limiter.Allow("inv-1"))

	// A different invoice has its own budget.
	assert.True(t, limiter.Allow("inv-2"))
}

func TestCheckLimiter_RefillsAfterInterval(t *testing.T) {
	limiter := NewCheckLimiter(20 * time.Millisecond)

	assert.True(t, limiter.Allow("inv-1"))
	assert.False(t, limiter.Allow("inv-1"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, limiter.Allow("inv-1"))
}

func TestInflightSet_SingleHolder(t *testing.T) {
	set := newInflightSet()
	orderID := uuid.New()

	assert.True(t, set.tryAcquire(orderID))
	assert.False(t, set.tryAcquire(orderID))

	set.release(orderID)
	assert.True(t, set.tryAcquire(orderID))
}
