package service

import (
	"sync"
	"time"

	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// PaymentStatusView is what status queries return. Cached and RateLimited
// tell the client the view was served without a fresh gateway check;
// Verified is false when the gateway could not be reached and the persisted
// state is being reported as-is.
type PaymentStatusView struct {
	OrderID           uuid.UUID          `json:"order_id"`
	OrderNo           string             `json:"order_no"`
	PaymentStatus     enum.PaymentStatus `json:"payment_status"`
	PaymentMethod     *string            `json:"payment_method,omitempty"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
	Verified          bool               `json:"verified"`
	Cached            bool               `json:"cached"`
	RateLimited       bool               `json:"rate_limited"`
	ShouldStopPolling bool               `json:"should_stop_polling"`
}

type statusEntry struct {
	view      PaymentStatusView
	expiresAt time.Time
}

// StatusCache is a short-TTL per-order cache of payment status views. It
// absorbs aggressive frontend polling so repeated status queries inside the
// TTL never reach the gateway.
type StatusCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]statusEntry
	ttl     time.Duration
}

func NewStatusCache(ttl time.Duration) *StatusCache {
	c := &StatusCache{
		entries: make(map[uuid.UUID]statusEntry),
		ttl:     ttl,
	}
	go c.cleanup()
	return c
}

// Get returns the cached view for the order, if any is still fresh.
func (c *StatusCache) Get(orderID uuid.UUID) (PaymentStatusView, bool) {
	c.mu.RLock()
	entry, ok := c.entries[orderID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return PaymentStatusView{}, false
	}
	return entry.view, true
}

// Set stores the view for the cache TTL.
func (c *StatusCache) Set(orderID uuid.UUID, view PaymentStatusView) {
	c.mu.Lock()
	c.entries[orderID] = statusEntry{view: view, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops the cached view so the next query observes the new state.
// Called on every payment state transition.
func (c *StatusCache) Invalidate(orderID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, orderID)
	c.mu.Unlock()
}

func (c *StatusCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for id, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, id)
			}
		}
		c.mu.Unlock()
	}
}

// CheckLimiter enforces a minimum interval between gateway payment-check
// calls per invoice. Each invoice gets its own token-bucket limiter with a
// burst of one, so the first check always passes and later checks wait out
// the interval.
type CheckLimiter struct {
	mu       sync.Mutex
	limiters map[string]*invoiceLimiter
	interval time.Duration
}

type invoiceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewCheckLimiter(interval time.Duration) *CheckLimiter {
	l := &CheckLimiter{
		limiters: make(map[string]*invoiceLimiter),
		interval: interval,
	}
	go l.cleanup()
	return l
}

// Allow reports whether a gateway check for this invoice may happen now, and
// if so, marks the invoice as checked.
func (l *CheckLimiter) Allow(invoiceID string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[invoiceID]
	if !ok {
		entry = &invoiceLimiter{limiter: rate.NewLimiter(rate.Every(l.interval), 1)}
		l.limiters[invoiceID] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

func (l *CheckLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-30 * time.Minute)
		l.mu.Lock()
		for id, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, id)
			}
		}
		l.mu.Unlock()
	}
}

// inflightSet tracks orders with an invoice creation currently in progress,
// so concurrent requests for the same order are rejected instead of racing
// to the gateway.
type inflightSet struct {
	mu     sync.Mutex
	orders map[uuid.UUID]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{orders: make(map[uuid.UUID]struct{})}
}

// tryAcquire marks the order as in flight. Returns false when another
// request already holds the marker.
func (s *inflightSet) tryAcquire(orderID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[orderID]; exists {
		return false
	}
	s.orders[orderID] = struct{}{}
	return true
}

func (s *inflightSet) release(orderID uuid.UUID) {
	s.mu.Lock()
	delete(s.orders, orderID)
	s.mu.Unlock()
}
