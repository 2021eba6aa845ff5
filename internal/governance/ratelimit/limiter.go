package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// Config bounds call frequency for one class of endpoints. Distinct call
// classes (credential issuance, content creation, reads, admin operations)
// carry their own Config; there is no global constant. Name scopes the
// counter store so the same caller holds an independent window per class.
type Config struct {
	Name        string
	Window      time.Duration
	MaxRequests int
}

type record struct {
	count   int
	resetAt time.Time
}

// Limiter implements fixed-window counting over a keyed in-memory store.
// The window is fixed, not sliding: up to 2x MaxRequests may pass in a
// short span straddling a boundary, an accepted trade-off.
type Limiter struct {
	mu      sync.Mutex
	records map[string]*record

	clock      clockwork.Clock
	sweepEvery time.Duration
	logger     *zap.Logger
}

// NewLimiter constructs a limiter owning its own keyed store.
func NewLimiter(clock clockwork.Clock, sweepEvery time.Duration, logger *zap.Logger) *Limiter {
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	return &Limiter{
		records:    make(map[string]*record),
		clock:      clock,
		sweepEvery: sweepEvery,
		logger:     logger,
	}
}

// Consume takes one slot for key under cfg. Read-check-increment happens
// as a single step under the lock; concurrent callers cannot overshoot
// the configured maximum. Consume never fails, it only denies.
func (l *Limiter) Consume(key string, cfg Config) domain.Decision {
	now := l.clock.Now()
	if cfg.Name != "" {
		// Scope the record by class so a caller spending one class's
		// budget leaves the others untouched.
		key = cfg.Name + "|" + key
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || !now.Before(rec.resetAt) {
		// First call for the key, or the window elapsed (a call landing
		// exactly at resetAt starts a new window). No budget carries over.
		rec = &record{resetAt: now.Add(cfg.Window)}
		l.records[key] = rec
	}

	if rec.count >= cfg.MaxRequests {
		return domain.Decision{
			Allowed:   false,
			Reason:    domain.ReasonRateLimitExceeded,
			Limit:     cfg.MaxRequests,
			Remaining: 0,
			ResetAt:   rec.resetAt,
		}
	}

	rec.count++
	return domain.Decision{
		Allowed:   true,
		Limit:     cfg.MaxRequests,
		Remaining: cfg.MaxRequests - rec.count,
		ResetAt:   rec.resetAt,
	}
}

// Start launches the background sweep removing expired records on a fixed
// interval. It returns immediately; the sweep stops when ctx is cancelled.
func (l *Limiter) Start(ctx context.Context) {
	ticker := l.clock.NewTicker(l.sweepEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				l.sweep()
			}
		}
	}()
}

func (l *Limiter) sweep() {
	now := l.clock.Now()

	l.mu.Lock()
	removed := 0
	for key, rec := range l.records {
		if !now.Before(rec.resetAt) {
			delete(l.records, key)
			removed++
		}
	}
	remaining := len(l.records)
	l.mu.Unlock()

	if removed > 0 && l.logger != nil {
		l.logger.Debug("rate limit sweep",
			zap.Int("removed", removed),
			zap.Int("remaining", remaining))
	}
}

// Size reports the number of tracked keys.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
