package quota

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// dayFormat keys records by calendar day. Days are compared by value in
// UTC, not by elapsed duration: crossing midnight resets the counter no
// matter how few hours passed.
const dayFormat = "2006-01-02"

type record struct {
	day   string
	count int
}

// Enforcer tracks per-subject daily creation counters. Subjects are keyed
// by authenticated subject id when present, otherwise by the caller's
// anonymous fingerprint. Admin subjects are never tracked.
type Enforcer struct {
	mu      sync.Mutex
	records map[string]*record
	clock   clockwork.Clock
}

// NewEnforcer constructs an enforcer owning its own keyed store.
func NewEnforcer(clock clockwork.Clock) *Enforcer {
	return &Enforcer{
		records: make(map[string]*record),
		clock:   clock,
	}
}

// Reserve takes one creation slot for subjectKey today. Check and
// increment happen as a single step under the lock, so concurrent
// in-flight creates cannot be admitted past dailyLimit. The returned
// Decision carries a Release hook the caller invokes when the create
// action fails downstream; released slots return to the budget, so an
// attempt that fails validation costs no quota.
func (e *Enforcer) Reserve(subjectKey string, dailyLimit int, isAdmin bool) domain.Decision {
	if isAdmin {
		decision := domain.Allow()
		decision.Release = func() {}
		return decision
	}

	now := e.clock.Now().UTC()
	day := now.Format(dayFormat)

	e.mu.Lock()
	rec, ok := e.records[subjectKey]
	if !ok || rec.day != day {
		rec = &record{day: day}
		e.records[subjectKey] = rec
	}
	if rec.count >= dailyLimit {
		e.mu.Unlock()
		return domain.Decision{
			Allowed:   false,
			Reason:    domain.ReasonQuotaExceeded,
			Limit:     dailyLimit,
			Remaining: 0,
			ResetAt:   nextUTCMidnight(now),
		}
	}
	rec.count++
	remaining := dailyLimit - rec.count
	e.mu.Unlock()

	var once sync.Once
	return domain.Decision{
		Allowed:   true,
		Limit:     dailyLimit,
		Remaining: remaining,
		ResetAt:   nextUTCMidnight(now),
		Release: func() {
			once.Do(func() {
				e.release(subjectKey, day)
			})
		},
	}
}

// release returns a reserved slot. The day is the one the slot was taken
// on; a release arriving after midnight is a no-op since the counter it
// belonged to has already lapsed.
func (e *Enforcer) release(subjectKey, day string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rec, ok := e.records[subjectKey]; ok && rec.day == day && rec.count > 0 {
		rec.count--
	}
}

// Used reports today's reserved count for subjectKey.
func (e *Enforcer) Used(subjectKey string) int {
	day := e.clock.Now().UTC().Format(dayFormat)

	e.mu.Lock()
	defer e.mu.Unlock()

	if rec, ok := e.records[subjectKey]; ok && rec.day == day {
		return rec.count
	}
	return 0
}

func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
