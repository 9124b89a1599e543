package sms

import (
	"sync"
	"time"
)

// Class buckets outbound messages for quota purposes. Fraud alerts get a
// tighter daily cap than generic sends.
type Class string

const (
	ClassAlert   Class = "alert"
	ClassGeneric Class = "generic"
)

// Quota tracks per-class send counts for the current calendar day. Counters
// reset lazily on first use after a day boundary and are not persisted, so a
// process restart also resets them.
type Quota struct {
	mu     sync.Mutex
	now    func() time.Time
	day    string
	limits map[Class]int
	sent   map[Class]int
}

func NewQuota(alertLimit, genericLimit int) *Quota {
	q := &Quota{
		now: time.Now,
		limits: map[Class]int{
			ClassAlert:   alertLimit,
			ClassGeneric: genericLimit,
		},
		sent: make(map[Class]int),
	}
	q.day = q.now().Format("2006-01-02")
	return q
}

// NewQuotaWithClock is used by tests to control day boundaries.
func NewQuotaWithClock(alertLimit, genericLimit int, now func() time.Time) *Quota {
	q := NewQuota(alertLimit, genericLimit)
	q.now = now
	q.day = now().Format("2006-01-02")
	return q
}

// resetIfNewDay must be called with the mutex held.
func (q *Quota) resetIfNewDay() {
	today := q.now().Format("2006-01-02")
	if today != q.day {
		q.day = today
		q.sent = make(map[Class]int)
	}
}

// Reserve consumes one unit of today's quota for the class. It returns false
// when the quota is exhausted, in which case nothing is consumed. A caller
// whose send ultimately does not go out must call Release to return the unit.
func (q *Quota) Reserve(c Class) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfNewDay()
	if q.sent[c] >= q.limits[c] {
		return false
	}
	q.sent[c]++
	return true
}

// Release returns a previously reserved unit.
func (q *Quota) Release(c Class) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfNewDay()
	if q.sent[c] > 0 {
		q.sent[c]--
	}
}

// Remaining reports how many sends are left today for the class, along with
// the configured limit.
func (q *Quota) Remaining(c Class) (remaining, limit int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfNewDay()
	limit = q.limits[c]
	remaining = limit - q.sent[c]
	if remaining < 0 {
		remaining = 0
	}
	return remaining, limit
}
