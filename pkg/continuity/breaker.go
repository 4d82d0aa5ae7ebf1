package continuity

import (
	"log"
	"sync"
)

// BreakerState is the explicit circuit breaker for the AI rewrite
// path. Once the consecutive failure limit is reached, the AI path
// stays disabled for the remainder of the run and every page falls
// through to deterministic repair.
type BreakerState struct {
	mu          sync.Mutex
	failures    int
	maxFailures int
	disabled    bool
}

func NewBreaker(maxFailures int) *BreakerState {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &BreakerState{maxFailures: maxFailures}
}

// RecordFailure counts a timeout or call error. Content-quality
// rejections must not be recorded here.
func (b *BreakerState) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disabled {
		return
	}
	b.failures++
	if b.failures >= b.maxFailures {
		b.disabled = true
		log.Printf("WARNING: AI rewrite disabled after %d consecutive failures, using deterministic repair only", b.failures)
	}
}

// RecordSuccess resets the consecutive failure count.
func (b *BreakerState) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// Disable turns the AI path off unconditionally.
func (b *BreakerState) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabled = true
}

func (b *BreakerState) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabled
}
