package resilience

import (
	"errors"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// DefaultRetryInterval is how long a dependency stays in fallback mode
// before the primary is optimistically retried.
const DefaultRetryInterval = 60 * time.Second

// fallbackState tracks degradation per (service, operation) key.
type fallbackState struct {
	warned        bool
	lastFailureAt time.Time
	usingFallback bool
}

// Executor wraps calls to one unreliable external dependency. Each
// operation gets its own fallback state: the primary is attempted
// unless that operation is in fallback mode and the retry interval has
// not yet elapsed since its last recorded failure. Calls degrade to the
// fallback instead of surfacing dependency unavailability.
type Executor struct {
	service string
	hint    string

	mu            sync.Mutex
	states        map[string]*fallbackState
	retryInterval time.Duration
}

// New creates an executor for the named dependency. The hint is
// included in the first-failure warning so operators know how to bring
// the dependency back.
func New(service, hint string) *Executor {
	return &Executor{
		service:       service,
		hint:          hint,
		states:        make(map[string]*fallbackState),
		retryInterval: DefaultRetryInterval,
	}
}

// SetRetryInterval changes how long fallback mode persists before the
// primary is retried.
func (e *Executor) SetRetryInterval(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retryInterval = d
}

// FallbackActive reports whether the operation is currently degraded.
func (e *Executor) FallbackActive(operation string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[operation]
	return ok && st.usingFallback
}

// ForceRetryPrimary clears fallback state so the next call attempts the
// primary immediately.
func (e *Executor) ForceRetryPrimary(operation string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, operation)
}

// Do runs primary unless the operation is in fallback mode with the
// retry interval still pending. A primary failure records the failure
// and degrades to fallback synchronously; the returned error can only
// come from the fallback itself, never from dependency unavailability.
func Do[T any](e *Executor, operation string, primary, fallback func() (T, error)) (T, error) {
	if e.shouldTryPrimary(operation) {
		result, err := primary()
		if err == nil {
			e.recordSuccess(operation)
			return result, nil
		}
		e.recordFailure(operation, err)
	}
	return fallback()
}

func (e *Executor) shouldTryPrimary(operation string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[operation]
	if !ok || !st.usingFallback {
		return true
	}
	return time.Since(st.lastFailureAt) >= e.retryInterval
}

func (e *Executor) recordSuccess(operation string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[operation]; ok && st.usingFallback {
		log.Printf("%s: %s recovered, leaving fallback mode", e.service, operation)
	}
	delete(e.states, operation)
}

func (e *Executor) recordFailure(operation string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[operation]
	if !ok {
		st = &fallbackState{}
		e.states[operation] = st
	}
	st.lastFailureAt = time.Now()
	st.usingFallback = true

	if !st.warned {
		st.warned = true
		log.Printf("WARNING: %s unavailable for %s (%s): %v — switching to fallback. %s",
			e.service, operation, classifyFailure(err), err, e.hint)
		return
	}
	log.Printf("debug: %s still failing for %s (%s)", e.service, operation, classifyFailure(err))
}

// classifyFailure distinguishes failure modes for logging only; every
// kind of failure triggers the same fallback behavior.
func classifyFailure(err error) string {
	if err == nil {
		return "unknown"
	}
	var netErr net.Error
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"):
		return "connection refused"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "network timeout"
	case strings.Contains(msg, "status code: 4"),
		strings.Contains(msg, "status 4"):
		return "http 4xx"
	case strings.Contains(msg, "status code: 5"),
		strings.Contains(msg, "status 5"):
		return "http 5xx"
	default:
		return "unexpected error"
	}
}
