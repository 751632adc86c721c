package core

// limiter.go bounds the number of conversions holding a resolver handle at
// once.
//
// Opening a handle builds the binary's full line table in memory, so a burst
// of conversions against large binaries is limited with a semaphore. When
// all slots are taken a conversion waits up to maxWait before failing with
// ErrTooManyConversions.
//
// WaitForDrain blocks until in-flight conversions finish, for graceful
// shutdown.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyConversions is returned when all conversion slots stay occupied
// for the whole wait. Clients should retry after a short delay.
var ErrTooManyConversions = errors.New("too many concurrent conversions, please try again later")

// DefaultMaxConcurrentConversions is the default limit for parallel conversions.
const DefaultMaxConcurrentConversions = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ConversionLimiter controls concurrent conversions using a semaphore.
type ConversionLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewConversionLimiter creates a limiter that allows at most maxConcurrent
// simultaneous conversions. Non-positive arguments select the defaults.
func NewConversionLimiter(maxConcurrent int, maxWait time.Duration) *ConversionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentConversions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ConversionLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. It returns ctx.Err() if ctx ends first and
// ErrTooManyConversions if the wait times out. The caller must Release.
func (l *ConversionLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyConversions
	}
}

// TryAcquire takes a slot without blocking and reports whether it did.
func (l *ConversionLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *ConversionLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of conversions holding a slot.
func (l *ConversionLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *ConversionLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// WaitForDrain blocks until no conversion holds a slot or ctx ends.
func (l *ConversionLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *ConversionLimiter) Status() LimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
