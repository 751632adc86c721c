package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestConversionLimiter_AcquireRelease(t *testing.T) {
	limiter := NewConversionLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("initial ActiveCount = %d, want 0", got)
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	status := limiter.Status()
	if status.Active != 2 || status.Available != 0 {
		t.Errorf("Status = %+v, want Active 2, Available 0", status)
	}

	limiter.Release()
	limiter.Release()

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("after Release, ActiveCount = %d, want 0", got)
	}
}

func TestConversionLimiter_TimesOutWhenFull(t *testing.T) {
	limiter := NewConversionLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrTooManyConversions) {
		t.Errorf("expected ErrTooManyConversions, got %v", err)
	}
}

func TestConversionLimiter_ContextCancellation(t *testing.T) {
	limiter := NewConversionLimiter(1, 5*time.Second)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	cancelCtx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- limiter.Acquire(cancelCtx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Acquire did not return after context cancellation")
	}
}

func TestConversionLimiter_ConcurrentAccess(t *testing.T) {
	const maxConcurrent = 3
	limiter := NewConversionLimiter(maxConcurrent, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	maxObserved := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer limiter.Release()

			mu.Lock()
			if c := limiter.ActiveCount(); c > maxObserved {
				maxObserved = c
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
		}()
	}
	wg.Wait()

	if maxObserved > maxConcurrent {
		t.Errorf("exceeded max concurrent: observed %d, max %d", maxObserved, maxConcurrent)
	}
}

func TestConversionLimiter_WaitForDrain(t *testing.T) {
	limiter := NewConversionLimiter(2, time.Second)
	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire should succeed")
	}

	drainDone := make(chan error, 1)
	go func() {
		drainDone <- limiter.WaitForDrain(context.Background())
	}()

	select {
	case <-drainDone:
		t.Error("WaitForDrain returned with an active conversion")
	case <-time.After(30 * time.Millisecond):
	}

	limiter.Release()

	select {
	case err := <-drainDone:
		if err != nil {
			t.Errorf("WaitForDrain returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("WaitForDrain did not complete after release")
	}
}

func TestConversionLimiter_DefaultValues(t *testing.T) {
	limiter := NewConversionLimiter(0, 0)

	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentConversions {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentConversions)
	}
}
