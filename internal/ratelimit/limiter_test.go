package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter("quotes", 60) // 60 per minute = 1 per second

	if limiter.Name() != "quotes" {
		t.Errorf("Expected name 'quotes', got '%s'", limiter.Name())
	}

	// First few requests should be allowed immediately (burst)
	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Errorf("Request %d should have been allowed", i)
		}
	}
}

func TestLimiterWait(t *testing.T) {
	limiter := NewLimiter("quotes", 120) // 2 per second

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Should complete quickly
	start := time.Now()
	err := limiter.Wait(ctx)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if time.Since(start) > 1*time.Second {
		t.Error("Wait took too long")
	}
}

func TestLimiterBackoff(t *testing.T) {
	limiter := NewLimiter("quotes", 60)

	initial := limiter.Backoff()

	limiter.SignalRateLimited()
	after1 := limiter.Backoff()
	if after1 <= initial {
		t.Error("Backoff should increase after rate limit signal")
	}

	limiter.SignalRateLimited()
	after2 := limiter.Backoff()
	if after2 <= after1 {
		t.Error("Backoff should continue to increase")
	}

	limiter.ResetBackoff()
	afterReset := limiter.Backoff()
	if afterReset >= after2 {
		t.Error("Backoff should reset to initial value")
	}
}

func TestLimiterWaitHoldsOffAfterRateLimit(t *testing.T) {
	limiter := NewLimiter("quotes", 6000)

	// Two signals raise the backoff to 400ms; Wait must honor it.
	limiter.SignalRateLimited()
	limiter.SignalRateLimited()

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("Expected Wait to hold off for the backoff, returned after %v", elapsed)
	}

	// A cancelled context must interrupt the hold-off.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Error("Expected error from cancelled context during backoff")
	}
}

func TestMultiLimiter(t *testing.T) {
	ml := NewMultiLimiter()

	ml.Add("nse", 60)
	ml.Add("wikipedia", 30)

	// Check that both limiters exist
	if ml.Get("nse") == nil {
		t.Error("nse limiter should exist")
	}
	if ml.Get("wikipedia") == nil {
		t.Error("wikipedia limiter should exist")
	}
	if ml.Get("unknown") != nil {
		t.Error("unknown limiter should not exist")
	}

	// Wait on existing limiter
	ctx := context.Background()
	err := ml.Wait(ctx, "nse")
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	// Wait on non-existing limiter should succeed immediately
	err = ml.Wait(ctx, "nonexistent")
	if err != nil {
		t.Errorf("Wait on non-existing limiter should succeed: %v", err)
	}
}

func TestLimiterContextCancellation(t *testing.T) {
	limiter := NewLimiter("quotes", 1) // Very slow rate

	// Exhaust the burst
	for i := 0; i < 5; i++ {
		limiter.Allow()
	}

	// Create a context that will be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := limiter.Wait(ctx)
	if err == nil {
		t.Error("Expected error from cancelled context")
	}
}
