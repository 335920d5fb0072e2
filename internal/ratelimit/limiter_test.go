package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5, 0)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1, 0)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1, 0)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "api.gbif.org"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different key should also work
	if err := limiter.Wait(ctx, "10.0.0.1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1, 0)
	if !limiter.Allow("slow") {
		t.Fatal("first request should pass")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "slow"); err == nil {
		t.Error("expected wait to fail once the bucket is empty and ctx expires")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1, 0)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("host") {
			t.Fatalf("request %d rejected by unlimited limiter", i)
		}
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1, 0)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "client-a"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst 1 is consumed
	if limiter.Allow("client-a") {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("client-b") {
		t.Errorf("expected allow for other key")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10, 0)
	limiter.SetRate("slow.example", 0.1, 1)

	if !limiter.Allow("slow.example") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("slow.example") {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("fast.example") {
		t.Errorf("other key should pass")
	}
}

func TestLimiter_IdleKeysExpire(t *testing.T) {
	limiter := NewLimiter(1, 1, 20*time.Millisecond)
	limiter.Allow("client")
	if limiter.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", limiter.Len())
	}

	time.Sleep(80 * time.Millisecond)

	if limiter.Len() != 0 {
		t.Errorf("expected idle key to expire, got %d keys", limiter.Len())
	}
	// Expired key starts over with a full bucket
	if !limiter.Allow("client") {
		t.Error("expected fresh bucket after expiry")
	}
}

func TestHostKey(t *testing.T) {
	host, err := HostKey("https://api.gbif.org/v1/occurrence/search")
	if err != nil {
		t.Fatalf("HostKey failed: %v", err)
	}
	if host != "api.gbif.org" {
		t.Errorf("expected api.gbif.org, got %s", host)
	}

	if _, err := HostKey("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
	if _, err := HostKey("/relative/path"); err == nil {
		t.Errorf("expected error for URL without host")
	}
}
