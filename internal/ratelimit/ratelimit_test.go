package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyedLimiterAllow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
		{
			name:     "unlimited when rps zero",
			rps:      0,
			burst:    1,
			calls:    10,
			wantPass: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("backend") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedLimiterKeysIndependent(t *testing.T) {
	rl := New(1, 1)
	if !rl.Allow("gemini") {
		t.Fatal("first gemini call should pass")
	}
	if rl.Allow("gemini") {
		t.Fatal("second gemini call should be limited")
	}
	if !rl.Allow("openai") {
		t.Fatal("openai bucket should be independent")
	}
}

func TestKeyedLimiterWaitHonorsCancel(t *testing.T) {
	rl := New(0.1, 1) // one token, then 10s refill
	if err := rl.Wait(context.Background(), "backend"); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := rl.Wait(ctx, "backend")
	if err == nil {
		t.Fatal("expected Wait to fail when context expires before refill")
	}
	if time.Since(start) > time.Second {
		t.Fatal("Wait should return promptly after cancellation")
	}
}

func TestKeyedLimiterWaitImmediateWithinBurst(t *testing.T) {
	rl := New(10, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := rl.Wait(ctx, "backend"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("Wait within burst should be immediate")
	}
}
