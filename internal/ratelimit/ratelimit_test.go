package ratelimit

import (
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
		{name: "zero burst is raised to one", rps: 1, burst: 0, calls: 2, wantPass: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("client") {
					passed++
				}
			}
			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := New(1, 1)
	if !rl.Allow("a") || !rl.Allow("b") {
		t.Fatal("first request per key must pass")
	}
	if rl.Allow("a") {
		t.Fatal("second request for a must be limited")
	}
}

func TestKeyedRateLimiter_Sweep(t *testing.T) {
	now := time.Now()
	rl := New(1, 1)
	rl.now = func() time.Time { return now }
	rl.Allow("old")

	now = now.Add(11 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.Sweep(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if rl.Len() != 1 {
		t.Fatalf("expected 1 key left, got %d", rl.Len())
	}
}
