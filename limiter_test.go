package metalworks

import (
	"testing"
	"time"
)

func TestWindowLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewWindowLimiter(2, 200*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestWindowLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewWindowLimiter(1, time.Minute)
	defer limiter.Stop()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second attempt to be blocked")
	}

	now = now.Add(61 * time.Second)
	if !limiter.Allow(ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestWindowLimiterIsPerIP(t *testing.T) {
	limiter := NewWindowLimiter(1, 200*time.Millisecond)
	defer limiter.Stop()

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed")
	}
}

func TestWindowLimiterCheckDoesNotRecord(t *testing.T) {
	limiter := NewWindowLimiter(1, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.40"

	for i := 0; i < 3; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("Check %d should not consume attempts", i)
		}
	}
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected block after a recorded failure")
	}
	limiter.Reset(ip)
	if !limiter.Check(ip) {
		t.Fatalf("expected Reset to clear attempts")
	}
}

func TestContactWindowThreePerMinute(t *testing.T) {
	limiter := NewWindowLimiter(3, time.Minute)
	defer limiter.Stop()
	start := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	now := start
	limiter.now = func() time.Time { return now }
	ip := "198.51.100.1"

	for _, offset := range []time.Duration{0, 10 * time.Second, 20 * time.Second} {
		now = start.Add(offset)
		if !limiter.Allow(ip) {
			t.Fatalf("submission at +%s should be allowed", offset)
		}
	}
	if !limiter.Allow("198.51.100.2") {
		t.Fatal("other IPs should not be affected")
	}
	for _, offset := range []time.Duration{30 * time.Second, 59 * time.Second} {
		now = start.Add(offset)
		if limiter.Allow(ip) {
			t.Fatalf("fourth submission at +%s should be blocked", offset)
		}
	}

	now = start.Add(61 * time.Second)
	if !limiter.Allow(ip) {
		t.Fatal("the first submission should have left the window")
	}
	now = start.Add(65 * time.Second)
	if limiter.Allow(ip) {
		t.Fatal("only one slot frees up when one submission expires")
	}
}

func TestAPILimiterTokenBucket(t *testing.T) {
	limiter := NewAPILimiter(1, 2)
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ip := "198.51.100.3"

	if !limiter.Allow(ip) || !limiter.Allow(ip) {
		t.Fatal("burst requests should be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatal("request beyond the burst should be blocked")
	}
	if !limiter.Allow("198.51.100.4") {
		t.Fatal("other IPs should not be affected")
	}
	now = now.Add(time.Second)
	if !limiter.Allow(ip) {
		t.Fatal("a token should be refilled after one second")
	}
}
