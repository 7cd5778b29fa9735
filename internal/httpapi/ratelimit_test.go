package httpapi

import "testing"

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	l := NewRateLimiter(600, 5, 5)

	for i := 0; i < 5; i++ {
		if !l.Allow("10.0.0.1", "") {
			t.Fatalf("request %d unexpectedly denied", i)
		}
	}
}

func TestRateLimiterDeniesOverIPBurst(t *testing.T) {
	l := NewRateLimiter(6000, 2, 2000)

	l.Allow("10.0.0.1", "")
	l.Allow("10.0.0.1", "")
	if l.Allow("10.0.0.1", "") {
		t.Error("expected third request from same IP to be denied")
	}
}

func TestRateLimiterTracksIPsIndependently(t *testing.T) {
	l := NewRateLimiter(6000, 1, 2000)

	if !l.Allow("10.0.0.1", "") {
		t.Fatal("first request from ip1 should be allowed")
	}
	if !l.Allow("10.0.0.2", "") {
		t.Fatal("first request from a different ip should be allowed independently")
	}
}

func TestRateLimiterDeniesOverKeyBurst(t *testing.T) {
	l := NewRateLimiter(6000, 2000, 1)

	if !l.Allow("10.0.0.1", "key-a") {
		t.Fatal("first request with key should be allowed")
	}
	if l.Allow("10.0.0.2", "key-a") {
		t.Error("expected second request with the same key (different ip) to be denied")
	}
}

func TestRateLimiterDeniesOverGlobalBudget(t *testing.T) {
	l := NewRateLimiter(1, 2000, 2000)

	if !l.Allow("10.0.0.1", "") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("10.0.0.2", "") {
		t.Error("expected second request to exhaust the global bucket")
	}
}
