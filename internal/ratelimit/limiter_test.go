package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2026, 10, 12, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCheckLogin_LockoutAfterMaxAttempts(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		MaxAttempts:  3,
		Lockout:      10 * time.Minute,
		MaxIPPerHour: 100,
		Clock:        clock,
	})
	defer limiter.Close()

	identifier := "shopper@example.com"
	ip := "203.0.113.5"

	for i := 0; i < 2; i++ {
		if result := limiter.CheckLogin(identifier, ip); !result.Allowed {
			t.Fatalf("attempt %d should be allowed, got blocked: %s", i+1, result.Reason)
		}
		if limiter.RecordFailure(identifier, ip) {
			t.Fatalf("attempt %d should not trigger lockout", i+1)
		}
	}

	if !limiter.RecordFailure(identifier, ip) {
		t.Fatal("third failure should trigger lockout")
	}

	clock.Advance(4 * time.Minute)
	result := limiter.CheckLogin("SHOPPER@example.com ", ip)
	if result.Allowed {
		t.Fatal("identifier should be locked regardless of case")
	}
	if result.Reason != "lockout" {
		t.Errorf("expected reason 'lockout', got '%s'", result.Reason)
	}
	if result.RetryAfter != 6*time.Minute {
		t.Errorf("expected RetryAfter 6m, got %v", result.RetryAfter)
	}

	clock.Advance(6 * time.Minute)
	if result := limiter.CheckLogin(identifier, ip); !result.Allowed {
		t.Fatalf("lockout should have expired, got blocked: %s", result.Reason)
	}
}

func TestReset_ClearsFailures(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxAttempts: 2, Lockout: time.Minute, MaxIPPerHour: 100, Clock: clock})
	defer limiter.Close()

	limiter.RecordFailure("a@example.com", "203.0.113.9")
	limiter.Reset("a@example.com")
	if limiter.RecordFailure("a@example.com", "203.0.113.9") {
		t.Fatal("failure after reset should not lock out")
	}
}

func TestCheckLogin_IPHourlyLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxAttempts: 100, Lockout: time.Minute, MaxIPPerHour: 3, Clock: clock})
	defer limiter.Close()

	ip := "198.51.100.7"
	for _, id := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		limiter.RecordFailure(id, ip)
	}

	result := limiter.CheckLogin("d@example.com", ip)
	if result.Allowed || result.Reason != "ip_hourly_limit" {
		t.Fatalf("expected ip_hourly_limit, got %+v", result)
	}

	clock.Advance(time.Hour)
	if result := limiter.CheckLogin("d@example.com", ip); !result.Allowed {
		t.Fatalf("ip window should have rolled over, got %s", result.Reason)
	}
}

func TestIPLimiter_AllowAndPrune(t *testing.T) {
	clock := newMockClock()
	limiter := NewIPLimiter(60, 2, clock)

	if !limiter.Allow("203.0.113.1") || !limiter.Allow("203.0.113.1") {
		t.Fatal("burst of two should be allowed")
	}
	if limiter.Allow("203.0.113.1") {
		t.Fatal("third immediate request should be limited")
	}
	if !limiter.Allow("203.0.113.2") {
		t.Fatal("other IPs have their own bucket")
	}

	clock.Advance(time.Second)
	if !limiter.Allow("203.0.113.1") {
		t.Fatal("one token should refill after a second")
	}

	clock.Advance(time.Hour)
	if removed := limiter.Prune(30 * time.Minute); removed != 2 {
		t.Fatalf("expected 2 pruned buckets, got %d", removed)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		want       string
	}{
		{"remote addr", "203.0.113.10:5555", "", false, "203.0.113.10"},
		{"ignores xff when untrusted", "10.0.0.1:5555", "198.51.100.1", false, "10.0.0.1"},
		{"rightmost public xff", "10.0.0.1:5555", "198.51.100.1, 203.0.113.20, 10.0.0.2", true, "203.0.113.20"},
		{"all private xff", "10.0.0.1:5555", "10.0.0.3, 192.168.1.4", true, "192.168.1.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := GetClientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	if got := SanitizeIdentifier("Shopper@Example.com"); got != "sh***@example.com" {
		t.Errorf("unexpected sanitized email %q", got)
	}
	if got := SanitizeIdentifier("ab@example.com"); got != "***@example.com" {
		t.Errorf("unexpected sanitized short email %q", got)
	}
}
