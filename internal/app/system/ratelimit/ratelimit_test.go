package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("a") {
		t.Error("request over the limit should be denied")
	}
	// Other keys have their own window.
	if !l.Allow("b") {
		t.Error("unrelated key should be allowed")
	}
}

func TestLimiter_WindowExpiry(t *testing.T) {
	l := New(1, 10*time.Millisecond)

	if !l.Allow("a") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("second request should be denied")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.Allow("a") {
		t.Error("request after window expiry should be allowed")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute)

	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("should be at the limit")
	}
	l.Reset("a")
	if !l.Allow("a") {
		t.Error("request after reset should be allowed")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"remote addr", "10.0.0.1:1234", "", "", "10.0.0.1"},
		{"x-forwarded-for", "10.0.0.1:1234", "203.0.113.5, 10.0.0.2", "", "203.0.113.5"},
		{"x-real-ip", "10.0.0.1:1234", "", "203.0.113.9", "203.0.113.9"},
		{"no port", "10.0.0.7", "", "", "10.0.0.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInviteLimiter(t *testing.T) {
	il := NewInviteLimiter()

	r := httptest.NewRequest(http.MethodPost, "/workspaces/join", nil)
	r.RemoteAddr = "10.0.0.1:1234"

	for i := 0; i < 10; i++ {
		if !il.Check(r, "u1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if il.Check(r, "u1") {
		t.Error("attempt over the IP limit should be denied")
	}

	// The account limit keeps counting across IPs.
	for i := 0; i < 20; i++ {
		other := httptest.NewRequest(http.MethodPost, "/workspaces/join", nil)
		other.RemoteAddr = fmt.Sprintf("10.0.%d.2:1234", i)
		if !il.Check(other, "u2") {
			t.Fatalf("attempt %d for u2 should be allowed", i+1)
		}
	}
	fresh := httptest.NewRequest(http.MethodPost, "/workspaces/join", nil)
	fresh.RemoteAddr = "10.0.99.2:1234"
	if il.Check(fresh, "u2") {
		t.Error("attempt over the uid limit should be denied")
	}

	il.ResetUID("u2")
	if !il.Check(fresh, "u2") {
		t.Error("attempt after uid reset should be allowed")
	}
}
