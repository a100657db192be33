package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{name: "direct peer", remoteAddr: "203.0.113.7:5555", want: "203.0.113.7"},
		{name: "untrusted peer ignores forwarding", remoteAddr: "203.0.113.7:5555", xff: "198.51.100.1", want: "203.0.113.7"},
		{name: "trusted proxy forwards first hop", remoteAddr: "10.0.0.2:80", xff: "198.51.100.1, 10.0.0.5", want: "198.51.100.1"},
		{name: "trusted proxy with real ip", remoteAddr: "127.0.0.1:80", xri: "198.51.100.9", want: "198.51.100.9"},
		{name: "trusted proxy with garbage header", remoteAddr: "192.168.1.1:80", xff: "not-an-ip", want: "192.168.1.1"},
		{name: "unparseable remote addr", remoteAddr: "pipe", want: "pipe"},
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
			assert.Equal(t, tt.want, extractClientIP(r))
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{name: "plain api call", method: http.MethodGet, target: "/api/trips/t1/budget", want: false},
		{name: "path traversal", method: http.MethodGet, target: "/api/../etc/passwd", want: true},
		{name: "dotenv probe", method: http.MethodGet, target: "/.env", want: true},
		{name: "script in query", method: http.MethodGet, target: "/api/currencies?next=javascript:alert(1)", want: true},
		{name: "scanner agent", method: http.MethodGet, target: "/", agent: "sqlmap/1.7", want: true},
		{name: "trace method", method: "TRACE", target: "/", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				r.Header.Set("User-Agent", tt.agent)
			}
			assert.Equal(t, tt.want, detectSuspiciousRequest(r))
		})
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.stop()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"), "clients are limited independently")

	now = now.Add(time.Minute)
	assert.True(t, rl.allow("a"), "a new window starts after a minute")

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 2, rl.cleanupStaleEntries())
}

func TestRateLimiterDefaultLimit(t *testing.T) {
	rl := newRateLimiter(0)
	defer rl.stop()
	assert.Equal(t, defaultRequestsPerMinute, rl.limit)
}
