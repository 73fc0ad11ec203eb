package util

import (
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestClientIP(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8", "192.168.1.10", ""})
	if err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		trusted    *TrustedProxies
		want       string
	}{
		{"untrusted peer ignores headers", "198.51.100.10:1234", "203.0.113.5", "203.0.113.6", trusted, "198.51.100.10"},
		{"no proxies configured", "198.51.100.10:1234", "203.0.113.5", "", nil, "198.51.100.10"},
		{"trusted peer uses forwarded for", "10.0.0.20:1234", "203.0.113.5", "", trusted, "203.0.113.5"},
		{"skips trusted hops from the right", "10.0.0.20:1234", "198.51.100.1, 203.0.113.5, 10.0.0.10", "", trusted, "203.0.113.5"},
		{"bad forwarded falls back to real ip", "192.168.1.10:80", "garbage", "203.0.113.7", trusted, "203.0.113.7"},
		{"all hops trusted returns leftmost", "10.0.0.20:1234", "10.0.0.5, 10.0.0.10", "", trusted, "10.0.0.5"},
		{"ipv6 peer", "[2001:db8::1]:443", "", "", trusted, "2001:db8::1"},
		{"unparseable peer returned as is", "pipe", "", "", trusted, "pipe"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/users/login", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := ClientIP(req, tc.trusted); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewTrustedProxies(t *testing.T) {
	p, err := NewTrustedProxies([]string{"10.1.2.3/8"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.Contains(netip.MustParseAddr("10.200.0.1")) {
		t.Fatalf("expected masked prefix to cover 10/8")
	}
	if !p.Contains(netip.MustParseAddr("::ffff:10.0.0.1")) {
		t.Fatalf("expected v4-mapped address to match")
	}
	if p, err := NewTrustedProxies(nil); err != nil || p != nil {
		t.Fatalf("expected nil allowlist, got %v %v", p, err)
	}
	if _, err := NewTrustedProxies([]string{"bad-cidr"}); err == nil {
		t.Fatalf("expected error for invalid entry")
	}
	if _, err := NewTrustedProxies([]string{"10.0.0.0/99"}); err == nil {
		t.Fatalf("expected error for invalid prefix")
	}
}
