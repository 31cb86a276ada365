package identity

import (
	"net/http/httptest"
	"testing"
)

func TestResolvePrefersRealIPHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")

	if got := Resolve(req); got != "203.0.113.7" {
		t.Fatalf("got %q, want 203.0.113.7", got)
	}
}

func TestResolveUsesFirstForwardedForEntry(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", " 198.51.100.1 , 10.0.0.1")

	if got := Resolve(req); got != "198.51.100.1" {
		t.Fatalf("got %q, want 198.51.100.1", got)
	}
}

func TestResolveFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:4242"

	if got := Resolve(req); got != "192.0.2.10" {
		t.Fatalf("got %q, want 192.0.2.10", got)
	}
}

func TestResolveUnknownWhenNothingAvailable(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = ""

	if got := Resolve(req); got != Unknown {
		t.Fatalf("got %q, want %q", got, Unknown)
	}

	if got := Resolve(nil); got != Unknown {
		t.Fatalf("nil request: got %q, want %q", got, Unknown)
	}
}
