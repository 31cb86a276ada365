// Package identity derives the quota partition key from request metadata.
package identity

import (
	"net"
	"net/http"
	"strings"
)

// Unknown is the sentinel identity used when no client address is available.
const Unknown = "unknown"

// Resolve returns the client identity for a request. It prefers a trusted
// proxy-injected client IP header, then the first forwarded-for entry, then
// the connection's remote address. It always returns a non-empty string.
func Resolve(r *http.Request) string {
	if r == nil {
		return Unknown
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first := forwarded
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			first = forwarded[:idx]
		}
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if host, _, errSplit := net.SplitHostPort(r.RemoteAddr); errSplit == nil && strings.TrimSpace(host) != "" {
		return host
	}
	if remote := strings.TrimSpace(r.RemoteAddr); remote != "" {
		return remote
	}

	return Unknown
}
