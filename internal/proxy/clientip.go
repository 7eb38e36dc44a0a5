package proxy

import (
	"net"
	"net/http"
	"strings"
)

// ClientIdentifier resolves the source identifier used for rate limiting.
// Precedence: first X-Forwarded-For hop, then X-Real-Ip, then the peer
// address, then "unknown". The order determines fairness behind proxies
// and must not change.
func ClientIdentifier(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}

	return "unknown"
}
