package http

import (
	"net"
	"net/http"
	"strings"
)

// UnknownOrigin is the sentinel returned when no address can be resolved
// from a request. Callers always get a non-empty origin.
const UnknownOrigin = "unknown"

// ClientIP extracts the best-effort origin address from the request.
//
// Flow:
// 1. First public IP listed in X-Forwarded-For
// 2. X-Real-IP, if it is a public IP
// 3. RemoteAddr host
//
// Forwarded headers are client-controlled, so a value is only trusted when
// it parses as a public address: loopback, private and link-local values
// are skipped to prevent an attacker pinning abuse state onto internal
// addresses via header manipulation.
func ClientIP(r *http.Request) string {
	// 1. Check X-Forwarded-For (can contain multiple IPs, take the first public one)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if isPublicIP(ip) {
				return ip
			}
		}
	}

	// 2. Check X-Real-IP
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if isPublicIP(xri) {
			return xri
		}
	}

	// 3. Fall back to RemoteAddr
	return remoteAddr(r)
}

// remoteAddr extracts the IP address from RemoteAddr (removing port if present)
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return UnknownOrigin
	}
	// RemoteAddr may include port: "ip:port"
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// isPublicIP reports whether the string is a valid, publicly routable IP.
func isPublicIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified() {
		return false
	}
	return true
}
