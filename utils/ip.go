package utils

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the caller's IP address from a request. When
// trustProxyHeaders is set the X-Forwarded-For and X-Real-IP headers take
// precedence over the socket address; leave it unset unless a trusted reverse
// proxy fronts the server, since the headers are client-controlled otherwise.
func ClientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			// The first entry is the originating client.
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
