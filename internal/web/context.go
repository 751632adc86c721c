package web

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/addr2line-web/addr2line/internal/logging"
)

// clientIP returns the client address without the port. RemoteAddr has
// already been replaced by TrustedRealIP for proxied requests.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// requestLogger returns a logger carrying the request id and client address.
func requestLogger(r *http.Request) *slog.Logger {
	return logging.WithFields(r.Context(), "ip", clientIP(r))
}
