package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
)

// NewCheckOrigin returns the WebSocket origin check. It follows the CORS allow list:
// "*" admits everything, otherwise only listed origins and requests without an Origin
// header (non-browser clients) pass. In development, localhost origins are allowed too.
func NewCheckOrigin(allowOrigins []string, isDevelopment bool) func(r *http.Request) bool {
	allowAll := slices.Contains(allowOrigins, "*")

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" || allowAll {
			return true
		}

		if slices.Contains(allowOrigins, origin) {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
