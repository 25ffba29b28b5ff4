package middleware

import (
	"net/http"
	"time"
)

// Timeout wraps a handler with an http.TimeoutHandler bounding how long a
// request may run before the server gives up and returns 503.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":{"code":"timeout","message":"request timeout"}}`)
	}
}
