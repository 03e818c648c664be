package middleware

import (
	"net/http"
	"time"
)

const timeoutBody = `{"message":"Request timed out","code":"REQUEST_TIMEOUT"}`

// Timeout bounds a request with http.TimeoutHandler. Its 503 body goes to the
// outer writer, so the JSON content type is set there first; handlers that
// finish in time replace it with their own headers.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			bounded.ServeHTTP(w, r)
		})
	}
}
