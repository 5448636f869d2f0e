/**
 * @description
 * This file contains custom middleware for the HTTP router. The ledger-service
 * sits behind the platform gateway, so callers authenticate with a shared
 * internal API key rather than end-user credentials.
 *
 * @dependencies
 * - crypto/subtle, net/http, strings: Standard Go libraries.
 */

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const internalAPIKeyHeader = "X-Internal-Api-Key"

// InternalAuthMiddleware creates a middleware that validates the shared
// internal API key. An empty configured key disables the check, which is only
// acceptable for local development.
func InternalAuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	expected := strings.TrimSpace(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}
			provided := strings.TrimSpace(r.Header.Get(internalAPIKeyHeader))
			if provided == "" {
				http.Error(w, "Internal API key required", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				http.Error(w, "Invalid internal API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
