// Package authmw provides HTTP middleware for bearer token authentication.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/linnemanlabs/go-core/log"
)

const bearerPrefix = "Bearer "

// BearerToken returns middleware that accepts a single token.
func BearerToken(token string) func(http.Handler) http.Handler {
	return BearerTokens(token)
}

// BearerTokens returns middleware that validates the Authorization header
// carries a Bearer token matching one of tokens. Empty entries are ignored.
// Every configured token is compared in constant time so the position of a
// match is not observable. The index of the matching token is added to the
// request logger as "auth.key" so callers can tell clients apart in logs
// without logging the secret.
func BearerTokens(tokens ...string) func(http.Handler) http.Handler {
	expected := make([][]byte, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			expected = append(expected, []byte(t))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if !strings.HasPrefix(auth, bearerPrefix) {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			got := []byte(auth[len(bearerPrefix):])

			match := -1
			for i, want := range expected {
				if subtle.ConstantTimeCompare(got, want) == 1 && match < 0 {
					match = i
				}
			}
			if match < 0 {
				log.FromContext(r.Context()).Warn(r.Context(), "rejected bearer token", "path", r.URL.Path)
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := log.WithContext(r.Context(), log.FromContext(r.Context()).With("auth.key", match))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
