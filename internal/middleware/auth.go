package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"unicode"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDFromContext retrieves the caller ID set by InternalAuth, if any.
func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey).(string)
	return uid
}

// WithUserID returns a new context with the given caller ID set. Useful for
// testing handlers that depend on auth middleware.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userIDKey, uid)
}

// InternalAuth gates admin endpoints (config GET/PUT) behind a shared
// secret passed in X-Internal-Auth, paired with a caller ID in X-User-ID.
// There is no end-user identity provider in this system; every caller that
// holds the secret is trusted with the system:configure capability.
func InternalAuth(secret string) func(http.Handler) http.Handler {
	secretBytes := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Internal-Auth")
			if len(secretBytes) == 0 || subtle.ConstantTimeCompare([]byte(token), secretBytes) != 1 {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid internal auth token")
				return
			}

			userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
			if userID != "" {
				if len(userID) > 256 || !isPrintableASCII(userID) {
					respondError(w, http.StatusBadRequest, "invalid_user_id", "invalid user ID")
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isPrintableASCII checks that every rune is a printable ASCII character.
func isPrintableASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// respondError emits the §7 error envelope ({"error":{"code","message"}})
// so an auth failure matches every other non-2xx response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(rateLimitEnvelope{
		Error: rateLimitEnvelopeBody{
			Code:    code,
			Message: message,
		},
	})
}
