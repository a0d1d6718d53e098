package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// RequireAuth resolves the bearer token on every request and stores the
// Identity in the request context.
//
// Two failure modes, two status codes:
//   - no Authorization header, or one that is not "Bearer <token>": 401.
//     The client has not tried to authenticate.
//   - a bearer token that does not resolve (bad signature, expired, ...): 403.
//     The client presented credentials and they were refused.
//
// The response body uses the same {"error","message"} shape as the handlers.
func RequireAuth(tokens *TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			id, err := tokens.Resolve(raw)
			if err != nil {
				logger.Debug("rejected bearer token",
					slog.String("path", r.URL.Path),
					slog.Bool("expired", errors.Is(err, ErrTokenExpired)),
				)
				writeAuthError(w, http.StatusForbidden, "forbidden", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}
