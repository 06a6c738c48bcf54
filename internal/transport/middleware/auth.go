package middleware

import (
	"crypto/rsa"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	internal "github.com/vkotelnikov/eduplatform/internal"
)

// Auth verifies bearer tokens issued by the external identity service and
// puts the subject's user id into the request context. Only RS256 tokens
// signed by the configured key are accepted.
func Auth(publicKey *rsa.PublicKey, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeAuthError(w, "authorization header is required")
				return
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				return publicKey, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
			if err != nil || !token.Valid {
				logger.Warn("rejected bearer token", "error", err, "path", r.URL.Path)
				writeAuthError(w, "invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeAuthError(w, "invalid token claims")
				return
			}

			userID := subjectUserID(claims)
			if userID == 0 {
				writeAuthError(w, "token subject is missing")
				return
			}

			ctx := internal.ContextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func subjectUserID(claims jwt.MapClaims) int64 {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"type":"UNAUTHORIZED","code":"INVALID_TOKEN","message":"` + message + `"}}`))
}
