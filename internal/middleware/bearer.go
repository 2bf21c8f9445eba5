// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/atinyakov/ReportDesk/internal/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Messages returned with 401 responses.
const (
	MsgUnauthorized = "unauthorized, please log in"
	MsgTokenExpired = "token expired, please log in again"
	MsgTokenInvalid = "token invalid"
)

// TokenVerifier decodes and checks a bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// BearerAuth is a middleware that requires a valid "Authorization: Bearer <token>"
// header.
//
// Missing or malformed headers, expired tokens and otherwise invalid tokens
// each produce a 401 with a distinct message. The next handler is not invoked
// in any of those cases. On success the decoded claims are stored in the
// request context and can be read with ClaimsFromContext.
func BearerAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, MsgUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					unauthorized(w, MsgTokenExpired)
					return
				}
				unauthorized(w, MsgTokenInvalid)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by BearerAuth.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
