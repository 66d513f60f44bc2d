package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/raviro/statuspage-backend/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserClaimsKey is the key used to store user claims in the request context.
const UserClaimsKey contextKey = "userClaims"

// JWTMiddleware validates the JWT token from the Authorization header.
// Requests without a valid token are rejected.
func JWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromRequest(tm, r)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			if claims == nil {
				writeAuthError(w, errMissingToken)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTMiddleware attaches claims when a valid token is presented but
// lets anonymous requests through. Used on the WebSocket endpoint, where
// public status page viewers connect without an account. A token that is
// present but invalid is still rejected.
func OptionalJWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromRequest(tm, r)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := r.Context()
			if claims != nil {
				ctx = context.WithValue(ctx, UserClaimsKey, claims)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the authenticated user's claims from the context, if
// the request carried a valid token.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.Claims)
	return claims, ok
}

type authError struct {
	message string
}

func (e *authError) Error() string { return e.message }

var (
	errMissingToken = &authError{"Authorization header is required"}
	errBadFormat    = &authError{"Authorization header format must be Bearer {token}"}
	errInvalidToken = &authError{"Invalid or expired token"}
)

// claimsFromRequest parses the Authorization header. It returns (nil, nil)
// when no token was presented at all.
func claimsFromRequest(tm *auth.TokenManager, r *http.Request) (*auth.Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		// Browsers cannot set headers on WebSocket dials, so the token may
		// also arrive as a query parameter.
		if token := r.URL.Query().Get("token"); token != "" {
			claims, err := tm.ValidateToken(token)
			if err != nil {
				return nil, errInvalidToken
			}
			return claims, nil
		}
		return nil, nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errBadFormat
	}

	claims, err := tm.ValidateToken(parts[1])
	if err != nil {
		return nil, errInvalidToken
	}
	return claims, nil
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + err.Error() + `","code":"UNAUTHORIZED"}`))
}
