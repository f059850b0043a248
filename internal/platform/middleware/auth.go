package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating operator access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	Username string
	Role     string
}

type contextKeyOperator struct{}

// ContextKeyOperator is exported for use in handlers and tests.
var ContextKeyOperator = contextKeyOperator{}

// GetOperator retrieves the authenticated operator username from the context.
func GetOperator(ctx context.Context) string {
	claims, ok := ctx.Value(ContextKeyOperator).(*JWTClaims)
	if !ok {
		return ""
	}
	return claims.Username
}

// GetOperatorRole retrieves the authenticated operator role from the context.
func GetOperatorRole(ctx context.Context) string {
	claims, ok := ctx.Value(ContextKeyOperator).(*JWTClaims)
	if !ok {
		return ""
	}
	return claims.Role
}

// RequireAuth guards operator-only routes (template management, exports).
// Ingestion routes are gated by OTP evidence instead and stay open.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyOperator, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
