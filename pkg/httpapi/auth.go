// Package httpapi exposes the forge's command surface over HTTP (the
// optional thin control surface from spec.md §6), with the promote
// endpoint gated behind a JWT bearer token.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims required to call the promote endpoint.
type Claims struct {
	jwt.RegisteredClaims
	ApprovedBy string `json:"approved_by"`
}

// JWTValidator validates bearer tokens against a shared HMAC secret,
// the simplest credential a single-writer local deployment needs.
type JWTValidator struct {
	Secret []byte
}

func (v *JWTValidator) Validate(tokenStr string) (*Claims, error) {
	if len(v.Secret) == 0 {
		return nil, fmt.Errorf("validator has no configured secret")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method)
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// RequireJWT rejects requests without a valid Bearer token. A nil
// validator fails closed: every request is rejected.
func RequireJWT(validator *JWTValidator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "missing or malformed Authorization header", http.StatusUnauthorized)
			return
		}
		if validator == nil {
			http.Error(w, "authentication not configured", http.StatusUnauthorized)
			return
		}
		claims, err := validator.Validate(parts[1])
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		if claims.ApprovedBy == "" {
			http.Error(w, "token must carry an approved_by claim", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(withApprover(r.Context(), claims.ApprovedBy)))
	}
}

type contextKey string

const approverKey contextKey = "approved_by"

func withApprover(ctx context.Context, approvedBy string) context.Context {
	return context.WithValue(ctx, approverKey, approvedBy)
}

// ApproverFromContext returns the approved_by identity injected by
// RequireJWT, if any.
func ApproverFromContext(ctx context.Context) string {
	v, _ := ctx.Value(approverKey).(string)
	return v
}
