package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestRequireJWTRejectsMissingHeader(t *testing.T) {
	v := &JWTValidator{Secret: []byte("shh")}
	handler := RequireJWT(v, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/proposals/abc/promote", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireJWTRejectsMissingApprovedBy(t *testing.T) {
	secret := []byte("shh")
	v := &JWTValidator{Secret: secret}
	token := signToken(t, secret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})

	handler := RequireJWT(v, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/proposals/abc/promote", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireJWTAllowsValidTokenAndInjectsApprover(t *testing.T) {
	secret := []byte("shh")
	v := &JWTValidator{Secret: secret}
	token := signToken(t, secret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		ApprovedBy:       "reviewer-1",
	})

	var gotApprover string
	handler := RequireJWT(v, func(w http.ResponseWriter, r *http.Request) {
		gotApprover = ApproverFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/proposals/abc/promote", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "reviewer-1", gotApprover)
}

func TestRequireJWTRejectsExpiredToken(t *testing.T) {
	secret := []byte("shh")
	v := &JWTValidator{Secret: secret}
	token := signToken(t, secret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
		ApprovedBy:       "reviewer-1",
	})

	handler := RequireJWT(v, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/proposals/abc/promote", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireJWTFailsClosedWithNilValidator(t *testing.T) {
	handler := RequireJWT(nil, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/proposals/abc/promote", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
