package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/promote"
	"github.com/basinforge/skillforge/pkg/registry"
	"github.com/stretchr/testify/require"
)

func TestHealthzIsPublic(t *testing.T) {
	store, err := ledger.NewSQLite(context.Background(), t.TempDir()+"/ledger.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.NewStore(t.TempDir() + "/registry.yaml")
	srv := NewServer(store, promote.NewPromoter(store, reg), &JWTValidator{Secret: []byte("shh")})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPromoteEndpointRequiresAuth(t *testing.T) {
	store, err := ledger.NewSQLite(context.Background(), t.TempDir()+"/ledger.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.NewStore(t.TempDir() + "/registry.yaml")
	srv := NewServer(store, promote.NewPromoter(store, reg), &JWTValidator{Secret: []byte("shh")})

	req := httptest.NewRequest(http.MethodPost, "/proposals/abc/promote", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
