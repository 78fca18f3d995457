package app

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func authedHandler(t *testing.T, token string) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return BearerAuth(slog.Default(), string(hash))(next)
}

func TestBearerAuthAcceptsValidToken(t *testing.T) {
	handler := authedHandler(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/v1/decisions", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBearerAuthRejectsWrongToken(t *testing.T) {
	handler := authedHandler(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/v1/decisions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuthRejectsMissingHeader(t *testing.T) {
	handler := authedHandler(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/v1/decisions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuthRejectsNonBearerScheme(t *testing.T) {
	handler := authedHandler(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/v1/decisions", nil)
	req.Header.Set("Authorization", "Basic c2VjcmV0")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
