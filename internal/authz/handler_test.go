package authz

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiq-bot/logiq/internal/capability"
)

func newDecisionRouter(overrides *stubOverrides) chi.Router {
	handler := NewHandler(slog.Default(), testEngine(overrides), capability.NewRegistry())
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router
}

func postDecision(t *testing.T, router chi.Router, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/decisions", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDecisionEndpointAllows(t *testing.T) {
	router := newDecisionRouter(&stubOverrides{})

	rec := postDecision(t, router, map[string]any{
		"actor":        ActorPayload{TenantID: 1, UserID: 100, RoleIDs: []int64{10}, TopRoleRank: 5},
		"capability":   "mod.warn",
		"base_granted": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var verdict Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))
	assert.True(t, verdict.Allowed)
	assert.Equal(t, ReasonNoOverride, verdict.Reason)
}

func TestDecisionEndpointDeniesWithTarget(t *testing.T) {
	router := newDecisionRouter(&stubOverrides{})

	rec := postDecision(t, router, map[string]any{
		"actor":        ActorPayload{TenantID: 1, UserID: 100, RoleIDs: []int64{10}, TopRoleRank: 5},
		"capability":   "mod.warn",
		"base_granted": true,
		"target":       ActorPayload{TenantID: 1, UserID: 200, TopRoleRank: 8},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var verdict Verdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))
	assert.False(t, verdict.Allowed)
	assert.Equal(t, ReasonHierarchyBlocked, verdict.Reason)
}

func TestDecisionEndpointRejectsUnknownCapability(t *testing.T) {
	router := newDecisionRouter(&stubOverrides{})

	rec := postDecision(t, router, map[string]any{
		"actor":        ActorPayload{TenantID: 1, UserID: 100},
		"capability":   "mod.vaporize",
		"base_granted": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapabilitiesEndpointListsCatalog(t *testing.T) {
	router := newDecisionRouter(&stubOverrides{})

	req := httptest.NewRequest(http.MethodGet, "/capabilities", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []struct {
		Key       string `json:"key"`
		Sensitive bool   `json:"sensitive"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.NotEmpty(t, items)

	keys := make(map[string]bool, len(items))
	for _, item := range items {
		keys[item.Key] = item.Sensitive
	}
	sensitive, ok := keys["mod.vc_suspend"]
	require.True(t, ok)
	assert.True(t, sensitive)
}
