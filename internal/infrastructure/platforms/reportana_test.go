package platforms

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

func TestReportanaAdapter_Sync(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	expectedAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("rp_key:rp_secret"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, expectedAuth, r.Header.Get("Authorization"))
		require.Contains(t, r.URL.Path, "/events")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"event":"abandoned_checkout","reference_id":"chk-100","customer":{"name":"Vera Cruz","email":"v@example.com","phone":"+5511999999999"},"value":129.90,"currency":"BRL","created_at":"2026-03-09T13:00:00Z"},
			{"event":"recovered_checkout","reference_id":"chk-100","customer":{"name":"Vera Cruz","email":"v@example.com","phone":"+5511999999999"},"value":129.90,"currency":"BRL","created_at":"2026-03-09T15:00:00Z"}
		]}`)
	}))
	defer server.Close()

	adapter := NewReportanaAdapter(deps)
	adapter.baseURL = server.URL
	adapter.deps.HTTPClient = server.Client()

	orgID := seedIntegration(t, deps, syncdomain.PlatformReportana, "", testCreds{apiKey: "rp_key", apiSecret: "rp_secret"})

	outcome, err := adapter.Sync(ctx, orgID)
	require.NoError(t, err)
	assert.True(t, outcome.IsSuccess())
	assert.Equal(t, 2, outcome.Synced)

	// Same reference under two event types lands as two distinct rows.
	count, err := deps.Events.CountForOrg(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	requireLedger(t, deps, orgID, syncdomain.PlatformReportana, syncdomain.SyncLogSuccess, 2)
}

func TestReportanaAdapter_Sync_Idempotent(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"event":"abandoned_checkout","reference_id":"chk-200","customer":{"name":"X","email":"x@example.com","phone":""},"value":10.00,"currency":"BRL","created_at":"2026-03-09T13:00:00Z"}]}`)
	}))
	defer server.Close()

	adapter := NewReportanaAdapter(deps)
	adapter.baseURL = server.URL
	adapter.deps.HTTPClient = server.Client()

	orgID := seedIntegration(t, deps, syncdomain.PlatformReportana, "", testCreds{apiKey: "rp_key", apiSecret: "rp_secret"})

	for i := 0; i < 3; i++ {
		outcome, err := adapter.Sync(ctx, orgID)
		require.NoError(t, err)
		assert.True(t, outcome.IsSuccess())
	}

	count, err := deps.Events.CountForOrg(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
