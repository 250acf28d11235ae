package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

func TestFacebookAdapter_Sync_PurchaseExtraction(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/insights"):
			// One record with a purchase buried among unrelated actions,
			// one record with no actions array at all.
			fmt.Fprint(w, `{"data":[
				{"campaign_id":"c1","campaign_name":"Launch","adset_id":"s1","adset_name":"Set 1","ad_id":"a1","ad_name":"Ad 1","date_start":"2026-03-10","impressions":"1000","reach":"800","clicks":"50","spend":"45.12",
				 "actions":[
					{"action_type":"link_click","value":"40"},
					{"action_type":"page_engagement","value":"12"},
					{"action_type":"purchase","value":"3"},
					{"action_type":"post_reaction","value":"5"},
					{"action_type":"video_view","value":"200"}
				 ],
				 "action_values":[{"action_type":"purchase","value":"450.00"}]},
				{"campaign_id":"c1","campaign_name":"Launch","adset_id":"s1","adset_name":"Set 1","ad_id":"a2","ad_name":"Ad 2","date_start":"2026-03-10","impressions":"500","reach":"400","clicks":"20","spend":"10.00"}
			],"paging":{}}`)
		case r.URL.Query().Get("ids") != "":
			fmt.Fprint(w, `{"a1":{"creative":{"thumbnail_url":"https://cdn.example.com/a1.jpg"}},"a2":{"creative":{"thumbnail_url":""}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	adapter := NewFacebookAdapter(deps, FacebookConfig{AppID: "app", AppSecret: "secret"})
	adapter.baseURL = server.URL
	adapter.deps.HTTPClient = server.Client()

	orgID := seedIntegration(t, deps, syncdomain.PlatformFacebookAds, "123456", testCreds{accessToken: "fb_token"})

	outcome, err := adapter.Sync(ctx, orgID)
	require.NoError(t, err)
	assert.True(t, outcome.IsSuccess())
	assert.Equal(t, 2, outcome.Synced)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	withPurchase, err := deps.Metrics.FindByKey(ctx, orgID, syncdomain.PlatformFacebookAds, "c1", "a1", day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), withPurchase.Conversions)
	assert.True(t, withPurchase.Revenue.Equal(decimal.NewFromFloat(450.00)))
	assert.Equal(t, int64(1000), withPurchase.Impressions)
	assert.Equal(t, "https://cdn.example.com/a1.jpg", withPurchase.ThumbnailURL)

	noActions, err := deps.Metrics.FindByKey(ctx, orgID, syncdomain.PlatformFacebookAds, "c1", "a2", day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), noActions.Conversions)
	assert.True(t, noActions.Revenue.IsZero())

	requireLedger(t, deps, orgID, syncdomain.PlatformFacebookAds, syncdomain.SyncLogSuccess, 2)
}

func TestFacebookAdapter_Sync_ThumbnailFailureSwallowed(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/insights") {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":[
				{"campaign_id":"c1","ad_id":"a1","date_start":"2026-03-10","impressions":"100","spend":"5.00"}
			],"paging":{}}`)
			return
		}
		// Thumbnail batch blows up; the sync must still succeed.
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewFacebookAdapter(deps, FacebookConfig{AppID: "app", AppSecret: "secret"})
	adapter.baseURL = server.URL
	adapter.deps.HTTPClient = server.Client()

	orgID := seedIntegration(t, deps, syncdomain.PlatformFacebookAds, "123456", testCreds{accessToken: "fb_token"})

	outcome, err := adapter.Sync(ctx, orgID)
	require.NoError(t, err)
	assert.True(t, outcome.IsSuccess())
	assert.Equal(t, 1, outcome.Synced)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	metric, err := deps.Metrics.FindByKey(ctx, orgID, syncdomain.PlatformFacebookAds, "c1", "a1", day)
	require.NoError(t, err)
	assert.Empty(t, metric.ThumbnailURL)
}

func TestFacebookAdapter_Sync_TokenRefresh(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	var sawRefresh, insightsToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/oauth/access_token"):
			sawRefresh = r.URL.Query().Get("fb_exchange_token")
			fmt.Fprint(w, `{"access_token":"fb_fresh_token","expires_in":5184000}`)
		case strings.Contains(r.URL.Path, "/insights"):
			insightsToken = r.URL.Query().Get("access_token")
			fmt.Fprint(w, `{"data":[],"paging":{}}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
	defer server.Close()

	adapter := NewFacebookAdapter(deps, FacebookConfig{AppID: "app", AppSecret: "secret"})
	adapter.baseURL = server.URL
	adapter.deps.HTTPClient = server.Client()

	t.Run("expiring token is exchanged and persisted", func(t *testing.T) {
		soon := time.Now().UTC().Add(6 * time.Hour)
		orgID := seedIntegration(t, deps, syncdomain.PlatformFacebookAds, "123456", testCreds{
			accessToken: "fb_stale_token",
			expiresAt:   &soon,
		})

		outcome, err := adapter.Sync(ctx, orgID)
		require.NoError(t, err)
		assert.True(t, outcome.IsSuccess())
		assert.Equal(t, "fb_stale_token", sawRefresh)
		assert.Equal(t, "fb_fresh_token", insightsToken)

		integ, err := deps.Integrations.FindByOrgAndPlatform(ctx, orgID, syncdomain.PlatformFacebookAds)
		require.NoError(t, err)
		stored, err := deps.Vault.DecryptField(integ.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "fb_fresh_token", stored)
		require.NotNil(t, integ.TokenExpiresAt)
		assert.True(t, integ.TokenExpiresAt.After(time.Now().UTC().Add(24*time.Hour)))
	})

	t.Run("distant expiry skips the exchange", func(t *testing.T) {
		sawRefresh = ""
		far := time.Now().UTC().Add(30 * 24 * time.Hour)
		orgID := seedIntegration(t, deps, syncdomain.PlatformFacebookAds, "654321", testCreds{
			accessToken: "fb_long_lived",
			expiresAt:   &far,
		})

		outcome, err := adapter.Sync(ctx, orgID)
		require.NoError(t, err)
		assert.True(t, outcome.IsSuccess())
		assert.Empty(t, sawRefresh)
		assert.Equal(t, "fb_long_lived", insightsToken)
	})
}

func TestFacebookAdapter_Sync_RefreshFailureUsesStaleToken(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	var insightsToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/oauth/access_token") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if strings.Contains(r.URL.Path, "/insights") {
			insightsToken = r.URL.Query().Get("access_token")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":[],"paging":{}}`)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	adapter := NewFacebookAdapter(deps, FacebookConfig{AppID: "app", AppSecret: "secret"})
	adapter.baseURL = server.URL
	adapter.deps.HTTPClient = server.Client()

	soon := time.Now().UTC().Add(time.Hour)
	orgID := seedIntegration(t, deps, syncdomain.PlatformFacebookAds, "123456", testCreds{
		accessToken: "fb_stale_token",
		expiresAt:   &soon,
	})

	// Refresh endpoint is down; the stale token is tried anyway.
	outcome, err := adapter.Sync(ctx, orgID)
	require.NoError(t, err)
	assert.True(t, outcome.IsSuccess())
	assert.Equal(t, "fb_stale_token", insightsToken)
}
