package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

func TestCartpandaAdapter_Sync(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer cp_key", r.Header.Get("Authorization"))
		require.Contains(t, r.URL.Path, "/my-shop/orders")

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		if page == 1 {
			fmt.Fprint(w, `{"orders":{"data":[
				{"id":501,"payment_status":"paid","total_price":150.00,"currency":"BRL","created_at":"2026-03-05 14:00:00","email":"p@example.com","customer":{"full_name":"Paula Reis"},"line_items":[{},{},{}]}
			],"current_page":1,"last_page":2}}`)
			return
		}
		fmt.Fprint(w, `{"orders":{"data":[
			{"id":502,"payment_status":"waiting_payment","total_price":80.00,"currency":"BRL","created_at":"2026-03-06 09:30:00","email":"q@example.com","customer":{"full_name":"Quito Alves"},"line_items":[{}]}
		],"current_page":2,"last_page":2}}`)
	}))
	defer server.Close()

	adapter := NewCartpandaAdapter(deps)
	adapter.baseURL = server.URL
	adapter.deps.HTTPClient = server.Client()

	orgID := seedIntegration(t, deps, syncdomain.PlatformCartpanda, "my-shop", testCreds{apiKey: "cp_key"})

	outcome, err := adapter.Sync(ctx, orgID)
	require.NoError(t, err)
	assert.True(t, outcome.IsSuccess())
	assert.Equal(t, 2, outcome.Synced)

	order, err := deps.Orders.FindByExternalID(ctx, orgID, syncdomain.PlatformCartpanda, "501")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.OrderStatusPaid, order.Status)
	assert.Equal(t, "Paula Reis", order.CustomerName)
	assert.Equal(t, 3, order.ItemCount)

	pending, err := deps.Orders.FindByExternalID(ctx, orgID, syncdomain.PlatformCartpanda, "502")
	require.NoError(t, err)
	assert.Equal(t, syncdomain.OrderStatusPending, pending.Status)

	requireLedger(t, deps, orgID, syncdomain.PlatformCartpanda, syncdomain.SyncLogSuccess, 2)
}

func TestCartpandaAdapter_Sync_RequiresAPIKey(t *testing.T) {
	deps := newTestDeps(t)
	adapter := NewCartpandaAdapter(deps)

	orgID := seedIntegration(t, deps, syncdomain.PlatformCartpanda, "my-shop", testCreds{accessToken: "wrong_kind"})

	outcome, err := adapter.Sync(context.Background(), orgID)
	require.NoError(t, err)
	assert.True(t, outcome.IsNotConnected())
}
