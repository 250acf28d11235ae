package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

const shopifyAPIVersion = "2024-01"

// ShopifyAdapter pulls orders from the Shopify Admin REST API. Pagination is
// cursor-based through the Link response header (rel="next" with page_info).
type ShopifyAdapter struct {
	base

	// baseURL overrides the https://<shop-domain> origin, used by tests.
	baseURL string
}

// NewShopifyAdapter creates a new ShopifyAdapter
func NewShopifyAdapter(deps Deps) *ShopifyAdapter {
	return &ShopifyAdapter{base: newBase(deps, syncdomain.PlatformShopify)}
}

// PlatformCode returns the platform code this adapter handles
func (a *ShopifyAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformShopify
}

// Sync pulls all orders for the organization's Shopify store
func (a *ShopifyAdapter) Sync(ctx context.Context, orgID uuid.UUID) (syncdomain.SyncOutcome, error) {
	integ, ok, err := a.connected(ctx, orgID)
	if err != nil {
		return a.lookupFailed(err)
	}
	if !ok {
		return a.notConnected()
	}

	token, err := a.deps.Vault.DecryptField(integ.AccessToken)
	if err != nil {
		return a.credentialFault(integ, err)
	}
	if token == "" || integ.ExternalAccountID == "" {
		return a.notConnected()
	}

	return a.execute(ctx, integ, func(ctx context.Context) (int, error) {
		return a.fetchOrders(ctx, integ, token)
	})
}

type shopifyOrder struct {
	ID              int64  `json:"id"`
	Email           string `json:"email"`
	CreatedAt       string `json:"created_at"`
	TotalPrice      string `json:"total_price"`
	Currency        string `json:"currency"`
	FinancialStatus string `json:"financial_status"`
	Customer        *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"customer"`
	LineItems []json.RawMessage `json:"line_items"`
}

type shopifyOrdersResponse struct {
	Orders []json.RawMessage `json:"orders"`
}

func (a *ShopifyAdapter) fetchOrders(ctx context.Context, integ *syncdomain.Integration, token string) (int, error) {
	origin := a.baseURL
	if origin == "" {
		origin = "https://" + integ.ExternalAccountID
	}

	url := fmt.Sprintf("%s/admin/api/%s/orders.json?status=any&limit=250", origin, shopifyAPIVersion)
	headers := map[string]string{"X-Shopify-Access-Token": token}

	synced := 0
	// Drain every page the platform returns; the only page cap is the
	// absence of a rel="next" link.
	for url != "" {
		body, respHeaders, err := a.getJSON(ctx, url, headers)
		if err != nil {
			return synced, err
		}

		var page shopifyOrdersResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return synced, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
		}

		for _, raw := range page.Orders {
			order, err := NormalizeShopifyOrder(integ.OrganizationID, raw)
			if err != nil {
				return synced, err
			}
			if err := a.deps.Orders.Upsert(ctx, order); err != nil {
				return synced, err
			}
			synced++
		}

		url = shopifyNextPageURL(respHeaders.Get("Link"))
	}

	return synced, nil
}

// NormalizeShopifyOrder converts one raw Shopify order payload into the
// shared order schema. The pull adapter and the webhook ingestor share
// this path, so a record arriving over either channel lands identically.
func NormalizeShopifyOrder(orgID uuid.UUID, raw json.RawMessage) (*syncdomain.Order, error) {
	var src shopifyOrder
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}
	if src.ID == 0 {
		return nil, fmt.Errorf("%w: order without id", syncdomain.ErrPlatformInvalidResponse)
	}

	total, err := decimal.NewFromString(src.TotalPrice)
	if err != nil {
		total = decimal.Zero
	}

	orderDate := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, src.CreatedAt); err == nil {
		orderDate = t.UTC()
	}

	var customerName string
	if src.Customer != nil {
		customerName = strings.TrimSpace(src.Customer.FirstName + " " + src.Customer.LastName)
	}

	return &syncdomain.Order{
		OrganizationID:  orgID,
		Platform:        syncdomain.PlatformShopify,
		ExternalOrderID: strconv.FormatInt(src.ID, 10),
		Status:          mapShopifyStatus(src.FinancialStatus),
		CustomerName:    customerName,
		CustomerEmail:   src.Email,
		TotalAmount:     total,
		Currency:        src.Currency,
		ItemCount:       len(src.LineItems),
		OrderDate:       orderDate,
		RawPayload:      string(raw),
	}, nil
}

// shopifyNextPageURL extracts the rel="next" URL from a Link header,
// e.g. `<https://shop/admin/api/...&page_info=abc>; rel="next"`.
func shopifyNextPageURL(link string) string {
	if link == "" {
		return ""
	}
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// mapShopifyStatus maps Shopify financial statuses into the canonical
// vocabulary. Unrecognized statuses pass through verbatim.
func mapShopifyStatus(status string) syncdomain.OrderStatus {
	switch status {
	case "paid":
		return syncdomain.OrderStatusPaid
	case "pending", "authorized", "partially_paid":
		return syncdomain.OrderStatusPending
	case "refunded", "partially_refunded":
		return syncdomain.OrderStatusRefunded
	case "voided":
		return syncdomain.OrderStatusCancelled
	default:
		return syncdomain.OrderStatus(status)
	}
}

var _ syncdomain.PlatformAdapter = (*ShopifyAdapter)(nil)
