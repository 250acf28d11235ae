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

const cartpandaAPIBaseURL = "https://accounts.cartpanda.com/api"

// CartpandaAdapter pulls orders from the Cartpanda API. Pagination follows
// the API's own current_page/last_page envelope.
type CartpandaAdapter struct {
	base

	baseURL string
}

// NewCartpandaAdapter creates a new CartpandaAdapter
func NewCartpandaAdapter(deps Deps) *CartpandaAdapter {
	return &CartpandaAdapter{base: newBase(deps, syncdomain.PlatformCartpanda)}
}

// PlatformCode returns the platform code this adapter handles
func (a *CartpandaAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformCartpanda
}

// Sync pulls all orders for the organization's Cartpanda shop
func (a *CartpandaAdapter) Sync(ctx context.Context, orgID uuid.UUID) (syncdomain.SyncOutcome, error) {
	integ, ok, err := a.connected(ctx, orgID)
	if err != nil {
		return a.lookupFailed(err)
	}
	if !ok {
		return a.notConnected()
	}

	apiKey, err := a.deps.Vault.DecryptField(integ.APIKey)
	if err != nil {
		return a.credentialFault(integ, err)
	}
	if apiKey == "" || integ.ExternalAccountID == "" {
		return a.notConnected()
	}

	return a.execute(ctx, integ, func(ctx context.Context) (int, error) {
		return a.fetchOrders(ctx, integ, apiKey)
	})
}

type cartpandaOrder struct {
	ID            int64       `json:"id"`
	PaymentStatus string      `json:"payment_status"`
	TotalPrice    json.Number `json:"total_price"`
	Currency      string      `json:"currency"`
	CreatedAt     string      `json:"created_at"`
	Email         string      `json:"email"`
	Customer      *struct {
		FullName string `json:"full_name"`
	} `json:"customer"`
	LineItems []json.RawMessage `json:"line_items"`
}

type cartpandaOrdersResponse struct {
	Orders struct {
		Data        []json.RawMessage `json:"data"`
		CurrentPage int               `json:"current_page"`
		LastPage    int               `json:"last_page"`
	} `json:"orders"`
}

func (a *CartpandaAdapter) fetchOrders(ctx context.Context, integ *syncdomain.Integration, apiKey string) (int, error) {
	origin := a.baseURL
	if origin == "" {
		origin = cartpandaAPIBaseURL
	}
	headers := map[string]string{"Authorization": "Bearer " + apiKey}

	synced := 0
	for page := 1; ; {
		url := fmt.Sprintf("%s/%s/orders?page=%d", origin, integ.ExternalAccountID, page)
		body, _, err := a.getJSON(ctx, url, headers)
		if err != nil {
			return synced, err
		}

		var resp cartpandaOrdersResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return synced, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
		}

		for _, raw := range resp.Orders.Data {
			order, err := a.normalizeOrder(integ.OrganizationID, raw)
			if err != nil {
				return synced, err
			}
			if err := a.deps.Orders.Upsert(ctx, order); err != nil {
				return synced, err
			}
			synced++
		}

		if resp.Orders.CurrentPage >= resp.Orders.LastPage || len(resp.Orders.Data) == 0 {
			break
		}
		page = resp.Orders.CurrentPage + 1
	}

	return synced, nil
}

func (a *CartpandaAdapter) normalizeOrder(orgID uuid.UUID, raw json.RawMessage) (*syncdomain.Order, error) {
	var src cartpandaOrder
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}
	if src.ID == 0 {
		return nil, fmt.Errorf("%w: order without id", syncdomain.ErrPlatformInvalidResponse)
	}

	total, err := decimal.NewFromString(src.TotalPrice.String())
	if err != nil {
		total = decimal.Zero
	}

	orderDate := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, src.CreatedAt); err == nil {
		orderDate = t.UTC()
	} else if t, err := time.Parse("2006-01-02 15:04:05", src.CreatedAt); err == nil {
		orderDate = t.UTC()
	}

	var customerName string
	if src.Customer != nil {
		customerName = strings.TrimSpace(src.Customer.FullName)
	}

	currency := src.Currency
	if currency == "" {
		currency = "BRL"
	}

	return &syncdomain.Order{
		OrganizationID:  orgID,
		Platform:        syncdomain.PlatformCartpanda,
		ExternalOrderID: strconv.FormatInt(src.ID, 10),
		Status:          mapCartpandaStatus(src.PaymentStatus),
		CustomerName:    customerName,
		CustomerEmail:   src.Email,
		TotalAmount:     total,
		Currency:        currency,
		ItemCount:       len(src.LineItems),
		OrderDate:       orderDate,
		RawPayload:      string(raw),
	}, nil
}

// mapCartpandaStatus maps Cartpanda payment statuses into the canonical
// vocabulary. Unrecognized statuses pass through verbatim.
func mapCartpandaStatus(status string) syncdomain.OrderStatus {
	switch status {
	case "paid", "approved":
		return syncdomain.OrderStatusPaid
	case "pending", "waiting_payment", "in_analysis":
		return syncdomain.OrderStatusPending
	case "refunded", "charged_back":
		return syncdomain.OrderStatusRefunded
	case "canceled", "cancelled", "expired":
		return syncdomain.OrderStatusCancelled
	case "delivered":
		return syncdomain.OrderStatusDelivered
	default:
		return syncdomain.OrderStatus(status)
	}
}

var _ syncdomain.PlatformAdapter = (*CartpandaAdapter)(nil)
