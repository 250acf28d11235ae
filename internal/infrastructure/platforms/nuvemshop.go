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

const (
	nuvemshopAPIBaseURL = "https://api.nuvemshop.com.br/v1"
	nuvemshopPageSize   = 50
)

// NuvemshopAdapter pulls orders from the Nuvemshop (Tiendanube) API.
// Pagination is page/per_page based; the last page is detected by a short
// or empty result set.
type NuvemshopAdapter struct {
	base

	baseURL string
}

// NewNuvemshopAdapter creates a new NuvemshopAdapter
func NewNuvemshopAdapter(deps Deps) *NuvemshopAdapter {
	return &NuvemshopAdapter{base: newBase(deps, syncdomain.PlatformNuvemshop)}
}

// PlatformCode returns the platform code this adapter handles
func (a *NuvemshopAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformNuvemshop
}

// Sync pulls all orders for the organization's Nuvemshop store
func (a *NuvemshopAdapter) Sync(ctx context.Context, orgID uuid.UUID) (syncdomain.SyncOutcome, error) {
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

type nuvemshopOrder struct {
	ID            int64             `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	Status        string            `json:"status"`
	Total         string            `json:"total"`
	Currency      string            `json:"currency"`
	CreatedAt     string            `json:"created_at"`
	ContactName   string            `json:"contact_name"`
	ContactEmail  string            `json:"contact_email"`
	Products      []json.RawMessage `json:"products"`
}

func (a *NuvemshopAdapter) fetchOrders(ctx context.Context, integ *syncdomain.Integration, token string) (int, error) {
	origin := a.baseURL
	if origin == "" {
		origin = nuvemshopAPIBaseURL
	}
	headers := map[string]string{
		"Authentication": "bearer " + token,
		"User-Agent":     "shopmetrics-backend",
	}

	synced := 0
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/%s/orders?page=%d&per_page=%d", origin, integ.ExternalAccountID, page, nuvemshopPageSize)
		body, _, err := a.getJSON(ctx, url, headers)
		if err != nil {
			return synced, err
		}

		var raws []json.RawMessage
		if err := json.Unmarshal(body, &raws); err != nil {
			return synced, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
		}
		if len(raws) == 0 {
			break
		}

		for _, raw := range raws {
			order, err := NormalizeNuvemshopOrder(integ.OrganizationID, raw)
			if err != nil {
				return synced, err
			}
			if err := a.deps.Orders.Upsert(ctx, order); err != nil {
				return synced, err
			}
			synced++
		}

		if len(raws) < nuvemshopPageSize {
			break
		}
	}

	return synced, nil
}

// NormalizeNuvemshopOrder converts one raw Nuvemshop order payload into
// the shared order schema, shared by the pull adapter and the webhook
// ingestor.
func NormalizeNuvemshopOrder(orgID uuid.UUID, raw json.RawMessage) (*syncdomain.Order, error) {
	var src nuvemshopOrder
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}
	if src.ID == 0 {
		return nil, fmt.Errorf("%w: order without id", syncdomain.ErrPlatformInvalidResponse)
	}

	total, err := decimal.NewFromString(src.Total)
	if err != nil {
		total = decimal.Zero
	}

	orderDate := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, src.CreatedAt); err == nil {
		orderDate = t.UTC()
	}

	// payment_status carries the money-side state; the order-level status
	// only distinguishes open/closed/cancelled.
	status := src.PaymentStatus
	if src.Status == "cancelled" {
		status = "cancelled"
	}

	return &syncdomain.Order{
		OrganizationID:  orgID,
		Platform:        syncdomain.PlatformNuvemshop,
		ExternalOrderID: strconv.FormatInt(src.ID, 10),
		Status:          mapNuvemshopStatus(status),
		CustomerName:    strings.TrimSpace(src.ContactName),
		CustomerEmail:   src.ContactEmail,
		TotalAmount:     total,
		Currency:        src.Currency,
		ItemCount:       len(src.Products),
		OrderDate:       orderDate,
		RawPayload:      string(raw),
	}, nil
}

// mapNuvemshopStatus maps Nuvemshop payment statuses into the canonical
// vocabulary. Unrecognized statuses pass through verbatim.
func mapNuvemshopStatus(status string) syncdomain.OrderStatus {
	switch status {
	case "paid":
		return syncdomain.OrderStatusPaid
	case "pending", "authorized":
		return syncdomain.OrderStatusPending
	case "refunded", "partially_refunded":
		return syncdomain.OrderStatusRefunded
	case "cancelled", "voided", "abandoned":
		return syncdomain.OrderStatusCancelled
	default:
		return syncdomain.OrderStatus(status)
	}
}

var _ syncdomain.PlatformAdapter = (*NuvemshopAdapter)(nil)
