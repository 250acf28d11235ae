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

const yampiAPIBaseURL = "https://api.dooki.com.br/v2"

// YampiAdapter pulls orders from the Yampi API. Auth is a User-Token plus
// User-Secret-Key header pair; pagination follows the meta.pagination
// envelope.
type YampiAdapter struct {
	base

	baseURL string
}

// NewYampiAdapter creates a new YampiAdapter
func NewYampiAdapter(deps Deps) *YampiAdapter {
	return &YampiAdapter{base: newBase(deps, syncdomain.PlatformYampi)}
}

// PlatformCode returns the platform code this adapter handles
func (a *YampiAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformYampi
}

// Sync pulls all orders for the organization's Yampi store
func (a *YampiAdapter) Sync(ctx context.Context, orgID uuid.UUID) (syncdomain.SyncOutcome, error) {
	integ, ok, err := a.connected(ctx, orgID)
	if err != nil {
		return a.lookupFailed(err)
	}
	if !ok {
		return a.notConnected()
	}

	apiKey, keyErr := a.deps.Vault.DecryptField(integ.APIKey)
	apiSecret, secretErr := a.deps.Vault.DecryptField(integ.APISecret)
	if keyErr != nil {
		return a.credentialFault(integ, keyErr)
	}
	if secretErr != nil {
		return a.credentialFault(integ, secretErr)
	}
	if apiKey == "" || apiSecret == "" || integ.ExternalAccountID == "" {
		return a.notConnected()
	}

	return a.execute(ctx, integ, func(ctx context.Context) (int, error) {
		return a.fetchOrders(ctx, integ, apiKey, apiSecret)
	})
}

type yampiOrder struct {
	ID     int64 `json:"id"`
	Number int64 `json:"number"`
	Status struct {
		Data struct {
			Alias string `json:"alias"`
		} `json:"data"`
	} `json:"status"`
	ValueTotal json.Number `json:"value_total"`
	CreatedAt  struct {
		Date string `json:"date"`
	} `json:"created_at"`
	Customer struct {
		Data struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"data"`
	} `json:"customer"`
	Items struct {
		Data []json.RawMessage `json:"data"`
	} `json:"items"`
}

type yampiOrdersResponse struct {
	Data []json.RawMessage `json:"data"`
	Meta struct {
		Pagination struct {
			CurrentPage int `json:"current_page"`
			TotalPages  int `json:"total_pages"`
		} `json:"pagination"`
	} `json:"meta"`
}

func (a *YampiAdapter) fetchOrders(ctx context.Context, integ *syncdomain.Integration, apiKey, apiSecret string) (int, error) {
	origin := a.baseURL
	if origin == "" {
		origin = yampiAPIBaseURL
	}
	headers := map[string]string{
		"User-Token":      apiKey,
		"User-Secret-Key": apiSecret,
	}

	synced := 0
	for page := 1; ; {
		url := fmt.Sprintf("%s/%s/orders?include=items,customer&page=%d", origin, integ.ExternalAccountID, page)
		body, _, err := a.getJSON(ctx, url, headers)
		if err != nil {
			return synced, err
		}

		var resp yampiOrdersResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return synced, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
		}

		for _, raw := range resp.Data {
			order, err := a.normalizeOrder(integ.OrganizationID, raw)
			if err != nil {
				return synced, err
			}
			if err := a.deps.Orders.Upsert(ctx, order); err != nil {
				return synced, err
			}
			synced++
		}

		if resp.Meta.Pagination.CurrentPage >= resp.Meta.Pagination.TotalPages || len(resp.Data) == 0 {
			break
		}
		page = resp.Meta.Pagination.CurrentPage + 1
	}

	return synced, nil
}

func (a *YampiAdapter) normalizeOrder(orgID uuid.UUID, raw json.RawMessage) (*syncdomain.Order, error) {
	var src yampiOrder
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}
	if src.ID == 0 {
		return nil, fmt.Errorf("%w: order without id", syncdomain.ErrPlatformInvalidResponse)
	}

	total, err := decimal.NewFromString(src.ValueTotal.String())
	if err != nil {
		total = decimal.Zero
	}

	orderDate := time.Now().UTC()
	if t, err := time.Parse("2006-01-02 15:04:05.000000", src.CreatedAt.Date); err == nil {
		orderDate = t.UTC()
	} else if t, err := time.Parse("2006-01-02 15:04:05", src.CreatedAt.Date); err == nil {
		orderDate = t.UTC()
	}

	return &syncdomain.Order{
		OrganizationID:  orgID,
		Platform:        syncdomain.PlatformYampi,
		ExternalOrderID: strconv.FormatInt(src.ID, 10),
		Status:          mapYampiStatus(src.Status.Data.Alias),
		CustomerName:    strings.TrimSpace(src.Customer.Data.Name),
		CustomerEmail:   src.Customer.Data.Email,
		TotalAmount:     total,
		Currency:        "BRL",
		ItemCount:       len(src.Items.Data),
		OrderDate:       orderDate,
		RawPayload:      string(raw),
	}, nil
}

// mapYampiStatus maps Yampi status aliases into the canonical vocabulary.
// Unrecognized statuses pass through verbatim.
func mapYampiStatus(status string) syncdomain.OrderStatus {
	switch status {
	case "paid", "authorized":
		return syncdomain.OrderStatusPaid
	case "waiting_payment", "created", "on_hold":
		return syncdomain.OrderStatusPending
	case "refunded", "chargeback":
		return syncdomain.OrderStatusRefunded
	case "cancelled":
		return syncdomain.OrderStatusCancelled
	case "shipped", "invoiced":
		return syncdomain.OrderStatusShipped
	case "delivered":
		return syncdomain.OrderStatusDelivered
	default:
		return syncdomain.OrderStatus(status)
	}
}

var _ syncdomain.PlatformAdapter = (*YampiAdapter)(nil)
