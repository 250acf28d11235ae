package platforms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

const reportanaAPIBaseURL = "https://api.reportana.com/2022-05"

// ReportanaAdapter pulls abandoned/recovered checkout events from the
// Reportana API. Auth is basic with the stored API key and secret; the
// events list comes back as a single bulk page.
type ReportanaAdapter struct {
	base

	baseURL string
}

// NewReportanaAdapter creates a new ReportanaAdapter
func NewReportanaAdapter(deps Deps) *ReportanaAdapter {
	return &ReportanaAdapter{base: newBase(deps, syncdomain.PlatformReportana)}
}

// PlatformCode returns the platform code this adapter handles
func (a *ReportanaAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformReportana
}

// Sync pulls the organization's checkout events
func (a *ReportanaAdapter) Sync(ctx context.Context, orgID uuid.UUID) (syncdomain.SyncOutcome, error) {
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
	if apiKey == "" || apiSecret == "" {
		return a.notConnected()
	}

	return a.execute(ctx, integ, func(ctx context.Context) (int, error) {
		return a.fetchEvents(ctx, integ, apiKey, apiSecret)
	})
}

type reportanaEvent struct {
	Event       string `json:"event"`
	ReferenceID string `json:"reference_id"`
	Customer    struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
	Value     json.Number `json:"value"`
	Currency  string      `json:"currency"`
	CreatedAt string      `json:"created_at"`
}

type reportanaEventsResponse struct {
	Data []json.RawMessage `json:"data"`
}

func (a *ReportanaAdapter) fetchEvents(ctx context.Context, integ *syncdomain.Integration, apiKey, apiSecret string) (int, error) {
	origin := a.baseURL
	if origin == "" {
		origin = reportanaAPIBaseURL
	}

	basic := base64.StdEncoding.EncodeToString([]byte(apiKey + ":" + apiSecret))
	headers := map[string]string{"Authorization": "Basic " + basic}

	body, _, err := a.getJSON(ctx, origin+"/events", headers)
	if err != nil {
		return 0, err
	}

	var resp reportanaEventsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}

	synced := 0
	for _, raw := range resp.Data {
		event, err := NormalizeReportanaEvent(integ.OrganizationID, raw)
		if err != nil {
			return synced, err
		}
		if err := a.deps.Events.Upsert(ctx, event); err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}

// NormalizeReportanaEvent converts one raw Reportana event payload into
// the shared event schema, shared by the pull adapter and the webhook
// ingestor.
func NormalizeReportanaEvent(orgID uuid.UUID, raw json.RawMessage) (*syncdomain.ReportanaEvent, error) {
	var src reportanaEvent
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}
	if src.Event == "" || src.ReferenceID == "" {
		return nil, fmt.Errorf("%w: event without type or reference", syncdomain.ErrPlatformInvalidResponse)
	}

	occurredAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, src.CreatedAt); err == nil {
		occurredAt = t.UTC()
	}

	currency := src.Currency
	if currency == "" {
		currency = "BRL"
	}

	return &syncdomain.ReportanaEvent{
		OrganizationID: orgID,
		EventType:      src.Event,
		ReferenceID:    src.ReferenceID,
		CustomerName:   src.Customer.Name,
		CustomerEmail:  src.Customer.Email,
		CustomerPhone:  src.Customer.Phone,
		Value:          src.Value.String(),
		Currency:       currency,
		OccurredAt:     occurredAt,
		RawPayload:     string(raw),
	}, nil
}

var _ syncdomain.PlatformAdapter = (*ReportanaAdapter)(nil)
