package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

const (
	googleAdsAPIBaseURL = "https://googleads.googleapis.com/v16"
	googleTokenURL      = "https://oauth2.googleapis.com/token"

	microsPerUnit = 1_000_000
)

// GoogleConfig holds the OAuth app credentials for the Google Ads adapter.
type GoogleConfig struct {
	ClientID       string
	ClientSecret   string
	DeveloperToken string
	Lookback       time.Duration
}

// GoogleAdsAdapter pulls campaign-level daily metrics from the Google Ads
// API. There is no stored access-token lifecycle: the stored refresh token
// is exchanged for a fresh access token on every run, and the result comes
// back as a single bulk searchStream response.
type GoogleAdsAdapter struct {
	base

	config   GoogleConfig
	baseURL  string
	tokenURL string
}

// NewGoogleAdsAdapter creates a new GoogleAdsAdapter
func NewGoogleAdsAdapter(deps Deps, config GoogleConfig) *GoogleAdsAdapter {
	if config.Lookback == 0 {
		config.Lookback = 30 * 24 * time.Hour
	}
	return &GoogleAdsAdapter{
		base:   newBase(deps, syncdomain.PlatformGoogleAds),
		config: config,
	}
}

// PlatformCode returns the platform code this adapter handles
func (a *GoogleAdsAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformGoogleAds
}

// Sync pulls the rolling daily campaign metrics for the organization
func (a *GoogleAdsAdapter) Sync(ctx context.Context, orgID uuid.UUID) (syncdomain.SyncOutcome, error) {
	integ, ok, err := a.connected(ctx, orgID)
	if err != nil {
		return a.lookupFailed(err)
	}
	if !ok {
		return a.notConnected()
	}

	refreshToken, err := a.deps.Vault.DecryptField(integ.RefreshToken)
	if err != nil {
		return a.credentialFault(integ, err)
	}
	if refreshToken == "" || integ.ExternalAccountID == "" {
		return a.notConnected()
	}

	return a.execute(ctx, integ, func(ctx context.Context) (int, error) {
		accessToken, err := a.exchangeRefreshToken(ctx, refreshToken)
		if err != nil {
			return 0, err
		}
		return a.fetchMetrics(ctx, integ, accessToken)
	})
}

// ---------------------------------------------------------------------------
// Token exchange
// ---------------------------------------------------------------------------

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (a *GoogleAdsAdapter) exchangeRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	endpoint := a.tokenURL
	if endpoint == "" {
		endpoint = googleTokenURL
	}

	form := url.Values{}
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")

	body, err := a.postForm(ctx, endpoint, form)
	if err != nil {
		return "", err
	}

	var resp googleTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", syncdomain.ErrPlatformAuthFailed)
	}
	return resp.AccessToken, nil
}

// ---------------------------------------------------------------------------
// searchStream metrics
// ---------------------------------------------------------------------------

// int64 metrics arrive as quoted strings on the wire; doubles arrive plain.
type googleAdsRow struct {
	Campaign struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"campaign"`
	Metrics struct {
		Impressions      string  `json:"impressions"`
		Clicks           string  `json:"clicks"`
		CostMicros       string  `json:"costMicros"`
		Conversions      float64 `json:"conversions"`
		ConversionsValue float64 `json:"conversionsValue"`
	} `json:"metrics"`
	Segments struct {
		Date string `json:"date"`
	} `json:"segments"`
}

type googleAdsChunk struct {
	Results []json.RawMessage `json:"results"`
}

func (a *GoogleAdsAdapter) fetchMetrics(ctx context.Context, integ *syncdomain.Integration, accessToken string) (int, error) {
	origin := a.baseURL
	if origin == "" {
		origin = googleAdsAPIBaseURL
	}

	query := fmt.Sprintf(
		"SELECT campaign.id, campaign.name, metrics.impressions, metrics.clicks, metrics.cost_micros, metrics.conversions, metrics.conversions_value, segments.date FROM campaign WHERE segments.date DURING LAST_%d_DAYS",
		int(a.config.Lookback.Hours()/24))
	payload := map[string]string{"query": query}

	headers := map[string]string{
		"Authorization":   "Bearer " + accessToken,
		"developer-token": a.config.DeveloperToken,
	}
	endpoint := fmt.Sprintf("%s/customers/%s/googleAds:searchStream", origin, integ.ExternalAccountID)

	body, err := a.postJSON(ctx, endpoint, headers, payload)
	if err != nil {
		return 0, err
	}

	var chunks []googleAdsChunk
	if err := json.Unmarshal(body, &chunks); err != nil {
		return 0, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}

	synced := 0
	for _, chunk := range chunks {
		for _, raw := range chunk.Results {
			metric, err := a.normalizeRow(integ.OrganizationID, raw)
			if err != nil {
				return synced, err
			}
			if err := a.deps.Metrics.Upsert(ctx, metric); err != nil {
				return synced, err
			}
			synced++
		}
	}
	return synced, nil
}

func (a *GoogleAdsAdapter) normalizeRow(orgID uuid.UUID, raw json.RawMessage) (*syncdomain.AdMetric, error) {
	var src googleAdsRow
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}
	if src.Campaign.ID == "" {
		return nil, fmt.Errorf("%w: row without campaign id", syncdomain.ErrPlatformInvalidResponse)
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if t, err := time.Parse("2006-01-02", src.Segments.Date); err == nil {
		date = t.UTC()
	}

	spend := decimal.NewFromInt(parseCount(src.Metrics.CostMicros)).Div(decimal.NewFromInt(microsPerUnit))

	return &syncdomain.AdMetric{
		OrganizationID: orgID,
		Platform:       syncdomain.PlatformGoogleAds,
		CampaignID:     src.Campaign.ID,
		CampaignName:   src.Campaign.Name,
		// Campaign granularity: no ad dimension on this platform.
		AdID:        "",
		Date:        date,
		Impressions: parseCount(src.Metrics.Impressions),
		Clicks:      parseCount(src.Metrics.Clicks),
		Spend:       spend,
		Conversions: int64(src.Metrics.Conversions),
		Revenue:     decimal.NewFromFloat(src.Metrics.ConversionsValue),
		Currency:    "BRL",
		RawPayload:  string(raw),
	}, nil
}

var _ syncdomain.PlatformAdapter = (*GoogleAdsAdapter)(nil)
