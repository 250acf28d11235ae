package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
)

const (
	facebookGraphBaseURL = "https://graph.facebook.com"
	facebookAPIVersion   = "v19.0"

	// facebookThumbnailBatchSize caps ids per creative-thumbnail request
	facebookThumbnailBatchSize = 50

	// facebookRefreshWindow triggers a proactive long-lived token exchange
	facebookRefreshWindow = 24 * time.Hour
)

// purchase action tags scanned out of the heterogeneous actions arrays
const (
	fbActionPurchase      = "purchase"
	fbActionPixelPurchase = "offsite_conversion.fb_pixel_purchase"
)

// FacebookConfig holds the OAuth app credentials and metric window for the
// Facebook Ads adapter.
type FacebookConfig struct {
	AppID     string
	AppSecret string
	Lookback  time.Duration
}

// FacebookAdapter pulls per-ad daily insights from the Facebook Marketing
// API. It refreshes soon-to-expire tokens best-effort before fetching, and
// merges creative thumbnails in a second batched pass.
type FacebookAdapter struct {
	base

	config  FacebookConfig
	baseURL string
}

// NewFacebookAdapter creates a new FacebookAdapter
func NewFacebookAdapter(deps Deps, config FacebookConfig) *FacebookAdapter {
	if config.Lookback == 0 {
		config.Lookback = 30 * 24 * time.Hour
	}
	return &FacebookAdapter{
		base:   newBase(deps, syncdomain.PlatformFacebookAds),
		config: config,
	}
}

// PlatformCode returns the platform code this adapter handles
func (a *FacebookAdapter) PlatformCode() syncdomain.PlatformCode {
	return syncdomain.PlatformFacebookAds
}

// Sync pulls the rolling insight window for the organization's ad account
func (a *FacebookAdapter) Sync(ctx context.Context, orgID uuid.UUID) (syncdomain.SyncOutcome, error) {
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

	// Proactive long-lived token exchange when the stored token expires
	// within the refresh window. Best-effort: a failed exchange is logged
	// and the stale token is tried anyway.
	if integ.TokenExpiresWithin(facebookRefreshWindow) {
		if fresh, err := a.refreshToken(ctx, integ, token); err != nil {
			a.deps.Logger.Warn("facebook token refresh failed, trying stored token",
				zap.String("organization_id", orgID.String()),
				zap.Error(err))
		} else {
			token = fresh
		}
	}

	return a.execute(ctx, integ, func(ctx context.Context) (int, error) {
		return a.fetchInsights(ctx, integ, token)
	})
}

// ---------------------------------------------------------------------------
// Token refresh
// ---------------------------------------------------------------------------

type facebookTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (a *FacebookAdapter) refreshToken(ctx context.Context, integ *syncdomain.Integration, token string) (string, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", a.config.AppID)
	q.Set("client_secret", a.config.AppSecret)
	q.Set("fb_exchange_token", token)

	body, _, err := a.getJSON(ctx, fmt.Sprintf("%s/%s/oauth/access_token?%s", a.origin(), facebookAPIVersion, q.Encode()), nil)
	if err != nil {
		return "", err
	}

	var resp facebookTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", syncdomain.ErrPlatformInvalidResponse)
	}

	encrypted, err := a.deps.Vault.EncryptField(resp.AccessToken)
	if err != nil {
		return "", err
	}
	var expiresAt *time.Time
	if resp.ExpiresIn > 0 {
		t := time.Now().UTC().Add(time.Duration(resp.ExpiresIn) * time.Second)
		expiresAt = &t
	}
	if err := a.deps.Integrations.UpdateCredentials(ctx, integ.ID, encrypted, integ.RefreshToken, expiresAt); err != nil {
		return "", err
	}

	return resp.AccessToken, nil
}

// ---------------------------------------------------------------------------
// Insights
// ---------------------------------------------------------------------------

type facebookAction struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

type facebookInsight struct {
	CampaignID   string           `json:"campaign_id"`
	CampaignName string           `json:"campaign_name"`
	AdsetID      string           `json:"adset_id"`
	AdsetName    string           `json:"adset_name"`
	AdID         string           `json:"ad_id"`
	AdName       string           `json:"ad_name"`
	DateStart    string           `json:"date_start"`
	Impressions  string           `json:"impressions"`
	Reach        string           `json:"reach"`
	Clicks       string           `json:"clicks"`
	Spend        string           `json:"spend"`
	Actions      []facebookAction `json:"actions"`
	ActionValues []facebookAction `json:"action_values"`
}

type facebookInsightsResponse struct {
	Data   []json.RawMessage `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

func (a *FacebookAdapter) fetchInsights(ctx context.Context, integ *syncdomain.Integration, token string) (int, error) {
	until := time.Now().UTC()
	since := until.Add(-a.config.Lookback)

	q := url.Values{}
	q.Set("level", "ad")
	q.Set("time_increment", "1")
	q.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`,
		since.Format("2006-01-02"), until.Format("2006-01-02")))
	q.Set("fields", "campaign_id,campaign_name,adset_id,adset_name,ad_id,ad_name,date_start,impressions,reach,clicks,spend,actions,action_values")
	q.Set("limit", "500")
	q.Set("access_token", token)

	requestURL := fmt.Sprintf("%s/%s/act_%s/insights?%s", a.origin(), facebookAPIVersion, integ.ExternalAccountID, q.Encode())

	var metrics []*syncdomain.AdMetric
	for requestURL != "" {
		body, _, err := a.getJSON(ctx, requestURL, nil)
		if err != nil {
			return 0, err
		}

		var page facebookInsightsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
		}

		for _, raw := range page.Data {
			metric, err := a.normalizeInsight(integ.OrganizationID, raw)
			if err != nil {
				return 0, err
			}
			metrics = append(metrics, metric)
		}

		requestURL = page.Paging.Next
	}

	a.mergeThumbnails(ctx, token, metrics)

	synced := 0
	for _, metric := range metrics {
		if err := a.deps.Metrics.Upsert(ctx, metric); err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}

func (a *FacebookAdapter) normalizeInsight(orgID uuid.UUID, raw json.RawMessage) (*syncdomain.AdMetric, error) {
	var src facebookInsight
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrPlatformInvalidResponse, err)
	}
	if src.CampaignID == "" {
		return nil, fmt.Errorf("%w: insight without campaign id", syncdomain.ErrPlatformInvalidResponse)
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if t, err := time.Parse("2006-01-02", src.DateStart); err == nil {
		date = t.UTC()
	}

	spend, err := decimal.NewFromString(src.Spend)
	if err != nil {
		spend = decimal.Zero
	}

	conversions := extractActionCount(src.Actions)
	revenue := extractActionValue(src.ActionValues)

	return &syncdomain.AdMetric{
		OrganizationID:   orgID,
		Platform:         syncdomain.PlatformFacebookAds,
		CampaignID:       src.CampaignID,
		CampaignName:     src.CampaignName,
		AdSetID:          src.AdsetID,
		AdSetName:        src.AdsetName,
		AdID:             src.AdID,
		AdName:           src.AdName,
		Date:             date,
		Impressions:      parseCount(src.Impressions),
		Reach:            parseCount(src.Reach),
		Clicks:           parseCount(src.Clicks),
		Spend:            spend,
		Conversions:      conversions,
		Revenue:          revenue,
		Currency:         "BRL",
		AddToCart:        extractActionCountByType(src.Actions, "add_to_cart"),
		InitiateCheckout: extractActionCountByType(src.Actions, "initiate_checkout"),
		RawPayload:       string(raw),
	}, nil
}

// extractActionCount scans the actions array for one of the known purchase
// tags, defaulting to zero when absent.
func extractActionCount(actions []facebookAction) int64 {
	for _, action := range actions {
		if action.ActionType == fbActionPurchase || action.ActionType == fbActionPixelPurchase {
			return parseCount(action.Value)
		}
	}
	return 0
}

func extractActionValue(values []facebookAction) decimal.Decimal {
	for _, action := range values {
		if action.ActionType == fbActionPurchase || action.ActionType == fbActionPixelPurchase {
			if v, err := decimal.NewFromString(action.Value); err == nil {
				return v
			}
		}
	}
	return decimal.Zero
}

func extractActionCountByType(actions []facebookAction, actionType string) int64 {
	for _, action := range actions {
		if action.ActionType == actionType {
			return parseCount(action.Value)
		}
	}
	return 0
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ---------------------------------------------------------------------------
// Creative thumbnails
// ---------------------------------------------------------------------------

type facebookCreativeNode struct {
	Creative struct {
		ThumbnailURL string `json:"thumbnail_url"`
	} `json:"creative"`
}

// mergeThumbnails fetches creative thumbnails for the collected ad ids in
// batches and merges them into the metrics. A failed batch is swallowed;
// thumbnails are decoration, not sync data.
func (a *FacebookAdapter) mergeThumbnails(ctx context.Context, token string, metrics []*syncdomain.AdMetric) {
	seen := make(map[string]bool)
	var adIDs []string
	for _, m := range metrics {
		if m.AdID != "" && !seen[m.AdID] {
			seen[m.AdID] = true
			adIDs = append(adIDs, m.AdID)
		}
	}

	thumbnails := make(map[string]string)
	for start := 0; start < len(adIDs); start += facebookThumbnailBatchSize {
		end := start + facebookThumbnailBatchSize
		if end > len(adIDs) {
			end = len(adIDs)
		}
		batch := adIDs[start:end]

		q := url.Values{}
		q.Set("ids", strings.Join(batch, ","))
		q.Set("fields", "creative{thumbnail_url}")
		q.Set("access_token", token)

		body, _, err := a.getJSON(ctx, fmt.Sprintf("%s/%s/?%s", a.origin(), facebookAPIVersion, q.Encode()), nil)
		if err != nil {
			a.deps.Logger.Warn("facebook thumbnail batch failed",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			continue
		}

		var nodes map[string]facebookCreativeNode
		if err := json.Unmarshal(body, &nodes); err != nil {
			a.deps.Logger.Warn("facebook thumbnail batch unparseable", zap.Error(err))
			continue
		}
		for id, node := range nodes {
			if node.Creative.ThumbnailURL != "" {
				thumbnails[id] = node.Creative.ThumbnailURL
			}
		}
	}

	for _, m := range metrics {
		if thumb, ok := thumbnails[m.AdID]; ok {
			m.ThumbnailURL = thumb
		}
	}
}

func (a *FacebookAdapter) origin() string {
	if a.baseURL != "" {
		return a.baseURL
	}
	return facebookGraphBaseURL
}

var _ syncdomain.PlatformAdapter = (*FacebookAdapter)(nil)
