package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/infrastructure/config"
	"github.com/shopmetrics/backend/internal/infrastructure/crypto"
)

const (
	facebookOAuthBaseURL   = "https://graph.facebook.com/v19.0"
	googleOAuthTokenURL    = "https://oauth2.googleapis.com/token"
	nuvemshopOAuthTokenURL = "https://www.tiendanube.com/apps/authorize/token"

	oauthExchangeTimeout = 15 * time.Second
)

// OAuthHandler finishes the OAuth connect flows. Each callback exchanges
// the authorization code for tokens, persists them encrypted on the
// organization's integration and bounces the browser back to the UI.
type OAuthHandler struct {
	integrations syncdomain.IntegrationRepository
	vault        *crypto.Vault
	oauth        config.OAuthConfig
	appBaseURL   string
	uiBaseURL    string
	httpClient   *http.Client
	logger       *zap.Logger

	// Endpoint overrides for tests.
	facebookBaseURL   string
	googleTokenURL    string
	nuvemshopTokenURL string
	shopifyBaseURL    string
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(
	integrations syncdomain.IntegrationRepository,
	vault *crypto.Vault,
	oauth config.OAuthConfig,
	appBaseURL, uiBaseURL string,
	logger *zap.Logger,
) *OAuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthHandler{
		integrations: integrations,
		vault:        vault,
		oauth:        oauth,
		appBaseURL:   appBaseURL,
		uiBaseURL:    uiBaseURL,
		httpClient:   &http.Client{Timeout: oauthExchangeTimeout},
		logger:       logger,
	}
}

// parseState extracts the organization id from the state parameter. The
// connect flow encodes it as the segment before the first colon, with an
// optional nonce after it.
func parseState(state string) (uuid.UUID, error) {
	if state == "" {
		return uuid.Nil, errors.New("empty state")
	}
	leading := state
	if idx := strings.Index(state, ":"); idx >= 0 {
		leading = state[:idx]
	}
	return uuid.Parse(leading)
}

func (h *OAuthHandler) redirectConnected(c *gin.Context, platform syncdomain.PlatformCode) {
	c.Redirect(http.StatusFound,
		h.uiBaseURL+"/integrations?connected="+strings.ToLower(platform.String()))
}

func (h *OAuthHandler) redirectError(c *gin.Context, platform syncdomain.PlatformCode, reason string) {
	c.Redirect(http.StatusFound, h.uiBaseURL+"/integrations?error="+url.QueryEscape(reason)+
		"&platform="+strings.ToLower(platform.String()))
}

// Facebook handles the Facebook Ads OAuth callback. On top of the token
// exchange it discovers the user's ad accounts: the first becomes the
// integration's account id and the full list lands in metadata so the UI
// can offer a picker.
func (h *OAuthHandler) Facebook(c *gin.Context) {
	platform := syncdomain.PlatformFacebookAds
	orgID, code, ok := h.callbackParams(c, platform)
	if !ok {
		return
	}

	origin := h.facebookBaseURL
	if origin == "" {
		origin = facebookOAuthBaseURL
	}

	exchangeURL := fmt.Sprintf(
		"%s/oauth/access_token?client_id=%s&client_secret=%s&redirect_uri=%s&code=%s",
		origin,
		url.QueryEscape(h.oauth.FacebookAppID),
		url.QueryEscape(h.oauth.FacebookAppSecret),
		url.QueryEscape(h.appBaseURL+"/oauth/facebook/callback"),
		url.QueryEscape(code),
	)

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := h.getJSON(c.Request.Context(), exchangeURL, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		h.logger.Warn("facebook code exchange failed", zap.Error(err))
		h.redirectError(c, platform, "token_exchange_failed")
		return
	}

	var expiresAt *time.Time
	if tokenResp.ExpiresIn > 0 {
		t := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	accountID, metadata := h.discoverFacebookAdAccounts(c.Request.Context(), origin, tokenResp.AccessToken)

	err := h.persistTokens(c.Request.Context(), orgID, platform, persistedTokens{
		accessToken:       tokenResp.AccessToken,
		tokenExpiresAt:    expiresAt,
		externalAccountID: accountID,
		metadata:          metadata,
	})
	if err != nil {
		h.logger.Error("persisting facebook tokens failed", zap.Error(err))
		h.redirectError(c, platform, "persist_failed")
		return
	}
	h.redirectConnected(c, platform)
}

func (h *OAuthHandler) discoverFacebookAdAccounts(ctx context.Context, origin, token string) (string, string) {
	var resp struct {
		Data []struct {
			AccountID string `json:"account_id"`
			Name      string `json:"name"`
		} `json:"data"`
	}
	u := fmt.Sprintf("%s/me/adaccounts?fields=account_id,name&access_token=%s", origin, url.QueryEscape(token))
	if err := h.getJSON(ctx, u, &resp); err != nil || len(resp.Data) == 0 {
		// Account discovery is best effort; the UI can set the account later.
		return "", ""
	}
	metadata, err := json.Marshal(gin.H{"ad_accounts": resp.Data})
	if err != nil {
		return resp.Data[0].AccountID, ""
	}
	return resp.Data[0].AccountID, string(metadata)
}

// Google handles the Google Ads OAuth callback. The refresh token is the
// credential that matters; access tokens are re-derived on every sync.
func (h *OAuthHandler) Google(c *gin.Context) {
	platform := syncdomain.PlatformGoogleAds
	orgID, code, ok := h.callbackParams(c, platform)
	if !ok {
		return
	}

	endpoint := h.googleTokenURL
	if endpoint == "" {
		endpoint = googleOAuthTokenURL
	}

	form := url.Values{
		"code":          {code},
		"client_id":     {h.oauth.GoogleClientID},
		"client_secret": {h.oauth.GoogleClientSecret},
		"redirect_uri":  {h.appBaseURL + "/oauth/google/callback"},
		"grant_type":    {"authorization_code"},
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := h.postFormJSON(c.Request.Context(), endpoint, form, &tokenResp); err != nil || tokenResp.RefreshToken == "" {
		h.logger.Warn("google code exchange failed", zap.Error(err))
		h.redirectError(c, platform, "token_exchange_failed")
		return
	}

	err := h.persistTokens(c.Request.Context(), orgID, platform, persistedTokens{
		accessToken:  tokenResp.AccessToken,
		refreshToken: tokenResp.RefreshToken,
	})
	if err != nil {
		h.logger.Error("persisting google tokens failed", zap.Error(err))
		h.redirectError(c, platform, "persist_failed")
		return
	}
	h.redirectConnected(c, platform)
}

// Nuvemshop handles the Nuvemshop OAuth callback. The token response
// carries the store id, which becomes the integration's account id and
// the webhook resolution key.
func (h *OAuthHandler) Nuvemshop(c *gin.Context) {
	platform := syncdomain.PlatformNuvemshop
	orgID, code, ok := h.callbackParams(c, platform)
	if !ok {
		return
	}

	endpoint := h.nuvemshopTokenURL
	if endpoint == "" {
		endpoint = nuvemshopOAuthTokenURL
	}

	form := url.Values{
		"client_id":     {h.oauth.NuvemshopClientID},
		"client_secret": {h.oauth.NuvemshopClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
	}

	var tokenResp struct {
		AccessToken string      `json:"access_token"`
		UserID      json.Number `json:"user_id"`
	}
	if err := h.postFormJSON(c.Request.Context(), endpoint, form, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		h.logger.Warn("nuvemshop code exchange failed", zap.Error(err))
		h.redirectError(c, platform, "token_exchange_failed")
		return
	}

	err := h.persistTokens(c.Request.Context(), orgID, platform, persistedTokens{
		accessToken:       tokenResp.AccessToken,
		externalAccountID: tokenResp.UserID.String(),
	})
	if err != nil {
		h.logger.Error("persisting nuvemshop tokens failed", zap.Error(err))
		h.redirectError(c, platform, "persist_failed")
		return
	}
	h.redirectConnected(c, platform)
}

// Shopify handles the Shopify OAuth callback. The shop domain arrives as
// a query parameter and doubles as the token exchange host.
func (h *OAuthHandler) Shopify(c *gin.Context) {
	platform := syncdomain.PlatformShopify
	orgID, code, ok := h.callbackParams(c, platform)
	if !ok {
		return
	}

	shop := c.Query("shop")
	if shop == "" {
		h.redirectError(c, platform, "missing_shop")
		return
	}

	origin := h.shopifyBaseURL
	if origin == "" {
		origin = "https://" + shop
	}

	form := url.Values{
		"client_id":     {h.oauth.ShopifyAPIKey},
		"client_secret": {h.oauth.ShopifyAPISecret},
		"code":          {code},
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := h.postFormJSON(c.Request.Context(), origin+"/admin/oauth/access_token", form, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		h.logger.Warn("shopify code exchange failed", zap.Error(err))
		h.redirectError(c, platform, "token_exchange_failed")
		return
	}

	err := h.persistTokens(c.Request.Context(), orgID, platform, persistedTokens{
		accessToken:       tokenResp.AccessToken,
		externalAccountID: shop,
	})
	if err != nil {
		h.logger.Error("persisting shopify tokens failed", zap.Error(err))
		h.redirectError(c, platform, "persist_failed")
		return
	}
	h.redirectConnected(c, platform)
}

// callbackParams validates the shared callback query surface: a provider
// error aborts immediately, state must resolve to an organization and a
// code must be present.
func (h *OAuthHandler) callbackParams(c *gin.Context, platform syncdomain.PlatformCode) (uuid.UUID, string, bool) {
	if reason := c.Query("error"); reason != "" {
		h.redirectError(c, platform, reason)
		return uuid.Nil, "", false
	}

	orgID, err := parseState(c.Query("state"))
	if err != nil {
		h.redirectError(c, platform, "invalid_state")
		return uuid.Nil, "", false
	}

	code := c.Query("code")
	if code == "" {
		h.redirectError(c, platform, "missing_code")
		return uuid.Nil, "", false
	}
	return orgID, code, true
}

type persistedTokens struct {
	accessToken       string
	refreshToken      string
	tokenExpiresAt    *time.Time
	externalAccountID string
	metadata          string
}

// persistTokens encrypts and stores the exchanged credentials, creating
// the integration row on first connect and reconnecting an existing one
// otherwise.
func (h *OAuthHandler) persistTokens(ctx context.Context, orgID uuid.UUID, platform syncdomain.PlatformCode, tokens persistedTokens) error {
	integ, err := h.integrations.FindByOrgAndPlatform(ctx, orgID, platform)
	if errors.Is(err, syncdomain.ErrIntegrationNotFound) {
		integ = &syncdomain.Integration{
			ID:             uuid.New(),
			OrganizationID: orgID,
			Platform:       platform,
			SyncStatus:     syncdomain.SyncStateIdle,
		}
	} else if err != nil {
		return err
	}

	if tokens.accessToken != "" {
		encrypted, err := h.vault.EncryptField(tokens.accessToken)
		if err != nil {
			return err
		}
		integ.AccessToken = encrypted
	}
	if tokens.refreshToken != "" {
		encrypted, err := h.vault.EncryptField(tokens.refreshToken)
		if err != nil {
			return err
		}
		integ.RefreshToken = encrypted
	}
	if tokens.externalAccountID != "" {
		integ.ExternalAccountID = tokens.externalAccountID
	}
	if tokens.metadata != "" {
		integ.Metadata = tokens.metadata
	}
	integ.TokenExpiresAt = tokens.tokenExpiresAt
	integ.Status = syncdomain.IntegrationConnected
	integ.LastError = ""

	return h.integrations.Save(ctx, integ)
}

func (h *OAuthHandler) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	return h.doJSON(req, out)
}

func (h *OAuthHandler) postFormJSON(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.doJSON(req, out)
}

func (h *OAuthHandler) doJSON(req *http.Request, out interface{}) error {
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("oauth endpoint returned HTTP %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
