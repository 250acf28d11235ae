package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/infrastructure/crypto"
)

// maxResponseSize limits platform response bodies to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Deps bundles the collaborators shared by every platform adapter.
type Deps struct {
	Integrations syncdomain.IntegrationRepository
	Orders       syncdomain.OrderRepository
	Metrics      syncdomain.AdMetricRepository
	Events       syncdomain.ReportanaEventRepository
	SyncLogs     syncdomain.SyncLogRepository
	Vault        *crypto.Vault
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// base carries the shared precondition and ledger discipline. Each adapter
// embeds it and supplies only fetch+normalize logic.
type base struct {
	deps     Deps
	platform syncdomain.PlatformCode
}

func newBase(deps Deps, platform syncdomain.PlatformCode) base {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return base{deps: deps, platform: platform}
}

// connected loads the integration for (orgID, platform) and checks that it
// is usable. A false second return means "not connected": no integration
// row or DISCONNECTED status, with no side effects. Any other repository
// error is a store fault and comes back on the error channel instead.
func (b *base) connected(ctx context.Context, orgID uuid.UUID) (*syncdomain.Integration, bool, error) {
	integ, err := b.deps.Integrations.FindByOrgAndPlatform(ctx, orgID, b.platform)
	if errors.Is(err, syncdomain.ErrIntegrationNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !integ.IsConnected() {
		return nil, false, nil
	}
	return integ, true, nil
}

// notConnected is the terminal outcome for failed preconditions.
func (b *base) notConnected() (syncdomain.SyncOutcome, error) {
	return syncdomain.NotConnected(b.platform), nil
}

// lookupFailed surfaces an integration-lookup fault on the error channel
// so the orchestrator retries the attempt.
func (b *base) lookupFailed(err error) (syncdomain.SyncOutcome, error) {
	err = fmt.Errorf("%s: integration lookup failed: %w", b.platform, err)
	return syncdomain.Failure(b.platform, err.Error()), err
}

// credentialFault reports a stored credential that failed to decrypt.
// Terminal: a bad ciphertext or key does not heal on retry.
func (b *base) credentialFault(integ *syncdomain.Integration, err error) (syncdomain.SyncOutcome, error) {
	b.deps.Logger.Error("credential decryption failed",
		zap.String("platform", b.platform.String()),
		zap.String("organization_id", integ.OrganizationID.String()),
		zap.Error(err))
	return syncdomain.Failure(b.platform, fmt.Sprintf("credential decryption failed: %v", err)), nil
}

// execute runs fetch inside the ledger discipline: write-ahead SYNCING
// markers, then exactly one terminal update on both the ledger row and the
// integration's cached sync state. A fetch error is recorded as FAILED and
// also returned on the error channel so the orchestrator can retry the
// whole attempt; each retry produces its own ledger row.
func (b *base) execute(ctx context.Context, integ *syncdomain.Integration, fetch func(ctx context.Context) (int, error)) (syncdomain.SyncOutcome, error) {
	now := time.Now().UTC()
	log := &syncdomain.SyncLog{
		OrganizationID: integ.OrganizationID,
		Platform:       b.platform,
		Status:         syncdomain.SyncLogSyncing,
		StartedAt:      now,
	}
	if err := b.deps.SyncLogs.Create(ctx, log); err != nil {
		return syncdomain.Failure(b.platform, err.Error()), fmt.Errorf("%s: ledger write failed: %w", b.platform, err)
	}
	if err := b.deps.Integrations.MarkSyncing(ctx, integ.ID); err != nil {
		b.deps.Logger.Warn("failed to mark integration syncing",
			zap.String("platform", b.platform.String()),
			zap.String("organization_id", integ.OrganizationID.String()),
			zap.Error(err))
	}

	synced, err := fetch(ctx)
	completedAt := time.Now().UTC()

	if err != nil {
		log.Fail(err.Error(), completedAt)
		if uerr := b.deps.SyncLogs.Update(ctx, log); uerr != nil {
			b.deps.Logger.Error("failed to record sync failure",
				zap.String("platform", b.platform.String()),
				zap.Error(uerr))
		}
		if merr := b.deps.Integrations.MarkFailed(ctx, integ.ID, err.Error()); merr != nil {
			b.deps.Logger.Error("failed to mark integration failed",
				zap.String("platform", b.platform.String()),
				zap.Error(merr))
		}
		b.deps.Logger.Warn("platform sync failed",
			zap.String("platform", b.platform.String()),
			zap.String("organization_id", integ.OrganizationID.String()),
			zap.Error(err))
		return syncdomain.Failure(b.platform, err.Error()), err
	}

	log.Complete(synced, completedAt)
	if uerr := b.deps.SyncLogs.Update(ctx, log); uerr != nil {
		b.deps.Logger.Error("failed to record sync success",
			zap.String("platform", b.platform.String()),
			zap.Error(uerr))
	}
	if merr := b.deps.Integrations.MarkSynced(ctx, integ.ID, completedAt); merr != nil {
		b.deps.Logger.Error("failed to mark integration synced",
			zap.String("platform", b.platform.String()),
			zap.Error(merr))
	}

	b.deps.Logger.Info("platform sync completed",
		zap.String("platform", b.platform.String()),
		zap.String("organization_id", integ.OrganizationID.String()),
		zap.Int("records_synced", synced))
	return syncdomain.Success(b.platform, synced), nil
}

// getJSON performs a GET request and returns the raw body. Non-2xx
// responses surface as platform request errors.
func (b *base) getJSON(ctx context.Context, url string, headers map[string]string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to create request: %w", b.platform, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return b.doRequest(req)
}

// postJSON performs a POST request with a JSON body.
func (b *base) postJSON(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", b.platform, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", b.platform, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	respBody, _, err := b.doRequest(req)
	return respBody, err
}

// postForm performs a POST request with a form-encoded body.
func (b *base) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", b.platform, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	respBody, _, err := b.doRequest(req)
	return respBody, err
}

func (b *base) doRequest(req *http.Request) ([]byte, http.Header, error) {
	resp, err := b.deps.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", syncdomain.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to read response: %w", b.platform, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil, fmt.Errorf("%w: HTTP %d", syncdomain.ErrPlatformAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("%w: HTTP %d", syncdomain.ErrPlatformRequestFailed, resp.StatusCode)
	}

	return body, resp.Header, nil
}
