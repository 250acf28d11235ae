// Package sync contains the orchestration layer of the sync engine: it
// fans an organization's sync out over every platform adapter, applies
// bounded retry per adapter, and aggregates per-platform outcomes without
// letting one platform's failure abort the batch.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/domain/tenant"
)

// PlatformResult is one platform's entry in the aggregate sync summary.
type PlatformResult struct {
	Platform syncdomain.PlatformCode `json:"platform"`
	Success  bool                    `json:"success"`
	Synced   int                     `json:"synced,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// Config tunes the orchestrator's retry and timeout policy.
type Config struct {
	// RetryAttempts is the total attempts per adapter, first try included.
	RetryAttempts int
	// RetryBaseDelay is the first retry's delay; each later retry doubles it.
	RetryBaseDelay time.Duration
	// AdapterTimeout bounds one adapter attempt end to end.
	AdapterTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = 2 * time.Minute
	}
}

// Orchestrator runs platform adapters for organizations.
type Orchestrator struct {
	adapters []syncdomain.PlatformAdapter
	orgs     tenant.OrganizationRepository
	syncLogs syncdomain.SyncLogRepository
	config   Config
	logger   *zap.Logger

	// sleep is swappable so tests can observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates a new Orchestrator. Adapter order fixes the
// aggregate result order.
func NewOrchestrator(
	adapters []syncdomain.PlatformAdapter,
	orgs tenant.OrganizationRepository,
	syncLogs syncdomain.SyncLogRepository,
	config Config,
	logger *zap.Logger,
) *Orchestrator {
	config.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		adapters: adapters,
		orgs:     orgs,
		syncLogs: syncLogs,
		config:   config,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// ---------------------------------------------------------------------------
// Single-organization fan-out
// ---------------------------------------------------------------------------

// SyncAllPlatforms runs every adapter for one organization concurrently and
// returns the settled results in adapter declaration order. Platforms whose
// integration is simply not connected are omitted from the result: they are
// not failures, just absent integrations.
func (o *Orchestrator) SyncAllPlatforms(ctx context.Context, orgID uuid.UUID) []PlatformResult {
	outcomes := make([]syncdomain.SyncOutcome, len(o.adapters))

	var wg stdsync.WaitGroup
	for i, adapter := range o.adapters {
		wg.Add(1)
		go func(i int, adapter syncdomain.PlatformAdapter) {
			defer wg.Done()
			outcomes[i] = o.syncWithRetry(ctx, adapter, orgID)
		}(i, adapter)
	}
	wg.Wait()

	results := make([]PlatformResult, 0, len(outcomes))
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case syncdomain.OutcomeNotConnected:
			continue
		case syncdomain.OutcomeSuccess:
			results = append(results, PlatformResult{
				Platform: outcome.Platform,
				Success:  true,
				Synced:   outcome.Synced,
			})
		default:
			message := outcome.Err
			if message == "" {
				message = "Unknown error"
			}
			results = append(results, PlatformResult{
				Platform: outcome.Platform,
				Success:  false,
				Error:    message,
			})
		}
	}
	return results
}

// SyncPlatform runs a single adapter for one organization.
func (o *Orchestrator) SyncPlatform(ctx context.Context, orgID uuid.UUID, platform syncdomain.PlatformCode) (syncdomain.SyncOutcome, error) {
	for _, adapter := range o.adapters {
		if adapter.PlatformCode() == platform {
			return o.syncWithRetry(ctx, adapter, orgID), nil
		}
	}
	return syncdomain.SyncOutcome{}, syncdomain.ErrInvalidPlatform
}

// syncWithRetry wraps one adapter invocation in the bounded-retry policy.
// Only the error channel is retried: a returned outcome, NotConnected or
// Failure alike, is terminal business state. Exhausted retries settle on
// the last attempt's failure outcome.
func (o *Orchestrator) syncWithRetry(ctx context.Context, adapter syncdomain.PlatformAdapter, orgID uuid.UUID) syncdomain.SyncOutcome {
	platform := adapter.PlatformCode()

	var outcome syncdomain.SyncOutcome
	var lastErr error

	for attempt := 0; attempt < o.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := o.config.RetryBaseDelay * (1 << (attempt - 1))
			o.logger.Info("retrying platform sync",
				zap.String("platform", platform.String()),
				zap.String("organization_id", orgID.String()),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay))
			if err := o.sleep(ctx, delay); err != nil {
				return syncdomain.Failure(platform, err.Error())
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
		var err error
		outcome, err = adapter.Sync(attemptCtx, orgID)
		cancel()

		if err == nil {
			return outcome
		}
		lastErr = err
	}

	if outcome.Kind == syncdomain.OutcomeFailure && outcome.Err != "" {
		return outcome
	}
	message := "Unknown error"
	if lastErr != nil {
		message = lastErr.Error()
	}
	return syncdomain.Failure(platform, message)
}

// ---------------------------------------------------------------------------
// Scheduled run over every active organization
// ---------------------------------------------------------------------------

// OrganizationSummary is one organization's entry in a scheduled run.
type OrganizationSummary struct {
	OrganizationID uuid.UUID        `json:"organization_id"`
	Results        []PlatformResult `json:"results"`
}

// SyncAllOrganizations reconciles stale ledger rows, then sequentially runs
// SyncAllPlatforms for every organization holding at least one connected
// integration.
func (o *Orchestrator) SyncAllOrganizations(ctx context.Context, staleAfter time.Duration) ([]OrganizationSummary, error) {
	if reconciled, err := o.syncLogs.FailStale(ctx, staleAfter); err != nil {
		o.logger.Warn("stale ledger sweep failed", zap.Error(err))
	} else if reconciled > 0 {
		o.logger.Info("reconciled stale sync logs", zap.Int64("count", reconciled))
	}

	orgs, err := o.orgs.FindWithConnectedIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}

	summaries := make([]OrganizationSummary, 0, len(orgs))
	for _, org := range orgs {
		if ctx.Err() != nil {
			return summaries, ctx.Err()
		}
		summaries = append(summaries, OrganizationSummary{
			OrganizationID: org.ID,
			Results:        o.SyncAllPlatforms(ctx, org.ID),
		})
	}
	return summaries, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
