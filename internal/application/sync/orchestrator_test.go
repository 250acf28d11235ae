package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/domain/tenant"
)

// fakeAdapter scripts a sequence of (outcome, error) responses; the last
// entry repeats once the script runs out.
type fakeAdapter struct {
	platform syncdomain.PlatformCode
	script   []fakeResponse
	calls    int
}

type fakeResponse struct {
	outcome syncdomain.SyncOutcome
	err     error
}

func (f *fakeAdapter) PlatformCode() syncdomain.PlatformCode { return f.platform }

func (f *fakeAdapter) Sync(_ context.Context, _ uuid.UUID) (syncdomain.SyncOutcome, error) {
	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	f.calls++
	resp := f.script[idx]
	return resp.outcome, resp.err
}

func succeeding(platform syncdomain.PlatformCode, synced int) *fakeAdapter {
	return &fakeAdapter{platform: platform, script: []fakeResponse{
		{outcome: syncdomain.Success(platform, synced)},
	}}
}

func notConnected(platform syncdomain.PlatformCode) *fakeAdapter {
	return &fakeAdapter{platform: platform, script: []fakeResponse{
		{outcome: syncdomain.NotConnected(platform)},
	}}
}

func alwaysErroring(platform syncdomain.PlatformCode, message string) *fakeAdapter {
	return &fakeAdapter{platform: platform, script: []fakeResponse{
		{outcome: syncdomain.Failure(platform, message), err: errors.New(message)},
	}}
}

type fakeOrgRepo struct {
	orgs []tenant.Organization
}

func (f *fakeOrgRepo) FindByID(_ context.Context, id uuid.UUID) (*tenant.Organization, error) {
	for i := range f.orgs {
		if f.orgs[i].ID == id {
			return &f.orgs[i], nil
		}
	}
	return nil, tenant.ErrOrganizationNotFound
}

func (f *fakeOrgRepo) FindWithConnectedIntegrations(_ context.Context) ([]tenant.Organization, error) {
	return f.orgs, nil
}

func (f *fakeOrgRepo) Save(_ context.Context, _ *tenant.Organization) error { return nil }

type fakeSyncLogRepo struct {
	staleSweeps int
}

func (f *fakeSyncLogRepo) Create(_ context.Context, _ *syncdomain.SyncLog) error { return nil }
func (f *fakeSyncLogRepo) Update(_ context.Context, _ *syncdomain.SyncLog) error { return nil }
func (f *fakeSyncLogRepo) FindRecent(_ context.Context, _ uuid.UUID, _ *syncdomain.PlatformCode, _ int) ([]syncdomain.SyncLog, error) {
	return nil, nil
}
func (f *fakeSyncLogRepo) FailStale(_ context.Context, _ time.Duration) (int64, error) {
	f.staleSweeps++
	return 0, nil
}

func newTestOrchestrator(adapters []syncdomain.PlatformAdapter, orgs tenant.OrganizationRepository) (*Orchestrator, *[]time.Duration) {
	var mu stdsync.Mutex
	var delays []time.Duration
	o := NewOrchestrator(adapters, orgs, &fakeSyncLogRepo{}, Config{
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
		AdapterTimeout: time.Second,
	}, nil)
	// Adapters run concurrently, so the delay capture needs a lock.
	o.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return nil
	}
	return o, &delays
}

func TestOrchestrator_SyncAllPlatforms_PartialFailureIsolation(t *testing.T) {
	adapters := []syncdomain.PlatformAdapter{
		succeeding(syncdomain.PlatformShopify, 12),
		alwaysErroring(syncdomain.PlatformNuvemshop, "HTTP 502"),
		succeeding(syncdomain.PlatformCartpanda, 3),
		succeeding(syncdomain.PlatformYampi, 7),
		alwaysErroring(syncdomain.PlatformFacebookAds, "insights timeout"),
		succeeding(syncdomain.PlatformGoogleAds, 9),
		succeeding(syncdomain.PlatformReportana, 2),
	}
	o, _ := newTestOrchestrator(adapters, &fakeOrgRepo{})

	results := o.SyncAllPlatforms(context.Background(), uuid.New())

	require.Len(t, results, 7)

	byPlatform := make(map[syncdomain.PlatformCode]PlatformResult)
	for _, r := range results {
		byPlatform[r.Platform] = r
	}

	assert.True(t, byPlatform[syncdomain.PlatformShopify].Success)
	assert.Equal(t, 12, byPlatform[syncdomain.PlatformShopify].Synced)

	assert.False(t, byPlatform[syncdomain.PlatformNuvemshop].Success)
	assert.Equal(t, "HTTP 502", byPlatform[syncdomain.PlatformNuvemshop].Error)

	assert.False(t, byPlatform[syncdomain.PlatformFacebookAds].Success)
	assert.Equal(t, "insights timeout", byPlatform[syncdomain.PlatformFacebookAds].Error)
}

func TestOrchestrator_SyncAllPlatforms_NotConnectedOmitted(t *testing.T) {
	adapters := []syncdomain.PlatformAdapter{
		succeeding(syncdomain.PlatformShopify, 4),
		notConnected(syncdomain.PlatformNuvemshop),
		notConnected(syncdomain.PlatformCartpanda),
		succeeding(syncdomain.PlatformFacebookAds, 20),
	}
	o, _ := newTestOrchestrator(adapters, &fakeOrgRepo{})

	results := o.SyncAllPlatforms(context.Background(), uuid.New())

	// Unconfigured integrations are neither failures nor successes; they
	// simply do not appear.
	require.Len(t, results, 2)
	assert.Equal(t, syncdomain.PlatformShopify, results[0].Platform)
	assert.Equal(t, syncdomain.PlatformFacebookAds, results[1].Platform)
}

func TestOrchestrator_SyncAllPlatforms_StableOrdering(t *testing.T) {
	adapters := []syncdomain.PlatformAdapter{
		succeeding(syncdomain.PlatformShopify, 1),
		succeeding(syncdomain.PlatformNuvemshop, 2),
		succeeding(syncdomain.PlatformCartpanda, 3),
		succeeding(syncdomain.PlatformYampi, 4),
		succeeding(syncdomain.PlatformFacebookAds, 5),
		succeeding(syncdomain.PlatformGoogleAds, 6),
		succeeding(syncdomain.PlatformReportana, 7),
	}
	o, _ := newTestOrchestrator(adapters, &fakeOrgRepo{})

	for run := 0; run < 5; run++ {
		results := o.SyncAllPlatforms(context.Background(), uuid.New())
		require.Len(t, results, 7)
		for i, adapter := range adapters {
			assert.Equal(t, adapter.PlatformCode(), results[i].Platform)
		}
	}
}

func TestOrchestrator_SyncWithRetry(t *testing.T) {
	t.Run("retry then succeed is transparent", func(t *testing.T) {
		flaky := &fakeAdapter{platform: syncdomain.PlatformShopify, script: []fakeResponse{
			{outcome: syncdomain.Failure(syncdomain.PlatformShopify, "connection reset"), err: errors.New("connection reset")},
			{outcome: syncdomain.Success(syncdomain.PlatformShopify, 8)},
		}}
		o, delays := newTestOrchestrator([]syncdomain.PlatformAdapter{flaky}, &fakeOrgRepo{})

		results := o.SyncAllPlatforms(context.Background(), uuid.New())

		require.Len(t, results, 1)
		assert.True(t, results[0].Success)
		assert.Equal(t, 8, results[0].Synced)
		assert.Equal(t, 2, flaky.calls)
		require.Len(t, *delays, 1)
	})

	t.Run("exponential backoff doubles per attempt", func(t *testing.T) {
		failing := alwaysErroring(syncdomain.PlatformShopify, "down")
		o, delays := newTestOrchestrator([]syncdomain.PlatformAdapter{failing}, &fakeOrgRepo{})

		results := o.SyncAllPlatforms(context.Background(), uuid.New())

		require.Len(t, results, 1)
		assert.False(t, results[0].Success)
		assert.Equal(t, 3, failing.calls)
		// The first retry waits the configured base, the second twice that.
		require.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, *delays)
	})

	t.Run("terminal failure outcome is not retried", func(t *testing.T) {
		terminal := &fakeAdapter{platform: syncdomain.PlatformShopify, script: []fakeResponse{
			{outcome: syncdomain.Failure(syncdomain.PlatformShopify, "invalid payload")},
		}}
		o, delays := newTestOrchestrator([]syncdomain.PlatformAdapter{terminal}, &fakeOrgRepo{})

		results := o.SyncAllPlatforms(context.Background(), uuid.New())

		require.Len(t, results, 1)
		assert.False(t, results[0].Success)
		assert.Equal(t, "invalid payload", results[0].Error)
		assert.Equal(t, 1, terminal.calls)
		assert.Empty(t, *delays)
	})

	t.Run("not connected is never retried", func(t *testing.T) {
		nc := notConnected(syncdomain.PlatformYampi)
		o, delays := newTestOrchestrator([]syncdomain.PlatformAdapter{nc}, &fakeOrgRepo{})

		results := o.SyncAllPlatforms(context.Background(), uuid.New())

		assert.Empty(t, results)
		assert.Equal(t, 1, nc.calls)
		assert.Empty(t, *delays)
	})
}

func TestOrchestrator_SyncPlatform(t *testing.T) {
	adapters := []syncdomain.PlatformAdapter{
		succeeding(syncdomain.PlatformShopify, 5),
	}
	o, _ := newTestOrchestrator(adapters, &fakeOrgRepo{})

	t.Run("known platform", func(t *testing.T) {
		outcome, err := o.SyncPlatform(context.Background(), uuid.New(), syncdomain.PlatformShopify)
		require.NoError(t, err)
		assert.True(t, outcome.IsSuccess())
		assert.Equal(t, 5, outcome.Synced)
	})

	t.Run("unknown platform", func(t *testing.T) {
		_, err := o.SyncPlatform(context.Background(), uuid.New(), syncdomain.PlatformCode("MERCADOLIVRE"))
		assert.ErrorIs(t, err, syncdomain.ErrInvalidPlatform)
	})
}

func TestOrchestrator_SyncAllOrganizations(t *testing.T) {
	orgA := tenant.Organization{ID: uuid.New(), Name: "A"}
	orgB := tenant.Organization{ID: uuid.New(), Name: "B"}
	orgRepo := &fakeOrgRepo{orgs: []tenant.Organization{orgA, orgB}}
	logRepo := &fakeSyncLogRepo{}

	adapters := []syncdomain.PlatformAdapter{
		succeeding(syncdomain.PlatformShopify, 2),
		notConnected(syncdomain.PlatformGoogleAds),
	}
	o := NewOrchestrator(adapters, orgRepo, logRepo, Config{
		RetryAttempts:  1,
		RetryBaseDelay: time.Millisecond,
		AdapterTimeout: time.Second,
	}, nil)

	summaries, err := o.SyncAllOrganizations(context.Background(), 30*time.Minute)
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	assert.Equal(t, orgA.ID, summaries[0].OrganizationID)
	assert.Equal(t, orgB.ID, summaries[1].OrganizationID)
	require.Len(t, summaries[0].Results, 1)
	assert.True(t, summaries[0].Results[0].Success)

	// The stale ledger sweep runs once per scheduled invocation.
	assert.Equal(t, 1, logRepo.staleSweeps)
}
