package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncOutcome
// ---------------------------------------------------------------------------

// OutcomeKind tags the terminal business result of one adapter run.
type OutcomeKind string

const (
	// OutcomeSuccess indicates records were fetched and upserted
	OutcomeSuccess OutcomeKind = "SUCCESS"
	// OutcomeNotConnected indicates the integration precondition failed;
	// expected and non-alerting, omitted from orchestrator aggregates
	OutcomeNotConnected OutcomeKind = "NOT_CONNECTED"
	// OutcomeFailure indicates a platform-side fault recorded to the ledger
	OutcomeFailure OutcomeKind = "FAILURE"
)

// SyncOutcome is the typed result of one adapter run. Adapters convert
// every platform-side failure into an outcome; the separate error return
// of PlatformAdapter.Sync is reserved for faults in the invocation path
// itself, which the orchestrator retries.
type SyncOutcome struct {
	Platform PlatformCode
	Kind     OutcomeKind
	Synced   int
	Err      string
}

// Success builds a success outcome with the synced record count.
func Success(platform PlatformCode, synced int) SyncOutcome {
	return SyncOutcome{Platform: platform, Kind: OutcomeSuccess, Synced: synced}
}

// NotConnected builds the expected precondition-failure outcome.
func NotConnected(platform PlatformCode) SyncOutcome {
	return SyncOutcome{
		Platform: platform,
		Kind:     OutcomeNotConnected,
		Err:      fmt.Sprintf("%s not connected", platform.DisplayName()),
	}
}

// Failure builds a terminal failure outcome.
func Failure(platform PlatformCode, message string) SyncOutcome {
	return SyncOutcome{Platform: platform, Kind: OutcomeFailure, Err: message}
}

// IsSuccess returns true for success outcomes
func (o SyncOutcome) IsSuccess() bool { return o.Kind == OutcomeSuccess }

// IsNotConnected returns true for the non-alerting precondition outcome
func (o SyncOutcome) IsNotConnected() bool { return o.Kind == OutcomeNotConnected }

// ---------------------------------------------------------------------------
// PlatformAdapter port
// ---------------------------------------------------------------------------

// PlatformAdapter is the uniform contract every platform implements:
// fetch one organization's records, normalize them into the shared schema
// and upsert them, reporting a typed outcome.
//
// The error return carries only transport or unexpected faults in the
// invocation path; business-level failures (not connected, platform
// rejection) are expressed through the outcome and are never retried.
type PlatformAdapter interface {
	// PlatformCode returns the platform this adapter handles
	PlatformCode() PlatformCode

	// Sync pulls, normalizes and persists all records for one organization
	Sync(ctx context.Context, orgID uuid.UUID) (SyncOutcome, error)
}
