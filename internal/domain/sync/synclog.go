package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncLogStatus represents the lifecycle of one ledger row
type SyncLogStatus string

const (
	SyncLogSyncing SyncLogStatus = "SYNCING"
	SyncLogSuccess SyncLogStatus = "SUCCESS"
	SyncLogFailed  SyncLogStatus = "FAILED"
)

// IsTerminal returns true for SUCCESS and FAILED
func (s SyncLogStatus) IsTerminal() bool {
	return s == SyncLogSuccess || s == SyncLogFailed
}

// SyncLog is one row of the append-mostly audit ledger: created in SYNCING
// state before any network call, updated exactly once to a terminal state.
type SyncLog struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Platform       PlatformCode
	Status         SyncLogStatus
	RecordsSynced  int
	ErrorMessage   string
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// Complete marks the log successful.
func (l *SyncLog) Complete(records int, at time.Time) {
	l.Status = SyncLogSuccess
	l.RecordsSynced = records
	l.ErrorMessage = ""
	l.CompletedAt = &at
}

// Fail marks the log failed with the given message.
func (l *SyncLog) Fail(message string, at time.Time) {
	l.Status = SyncLogFailed
	l.ErrorMessage = message
	l.CompletedAt = &at
}

// SyncLogRepository defines persistence for the sync ledger
type SyncLogRepository interface {
	// Create writes the write-ahead SYNCING row
	Create(ctx context.Context, log *SyncLog) error

	// Update writes the terminal state of a ledger row
	Update(ctx context.Context, log *SyncLog) error

	// FindRecent lists recent ledger rows for an organization, newest first
	FindRecent(ctx context.Context, orgID uuid.UUID, platform *PlatformCode, limit int) ([]SyncLog, error)

	// FailStale marks rows stuck SYNCING for longer than staleAfter as
	// FAILED. Returns the number of rows reconciled.
	FailStale(ctx context.Context, staleAfter time.Duration) (int64, error)
}
