package sync

import "errors"

var (
	// Integration errors
	ErrIntegrationNotFound  = errors.New("sync: integration not found")
	ErrIntegrationNotActive = errors.New("sync: integration not connected")
	ErrMissingCredentials   = errors.New("sync: required credentials missing")
	ErrInvalidPlatform      = errors.New("sync: invalid platform code")

	// Platform errors
	ErrPlatformUnavailable     = errors.New("sync: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("sync: platform request failed")
	ErrPlatformInvalidResponse = errors.New("sync: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("sync: platform authentication failed")

	// Record errors
	ErrOrderNotFound     = errors.New("sync: order not found")
	ErrAdMetricNotFound  = errors.New("sync: ad metric not found")
	ErrSyncLogNotFound   = errors.New("sync: sync log not found")
	ErrInvalidSyncRecord = errors.New("sync: invalid sync record")

	// Webhook errors
	ErrWebhookSignatureInvalid = errors.New("sync: invalid webhook signature")
	ErrWebhookTargetNotFound   = errors.New("sync: webhook target integration not found")
	ErrWebhookPayloadInvalid   = errors.New("sync: malformed webhook payload")
)
