// Package sync contains the platform synchronization bounded context.
// This context manages the ingestion of orders, ad metrics and checkout
// events from external commerce and advertising platforms.
//
// Key concepts:
//   - PlatformAdapter: Port interface for pulling one platform's records
//     for one organization (Shopify, Nuvemshop, Cartpanda, Yampi,
//     Facebook Ads, Google Ads, Reportana)
//   - Integration: per-(organization, platform) connection state and
//     encrypted credentials
//   - Order / AdMetric / ReportanaEvent: normalized records, upserted
//     idempotently on their natural external keys
//   - SyncLog: audit trail, one row per sync attempt
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package sync
