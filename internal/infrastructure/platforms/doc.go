// Package platforms contains one sync adapter per external commerce or ads
// platform. Every adapter implements the sync.PlatformAdapter port: check
// the integration preconditions, fetch and drain the platform's API,
// normalize records into the shared order/metric shape, and upsert them
// under the sync ledger discipline.
package platforms
