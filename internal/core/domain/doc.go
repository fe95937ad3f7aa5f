// Package domain defines the trayctl domain model.
//
// Everything here is a plain value without IO:
//
//   - ConfigKey, Value: one per-user setting and its typed content
//   - Snapshot, Entry, Tier: captured settings that can be restored
//   - ActionResult, Change: what an action did, for reporting
//   - DomainError and the exit-code mapping
package domain
