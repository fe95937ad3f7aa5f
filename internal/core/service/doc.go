// Package service provides the trayctl action dispatcher.
//
// TrayService maps each verb to store and snapshot operations:
//
//   - Enable / Disable: write the AutoTray switch, optionally after a
//     comprehensive snapshot, plus the Enable-only auxiliary resets
//   - Status: read-only view of the switch and snapshot tiers
//   - Backup / Rollback: capture and consume tiered snapshots
//   - Diff: compare the rollback source with live values
//
// Collaborators are injected through TrayDeps so tests run against the
// memory store and a fake shell restarter.
package service
