// Package command defines the trayctl command line.
//
//   - root.go: App, global flags, exit-code handling
//   - env.go: per-invocation wiring (config, logger, store, service)
//   - tray.go: enable, disable, backup, rollback
//   - inspect.go: status, diff, version, --diagnostic
//
// Verbs are accepted in any case ("trayctl Enable") and flags may appear
// before or after the verb.
package command
