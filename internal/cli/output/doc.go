// Package output renders action results for the trayctl CLI.
//
//   - formatter.go: Formatter interface and factory
//   - report.go: human-readable result, status and diff rendering
//   - table.go: aligned tables for everything else
//   - json.go, yaml.go: machine-readable output for scripting
//   - spinner.go: feedback while the shell restarts
//
// Color is applied only when the Style says so; see DetectStyle.
package output
