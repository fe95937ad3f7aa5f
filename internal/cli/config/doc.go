// Package config defines the trayctl runtime configuration.
//
//   - spec.go: Config struct and defaults
//   - loader.go: loading through confloader and validation
//
// A Config is built once per invocation and passed by value; nothing
// mutates it afterwards.
package config
