// Package hive provides access to the per-user configuration hive.
//
// The Store interface models HKCU as an opaque hierarchical key-value store:
//
//   - Keys are backslash separated paths relative to the hive root.
//   - Values are typed (DWORD or BINARY) and may be entirely absent,
//     which is distinct from any explicit value.
//   - Path and value name comparisons are case-insensitive; the casing
//     used when a key was first created is preserved for enumeration.
//
// Backends:
//
//   - registry: the real Windows registry (golang.org/x/sys/windows/registry).
//     Opening it on another platform fails with domain.ErrInvalidSession.
//   - file: a badger database that emulates the hive on disk, used to
//     rehearse changes on machines without a registry.
//   - memory: a map-backed store for tests.
package hive
