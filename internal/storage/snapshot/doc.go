// Package snapshot captures hive values to files and restores them.
//
// Two tiers exist side by side in the snapshot directory:
//
//	trayctl-basic.<ext>          primary switch only
//	trayctl-comprehensive.<ext>  primary switch plus every auxiliary key
//
// where <ext> is .json (versioned document, default) or .reg (regedit
// export text). Files are written to a temp file and renamed into place;
// an existing file is only replaced when the caller forces it. Every file
// records a SHA-256 checksum of its canonical entries, and a file that
// fails to decode is reported as domain.ErrSerialization.
//
// A snapshot is consumed by a successful restore: the file is removed.
// Rollback prefers the comprehensive tier and falls back to basic.
package snapshot
