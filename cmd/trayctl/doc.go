// Command trayctl toggles whether Windows hides inactive notification area
// icons, with snapshots so every change can be rolled back.
//
// Usage:
//
//	trayctl [flags] enable|disable|status|backup|rollback|diff|version
//
// Settings come from %AppData%\trayctl\config.yaml, TRAYCTL_* variables
// and flags, in increasing priority.
package main
