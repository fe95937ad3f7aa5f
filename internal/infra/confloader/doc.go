// Package confloader loads trayctl settings with koanf.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (TRAYCTL_SECTION_KEY)
//  3. Configuration file (YAML)
//  4. Default values (WithDefaults)
package confloader
