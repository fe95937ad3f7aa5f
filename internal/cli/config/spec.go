package config

import (
	"os"
	"time"

	"github.com/yndnr/trayctl/internal/infra/shell"
	"github.com/yndnr/trayctl/internal/storage/hive"
	"github.com/yndnr/trayctl/internal/storage/snapshot"
	"github.com/yndnr/trayctl/internal/telemetry/logger"
)

// Config is the trayctl configuration.
type Config struct {
	Store    StoreConfig    `koanf:"store" yaml:"store"`
	Snapshot SnapshotConfig `koanf:"snapshot" yaml:"snapshot"`
	Restart  RestartConfig  `koanf:"restart" yaml:"restart"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Tweaks   TweaksConfig   `koanf:"tweaks" yaml:"tweaks"`
}

// StoreConfig selects the config store backend.
type StoreConfig struct {
	Backend string `koanf:"backend" yaml:"backend"` // registry, file, memory
	Dir     string `koanf:"dir" yaml:"dir"`         // file backend only
}

// SnapshotConfig controls where and how snapshots are written.
type SnapshotConfig struct {
	Dir    string `koanf:"dir" yaml:"dir"`
	Format string `koanf:"format" yaml:"format"` // json, reg
}

// RestartConfig bounds the shell restart.
type RestartConfig struct {
	ProcessName  string        `koanf:"process_name" yaml:"process_name"`
	PollInterval time.Duration `koanf:"poll_interval" yaml:"poll_interval"`
	MaxPolls     int           `koanf:"max_polls" yaml:"max_polls"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written at exit when set.
	Textfile string `koanf:"textfile" yaml:"textfile"`
}

// TweaksConfig holds host overrides.
type TweaksConfig struct {
	// OSBuild overrides Windows build detection when > 0.
	OSBuild int `koanf:"os_build" yaml:"os_build"`
}

// Defaults returns the default values keyed the way confloader expects.
func Defaults() map[string]any {
	return map[string]any{
		"store.backend":         hive.BackendRegistry,
		"store.dir":             defaultStoreDir(),
		"snapshot.dir":          os.TempDir(),
		"snapshot.format":       snapshot.FormatJSON,
		"restart.process_name":  shell.DefaultProcessName,
		"restart.poll_interval": shell.DefaultPollInterval.String(),
		"restart.max_polls":     shell.DefaultMaxPolls,
		"log.level":             "warn",
		"log.format":            logger.FormatText,
		"metrics.textfile":      "",
		"tweaks.os_build":       0,
	}
}

// Hive returns the store backend configuration.
func (c Config) Hive() hive.Config {
	return hive.Config{Backend: c.Store.Backend, Dir: c.Store.Dir}
}

// Shell returns the restarter configuration.
func (c Config) Shell() shell.Config {
	return shell.Config{
		ProcessName:  c.Restart.ProcessName,
		PollInterval: c.Restart.PollInterval,
		MaxPolls:     c.Restart.MaxPolls,
	}
}

// Logger returns the logger configuration. diagnostic forces debug level
// with source locations.
func (c Config) Logger(diagnostic bool) logger.Config {
	lc := logger.Config{Level: c.Log.Level, Format: c.Log.Format}
	if diagnostic {
		lc.Level = "debug"
		lc.AddSource = true
	}
	return lc
}
