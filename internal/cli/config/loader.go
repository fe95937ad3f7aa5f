package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/infra/confloader"
	"github.com/yndnr/trayctl/internal/storage/hive"
	"github.com/yndnr/trayctl/internal/storage/snapshot"
	"github.com/yndnr/trayctl/internal/telemetry/logger"
)

// DefaultConfigPath returns the per-user config file path. The file is
// optional.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "trayctl", "config.yaml")
}

func defaultStoreDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "trayctl", "hive")
}

// LoadRequest describes one configuration load.
type LoadRequest struct {
	// Path is an explicit config file; it must exist. Empty means the
	// optional default path.
	Path string
	// Overrides are flag values keyed by dotted path. They win over
	// every other source.
	Overrides map[string]any
}

// Load builds the configuration: defaults < file < TRAYCTL_* env < overrides.
func Load(req LoadRequest) (Config, error) {
	opts := []confloader.Option{confloader.WithDefaults(Defaults())}
	if req.Path != "" {
		opts = append(opts, confloader.WithConfigFile(req.Path))
	} else if p := DefaultConfigPath(); p != "" {
		opts = append(opts, confloader.WithOptionalConfigFile(p))
	}
	l := confloader.NewLoader(opts...)

	var cfg Config
	if err := l.Load(&cfg); err != nil {
		return Config{}, domain.ErrInvalidArgument.WithDetails("configuration").WithCause(err)
	}
	if len(req.Overrides) > 0 {
		if err := l.LoadMap(req.Overrides); err != nil {
			return Config{}, domain.ErrInvalidArgument.WithDetails("configuration").WithCause(err)
		}
		if err := l.Unmarshal(&cfg); err != nil {
			return Config{}, domain.ErrInvalidArgument.WithDetails("configuration").WithCause(err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerations and bounds.
func (c Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.Store.Backend) {
	case hive.BackendRegistry, hive.BackendFile, hive.BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("store.backend %q (want registry, file or memory)", c.Store.Backend))
	}
	if strings.EqualFold(c.Store.Backend, hive.BackendFile) && c.Store.Dir == "" {
		problems = append(problems, "store.dir is required for the file backend")
	}

	if c.Snapshot.Dir == "" {
		problems = append(problems, "snapshot.dir is empty")
	}
	if _, err := snapshot.NewCodec(c.Snapshot.Format); err != nil {
		problems = append(problems, fmt.Sprintf("snapshot.format %q (want json or reg)", c.Snapshot.Format))
	}

	if c.Restart.PollInterval <= 0 {
		problems = append(problems, "restart.poll_interval must be positive")
	}
	if c.Restart.MaxPolls <= 0 {
		problems = append(problems, "restart.max_polls must be positive")
	}
	if c.Restart.ProcessName == "" {
		problems = append(problems, "restart.process_name is empty")
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level %q (want debug, info, warn or error)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case logger.FormatText, logger.FormatJSON:
	default:
		problems = append(problems, fmt.Sprintf("log.format %q (want text or json)", c.Log.Format))
	}

	if c.Tweaks.OSBuild < 0 {
		problems = append(problems, "tweaks.os_build must not be negative")
	}

	if len(problems) > 0 {
		return domain.ErrInvalidArgument.WithDetails(strings.Join(problems, "; "))
	}
	return nil
}
