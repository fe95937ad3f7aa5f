package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Snapshot struct {
		Dir    string `koanf:"dir"`
		Format string `koanf:"format"`
	} `koanf:"snapshot"`
	Restart struct {
		PollInterval string `koanf:"poll_interval"`
		MaxPolls     int    `koanf:"max_polls"`
	} `koanf:"restart"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader(
		WithEnvPrefix("TEST_"),
		WithOptionalConfigFile("/path/to/config.yaml"),
	)

	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.filePath != "/path/to/config.yaml" || !l.optionalFile {
		t.Errorf("filePath = %q optional=%v", l.filePath, l.optionalFile)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
snapshot:
  dir: "D:\\snapshots"
  format: reg
restart:
  max_polls: 20
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if got := l.GetString("snapshot.format"); got != "reg" {
		t.Errorf("snapshot.format = %q, want %q", got, "reg")
	}
	if got := l.GetString("snapshot.dir"); got != `D:\snapshots` {
		t.Errorf("snapshot.dir = %q", got)
	}
	if got := l.GetInt("restart.max_polls"); got != 20 {
		t.Errorf("restart.max_polls = %d, want 20", got)
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should return error for nonexistent file")
	}
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") should not error, got: %v", err)
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	var cfg testConfig

	err := NewLoader(WithConfigFile("/nonexistent/config.yaml")).Load(&cfg)
	if err == nil {
		t.Error("Load() with a missing explicit file should fail")
	}

	err = NewLoader(WithOptionalConfigFile("/nonexistent/config.yaml")).Load(&cfg)
	if err != nil {
		t.Errorf("Load() with a missing optional file error = %v", err)
	}
}

func TestLoader_Load_MalformedOptionalFile(t *testing.T) {
	path := writeConfig(t, "snapshot: [unterminated")

	var cfg testConfig
	if err := NewLoader(WithOptionalConfigFile(path)).Load(&cfg); err == nil {
		t.Error("Load() should fail on a malformed file even when optional")
	}
}

func TestLoader_LoadEnv(t *testing.T) {
	t.Setenv("TRAYCTL_RESTART_POLL_INTERVAL", "250ms")
	t.Setenv("TRAYCTL_SNAPSHOT_FORMAT", "reg")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if got := l.GetString("restart.poll_interval"); got != "250ms" {
		t.Errorf("restart.poll_interval = %q, want %q", got, "250ms")
	}
	if got := l.GetString("snapshot.format"); got != "reg" {
		t.Errorf("snapshot.format = %q, want %q", got, "reg")
	}
}

func TestLoader_LoadEnv_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_LOG_LEVEL", "debug")

	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if got := l.GetString("log.level"); got != "debug" {
		t.Errorf("log.level = %q, want %q", got, "debug")
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
snapshot:
  dir: from-file
  format: reg
`)
	t.Setenv("TRAYCTL_SNAPSHOT_DIR", "from-env")

	l := NewLoader(
		WithConfigFile(path),
		WithDefaults(map[string]any{
			"snapshot.dir":      "from-default",
			"snapshot.format":   "json",
			"restart.max_polls": 10,
		}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Snapshot.Dir != "from-env" {
		t.Errorf("Dir = %q, want %q (env should override file)", cfg.Snapshot.Dir, "from-env")
	}
	if cfg.Snapshot.Format != "reg" {
		t.Errorf("Format = %q, want %q (file should override default)", cfg.Snapshot.Format, "reg")
	}
	if cfg.Restart.MaxPolls != 10 {
		t.Errorf("MaxPolls = %d, want default 10", cfg.Restart.MaxPolls)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load()")
	}
}

func TestLoader_LoadMap_Overrides(t *testing.T) {
	path := writeConfig(t, `
snapshot:
  dir: from-file
  format: reg
`)
	l := NewLoader(WithConfigFile(path))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := l.LoadMap(map[string]any{"snapshot.dir": "from-flag"}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if cfg.Snapshot.Dir != "from-flag" {
		t.Errorf("Dir = %q, want %q", cfg.Snapshot.Dir, "from-flag")
	}
	// Sibling keys from the file survive a dotted override.
	if cfg.Snapshot.Format != "reg" {
		t.Errorf("Format = %q, want %q", cfg.Snapshot.Format, "reg")
	}
	if !l.Exists("snapshot.dir") || l.Exists("snapshot.nope") {
		t.Error("Exists() mismatch")
	}
	if len(l.All()) < 2 {
		t.Errorf("All() returned %d keys, want at least 2", len(l.All()))
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	if _, err := mapProvider(nil).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
