package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/storage/hive"
	"github.com/yndnr/trayctl/internal/telemetry/logger"
)

const filePrefix = "trayctl-"

var (
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrTierMismatch     = errors.New("snapshot: tier mismatch")
)

// Config configures the snapshot manager.
type Config struct {
	Dir    string
	Format string

	// Metadata recorded in every snapshot.
	ToolVersion string
	Host        string
	User        string
	OSBuild     int

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Manager captures and restores tiered snapshots of hive values.
type Manager struct {
	cfg   Config
	codec Codec
	store hive.Store
	log   logger.Logger
}

// NewManager creates the snapshot directory if needed.
func NewManager(cfg Config, store hive.Store, log logger.Logger) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, domain.ErrMissingArgument.WithDetails("snapshot dir")
	}
	if store == nil {
		return nil, domain.ErrMissingArgument.WithDetails("snapshot store")
	}
	codec, err := NewCodec(cfg.Format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, domain.ErrBackupFailed.WithDetails("create snapshot dir").WithCause(err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Default()
	}

	return &Manager{
		cfg:   cfg,
		codec: codec,
		store: store,
		log:   log.With("component", "snapshot"),
	}, nil
}

// Info contains metadata about a snapshot file.
type Info struct {
	ID        string      `json:"id" yaml:"id"`
	Tier      domain.Tier `json:"tier" yaml:"tier"`
	Format    string      `json:"format" yaml:"format"`
	Path      string      `json:"path" yaml:"path"`
	Size      int64       `json:"size" yaml:"size"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	Entries   int         `json:"entries" yaml:"entries"`
	// Checksum is the SHA-256 of the file bytes.
	Checksum string `json:"checksum" yaml:"checksum"`
}

// Path returns the file path a capture of tier is written to.
func (m *Manager) Path(tier domain.Tier) string {
	return m.pathFor(tier, m.codec)
}

// Format returns the configured codec name.
func (m *Manager) Format() string {
	return m.codec.Name()
}

func (m *Manager) pathFor(tier domain.Tier, c Codec) string {
	return filepath.Join(m.cfg.Dir, filePrefix+string(tier)+c.Ext())
}

// candidates lists the possible files of a tier, configured format first.
func (m *Manager) candidates(tier domain.Tier) []candidate {
	out := []candidate{{path: m.pathFor(tier, m.codec), codec: m.codec}}
	for _, c := range codecs() {
		if c.Name() == m.codec.Name() {
			continue
		}
		out = append(out, candidate{path: m.pathFor(tier, c), codec: c})
	}
	return out
}

type candidate struct {
	path  string
	codec Codec
}

// Existing returns the path of the tier's snapshot file, if any.
func (m *Manager) Existing(tier domain.Tier) (string, bool) {
	for _, c := range m.candidates(tier) {
		if _, err := os.Stat(c.path); err == nil {
			return c.path, true
		}
	}
	return "", false
}

// Capture reads every key and writes the tier's snapshot file. An existing
// file is never replaced unless force is set.
func (m *Manager) Capture(ctx context.Context, tier domain.Tier, keys []domain.ConfigKey, force bool) (*domain.Snapshot, *Info, error) {
	if path, ok := m.Existing(tier); ok && !force {
		return nil, nil, domain.ErrBackupExists.WithDetails(path)
	}

	now := m.cfg.Now()
	id, err := domain.GenerateSnapshotID(now)
	if err != nil {
		return nil, nil, domain.ErrBackupFailed.WithCause(err)
	}

	snap := &domain.Snapshot{
		ID:          id,
		Tier:        tier,
		CreatedAt:   now.UTC(),
		ToolVersion: m.cfg.ToolVersion,
		Host:        m.cfg.Host,
		User:        m.cfg.User,
		OSBuild:     m.cfg.OSBuild,
		Entries:     make([]domain.Entry, 0, len(keys)),
	}

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k.ID()]; dup {
			continue
		}
		seen[k.ID()] = struct{}{}

		v, err := m.store.Read(ctx, k)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: read %s: %w", k, err)
		}
		snap.Entries = append(snap.Entries, domain.Entry{Key: k, Value: v})
	}
	snap.SortEntries()

	data, err := m.codec.Encode(snap)
	if err != nil {
		return nil, nil, err
	}

	finalPath := m.Path(tier)
	if err := writeFileAtomic(finalPath, data); err != nil {
		return nil, nil, domain.ErrBackupFailed.WithDetails(finalPath).WithCause(err)
	}

	// A forced capture replaces the tier in every format.
	for _, c := range m.candidates(tier)[1:] {
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			m.log.Warn("remove stale snapshot", "path", c.path, "error", err)
		}
	}

	info := &Info{
		ID:        snap.ID,
		Tier:      tier,
		Format:    m.codec.Name(),
		Path:      finalPath,
		Size:      int64(len(data)),
		CreatedAt: snap.CreatedAt,
		Entries:   len(snap.Entries),
		Checksum:  fileChecksum(data),
	}
	m.log.Info("snapshot captured", "tier", tier, "id", snap.ID, "entries", info.Entries, "path", finalPath)
	return snap, info, nil
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tmp.Name()
	defer os.Remove(tempPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func fileChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Load reads and validates the tier's snapshot. Returns
// domain.ErrSnapshotNotFound when no file exists and
// domain.ErrSerialization when the file cannot be decoded.
func (m *Manager) Load(tier domain.Tier) (*domain.Snapshot, *Info, error) {
	for _, c := range m.candidates(tier) {
		data, err := os.ReadFile(c.path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, nil, serializationError(c.codec.Name(), err)
		}

		snap, err := c.codec.Decode(data)
		if err != nil {
			return nil, nil, err
		}
		if snap.Tier != tier {
			return nil, nil, serializationError(c.codec.Name(),
				fmt.Errorf("%w: file %s holds %s", ErrTierMismatch, filepath.Base(c.path), snap.Tier))
		}

		return snap, &Info{
			ID:        snap.ID,
			Tier:      snap.Tier,
			Format:    c.codec.Name(),
			Path:      c.path,
			Size:      int64(len(data)),
			CreatedAt: snap.CreatedAt,
			Entries:   len(snap.Entries),
			Checksum:  fileChecksum(data),
		}, nil
	}
	return nil, nil, domain.ErrSnapshotNotFound.WithDetails(string(tier))
}

// TierState classifies a tier's snapshot file.
type TierState string

const (
	TierNone      TierState = "none"
	TierPresent   TierState = "present"
	TierCorrupted TierState = "corrupted"
)

// TierStatus is the Inspect result for one tier.
type TierStatus struct {
	Tier   domain.Tier `json:"tier" yaml:"tier"`
	State  TierState   `json:"state" yaml:"state"`
	Info   *Info       `json:"info,omitempty" yaml:"info,omitempty"`
	Reason string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Inspect reports the tier's snapshot state without failing on corrupt files.
func (m *Manager) Inspect(tier domain.Tier) TierStatus {
	_, info, err := m.Load(tier)
	switch {
	case err == nil:
		return TierStatus{Tier: tier, State: TierPresent, Info: info}
	case errors.Is(err, domain.ErrSnapshotNotFound):
		return TierStatus{Tier: tier, State: TierNone}
	default:
		path, _ := m.Existing(tier)
		return TierStatus{Tier: tier, State: TierCorrupted, Info: &Info{Tier: tier, Path: path}, Reason: err.Error()}
	}
}

// Failure is one entry that could not be restored.
type Failure struct {
	Key   string `json:"key" yaml:"key"`
	Error string `json:"error" yaml:"error"`
}

// RestoreReport describes a restore.
type RestoreReport struct {
	Tier     domain.Tier     `json:"tier" yaml:"tier"`
	ID       string          `json:"id" yaml:"id"`
	Changes  []domain.Change `json:"changes" yaml:"changes"`
	Failures []Failure       `json:"failures,omitempty" yaml:"failures,omitempty"`
	// Skipped lists tiers that were tried first and could not be loaded.
	Skipped []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// Removed is true when the snapshot file was consumed.
	Removed  bool     `json:"removed" yaml:"removed"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Restore replays snap into the store: absent entries are deleted, the
// rest are written. The file described by info is removed only when every
// entry was restored. Restore is best-effort: a failing entry does not stop
// the others and successful writes are not undone.
func (m *Manager) Restore(ctx context.Context, snap *domain.Snapshot, info *Info) (*RestoreReport, error) {
	report := &RestoreReport{Tier: snap.Tier, ID: snap.ID}

	var errs []error
	for _, e := range snap.Entries {
		before, err := m.store.Read(ctx, e.Key)
		if err != nil {
			m.log.Debug("read before restore", "key", e.Key.String(), "error", err)
		}

		if e.Value.IsAbsent() {
			err = m.store.Delete(ctx, e.Key)
		} else {
			err = m.store.Write(ctx, e.Key, e.Value)
		}
		if err != nil {
			report.Failures = append(report.Failures, Failure{Key: e.Key.String(), Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", e.Key, err))
			continue
		}
		if !before.Equal(e.Value) {
			report.Changes = append(report.Changes, domain.Change{
				Key:    e.Key.String(),
				Before: before.String(),
				After:  e.Value.String(),
			})
		}
	}

	if len(errs) > 0 {
		m.log.Error("snapshot restore incomplete", "tier", snap.Tier, "failed", len(errs), "total", len(snap.Entries))
		return report, domain.ErrRollbackFailed.
			WithDetails(fmt.Sprintf("%d of %d entries failed", len(errs), len(snap.Entries))).
			WithCause(errors.Join(errs...))
	}

	if info != nil && info.Path != "" {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("snapshot restored but not removed: %v", err))
		} else {
			report.Removed = true
		}
	}
	m.log.Info("snapshot restored", "tier", snap.Tier, "id", snap.ID, "changes", len(report.Changes))
	return report, nil
}

// Rollback restores the most complete snapshot available: comprehensive
// first, basic when comprehensive is missing or unreadable. Nothing is
// mutated when neither can be loaded.
func (m *Manager) Rollback(ctx context.Context) (*RestoreReport, error) {
	var skipped []string
	for _, tier := range domain.Tiers {
		snap, info, err := m.Load(tier)
		if err != nil {
			if errors.Is(err, domain.ErrSnapshotNotFound) {
				skipped = append(skipped, fmt.Sprintf("%s: not found", tier))
			} else {
				m.log.Warn("snapshot unreadable, falling back", "tier", tier, "error", err)
				skipped = append(skipped, fmt.Sprintf("%s: %v", tier, err))
			}
			continue
		}

		report, err := m.Restore(ctx, snap, info)
		if report != nil {
			report.Skipped = skipped
		}
		if err != nil {
			return report, err
		}

		// The comprehensive tier covers the basic one.
		if tier == domain.TierComprehensive {
			if err := m.Remove(domain.TierBasic); err != nil {
				report.Warnings = append(report.Warnings, err.Error())
			}
		}
		return report, nil
	}
	return nil, domain.ErrSnapshotNotFound.WithDetails(strings.Join(skipped, "; "))
}

// Remove deletes the tier's snapshot files in every format.
func (m *Manager) Remove(tier domain.Tier) error {
	var errs []error
	for _, c := range m.candidates(tier) {
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
