package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/core/tray"
	"github.com/yndnr/trayctl/internal/infra/shell"
	"github.com/yndnr/trayctl/internal/storage/hive"
	"github.com/yndnr/trayctl/internal/storage/snapshot"
	"github.com/yndnr/trayctl/internal/telemetry/logger"
	"github.com/yndnr/trayctl/internal/telemetry/metric"
)

// SnapshotStore defines the snapshot operations the dispatcher needs.
// Implemented by *snapshot.Manager.
type SnapshotStore interface {
	Capture(ctx context.Context, tier domain.Tier, keys []domain.ConfigKey, force bool) (*domain.Snapshot, *snapshot.Info, error)
	Existing(tier domain.Tier) (string, bool)
	Load(tier domain.Tier) (*domain.Snapshot, *snapshot.Info, error)
	Inspect(tier domain.Tier) snapshot.TierStatus
	Rollback(ctx context.Context) (*snapshot.RestoreReport, error)
}

// Restarter restarts the desktop shell. Implemented by *shell.Restarter.
type Restarter interface {
	Restart(ctx context.Context) (*shell.Report, error)
}

// TrayService dispatches the tray actions.
type TrayService struct {
	store     hive.Store
	snapshots SnapshotStore
	restarter Restarter
	metrics   *metric.Registry
	log       logger.Logger
	osBuild   int
}

// TrayDeps are the collaborators of TrayService. Restarter and Metrics may
// be nil.
type TrayDeps struct {
	Store     hive.Store
	Snapshots SnapshotStore
	Restarter Restarter
	Metrics   *metric.Registry
	Logger    logger.Logger
	// OSBuild is the Windows build number, 0 when unknown.
	OSBuild int
}

// NewTrayService creates a TrayService.
func NewTrayService(d TrayDeps) (*TrayService, error) {
	if d.Store == nil {
		return nil, domain.ErrMissingArgument.WithDetails("store")
	}
	if d.Snapshots == nil {
		return nil, domain.ErrMissingArgument.WithDetails("snapshots")
	}
	if d.Logger == nil {
		d.Logger = logger.Default()
	}
	return &TrayService{
		store:     d.Store,
		snapshots: d.Snapshots,
		restarter: d.Restarter,
		metrics:   d.Metrics,
		log:       d.Logger.With("component", "tray"),
		osBuild:   d.OSBuild,
	}, nil
}

// ============================================================================
// Enable / Disable
// ============================================================================

// EnableRequest contains the Enable options.
type EnableRequest struct {
	SnapshotFirst   bool // Capture the comprehensive tier before mutating
	Force           bool // Overwrite an existing snapshot when SnapshotFirst is set
	ResetIcons      bool // Promote every registered icon (Windows 11)
	ShowSystemIcons bool // Clear the HideClock/HideSCA* policies
	BuildTweak      bool // Drop the legacy icon streams on builds before Windows 11
	RestartExplorer bool
}

// DisableRequest contains the Disable options.
type DisableRequest struct {
	SnapshotFirst   bool
	Force           bool
	RestartExplorer bool
}

// Enable shows every notification-area icon.
func (s *TrayService) Enable(ctx context.Context, req *EnableRequest) (*domain.ActionResult, error) {
	res := domain.NewResult(domain.ActionEnable, "all notification area icons are shown")

	// 1. Optional snapshot of everything we may touch
	if req.SnapshotFirst {
		if err := s.snapshotFirst(ctx, res, req.Force); err != nil {
			return s.fail(res, err)
		}
	}

	// 2. Primary switch
	if err := s.set(ctx, res, tray.AutoTray, domain.DWord(tray.ShowAllValue)); err != nil {
		return s.fail(res, err)
	}

	// 3. Auxiliary resets, best-effort
	if req.ResetIcons {
		s.resetIcons(ctx, res)
	}
	if req.ShowSystemIcons {
		s.showSystemIcons(ctx, res)
	}
	if req.BuildTweak {
		s.applyBuildTweak(ctx, res)
	}

	// 4. Optional shell restart
	if req.RestartExplorer {
		s.restart(ctx, res)
	}
	return s.done(res)
}

// Disable restores auto-hiding of inactive icons by writing the explicit
// auto-hide value. The value is never deleted here: absent is produced only
// by rolling back to a snapshot that recorded it absent.
func (s *TrayService) Disable(ctx context.Context, req *DisableRequest) (*domain.ActionResult, error) {
	res := domain.NewResult(domain.ActionDisable, "inactive notification area icons are hidden")

	if req.SnapshotFirst {
		if err := s.snapshotFirst(ctx, res, req.Force); err != nil {
			return s.fail(res, err)
		}
	}
	if err := s.set(ctx, res, tray.AutoTray, domain.DWord(tray.AutoHideValue)); err != nil {
		return s.fail(res, err)
	}
	if req.RestartExplorer {
		s.restart(ctx, res)
	}
	return s.done(res)
}

// snapshotFirst captures the comprehensive tier. An unconsumed snapshot is
// kept unless force is set, so repeated Enable/Disable runs never lose the
// original state.
func (s *TrayService) snapshotFirst(ctx context.Context, res *domain.ActionResult, force bool) error {
	keys, err := tray.KeySet(ctx, domain.TierComprehensive, s.store)
	if err != nil {
		return fmt.Errorf("enumerate keys: %w", err)
	}
	_, info, err := s.snapshots.Capture(ctx, domain.TierComprehensive, keys, force)
	var de *domain.DomainError
	switch {
	case errors.Is(err, domain.ErrBackupExists) && errors.As(err, &de):
		res.Warn("existing snapshot kept: " + de.Details)
		return nil
	case err != nil:
		return err
	}
	res.Description += fmt.Sprintf(" (snapshot %s)", info.Path)
	return nil
}

// set writes v to key and records the change when the value differs.
func (s *TrayService) set(ctx context.Context, res *domain.ActionResult, key domain.ConfigKey, v domain.Value) error {
	before, err := s.store.Read(ctx, key)
	if err != nil {
		return err
	}
	if before.Equal(v) {
		s.log.Debug("value unchanged", "key", key.String(), "value", v.String())
		return nil
	}
	if err := s.store.Write(ctx, key, v); err != nil {
		return err
	}
	res.AddChange(key, before, v)
	s.log.Info("value written", "key", key.String(), "before", before.String(), "after", v.String())
	return nil
}

// remove deletes key and records the change when it existed.
func (s *TrayService) remove(ctx context.Context, res *domain.ActionResult, key domain.ConfigKey) error {
	before, err := s.store.Read(ctx, key)
	if err != nil {
		return err
	}
	if before.IsAbsent() {
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	res.AddChange(key, before, domain.Absent())
	s.log.Info("value deleted", "key", key.String())
	return nil
}

// resetIcons promotes every icon registered under NotifyIconSettings.
// Enumeration is sorted; failures on single icons become warnings.
func (s *TrayService) resetIcons(ctx context.Context, res *domain.ActionResult) {
	keys, err := tray.PromotionKeys(ctx, s.store)
	if err != nil {
		res.Warn(fmt.Sprintf("icon settings not enumerated: %v", err))
		return
	}
	if len(keys) == 0 {
		res.Warn("no per-icon settings found")
		return
	}
	for _, k := range keys {
		if err := s.set(ctx, res, k, domain.DWord(1)); err != nil {
			res.Warn(fmt.Sprintf("%s: %v", k, err))
		}
	}
}

// showSystemIcons clears the policies hiding built-in icons. Absent
// policies already mean visible and are left alone.
func (s *TrayService) showSystemIcons(ctx context.Context, res *domain.ActionResult) {
	for _, k := range tray.SystemIcons {
		v, err := s.store.Read(ctx, k)
		if err != nil {
			res.Warn(fmt.Sprintf("%s: %v", k, err))
			continue
		}
		if v.IsAbsent() {
			continue
		}
		if err := s.set(ctx, res, k, domain.DWord(0)); err != nil {
			res.Warn(fmt.Sprintf("%s: %v", k, err))
		}
	}
}

// applyBuildTweak drops the TrayNotify icon streams on builds before
// Windows 11 so Explorer rebuilds them with every icon visible.
func (s *TrayService) applyBuildTweak(ctx context.Context, res *domain.ActionResult) {
	switch {
	case s.osBuild == 0:
		res.Warn("build tweak skipped: Windows build unknown (set tweaks.os_build)")
		return
	case s.osBuild >= tray.Windows11Build:
		res.Warn(fmt.Sprintf("build tweak not needed on build %d; use --reset-icons", s.osBuild))
		return
	}
	for _, k := range tray.IconStreams {
		if err := s.remove(ctx, res, k); err != nil {
			res.Warn(fmt.Sprintf("%s: %v", k, err))
		}
	}
}

// restart runs the shell restarter; every failure is a warning because the
// registry change has already been applied.
func (s *TrayService) restart(ctx context.Context, res *domain.ActionResult) {
	if s.restarter == nil {
		res.Warn("shell restart not available; sign out to apply")
		return
	}
	start := time.Now()
	_, err := s.restarter.Restart(ctx)
	s.metrics.ObserveRestart(time.Since(start), errors.Is(err, domain.ErrProcessRestartTimeout))
	if err != nil {
		if domain.IsWarning(err) {
			s.log.Warn("shell restart", "error", err)
		} else {
			s.log.Error("shell restart", "error", err)
		}
		res.Warn(fmt.Sprintf("shell restart: %v", err))
	}
}

// ============================================================================
// Backup / Rollback
// ============================================================================

// Backup captures both tiers. Without force nothing is written when either
// tier already has an unconsumed snapshot.
func (s *TrayService) Backup(ctx context.Context, force bool) (*domain.ActionResult, error) {
	res := domain.NewResult(domain.ActionBackup, "")

	// 1. Refuse up front so a half-written pair never exists
	if !force {
		for _, tier := range domain.Tiers {
			if path, ok := s.snapshots.Existing(tier); ok {
				return s.fail(res, domain.ErrBackupExists.WithDetails(path))
			}
		}
	}

	// 2. Capture basic first; comprehensive is the preferred rollback source
	var written []string
	for _, tier := range []domain.Tier{domain.TierBasic, domain.TierComprehensive} {
		keys, err := tray.KeySet(ctx, tier, s.store)
		if err != nil {
			return s.fail(res, domain.ErrBackupFailed.WithDetails("enumerate keys").WithCause(err))
		}
		_, info, err := s.snapshots.Capture(ctx, tier, keys, force)
		if err != nil {
			return s.fail(res, err)
		}
		written = append(written, fmt.Sprintf("%s (%d values) at %s", tier, info.Entries, info.Path))
	}

	res.Description = "snapshots written: " + strings.Join(written, "; ")
	return s.done(res)
}

// RollbackRequest contains the Rollback options.
type RollbackRequest struct {
	RestartExplorer bool
}

// Rollback restores the most complete snapshot available and consumes it.
func (s *TrayService) Rollback(ctx context.Context, req *RollbackRequest) (*domain.ActionResult, error) {
	res := domain.NewResult(domain.ActionRollback, "")

	report, err := s.snapshots.Rollback(ctx)
	if report != nil {
		res.Changes = append(res.Changes, report.Changes...)
		for _, sk := range report.Skipped {
			res.Warn("skipped " + sk)
		}
		for _, w := range report.Warnings {
			res.Warn(w)
		}
		for _, f := range report.Failures {
			res.Warn(fmt.Sprintf("not restored: %s: %s", f.Key, f.Error))
		}
	}
	if err != nil {
		return s.fail(res, err)
	}

	res.Description = fmt.Sprintf("restored %s snapshot %s", report.Tier, report.ID)
	if req.RestartExplorer {
		s.restart(ctx, res)
	}
	return s.done(res)
}

// ============================================================================
// Result helpers
// ============================================================================

func (s *TrayService) done(res *domain.ActionResult) (*domain.ActionResult, error) {
	s.metrics.AddMutations(len(res.Changes))
	s.metrics.ObserveAction(string(res.Action), nil)
	s.log.Info("action completed", "action", res.Action, "changes", len(res.Changes), "warnings", len(res.Warnings))
	return res, nil
}

func (s *TrayService) fail(res *domain.ActionResult, err error) (*domain.ActionResult, error) {
	res.Success = false
	res.Description = err.Error()
	s.metrics.AddMutations(len(res.Changes))
	s.metrics.ObserveAction(string(res.Action), err)
	s.log.Error("action failed", "action", res.Action, "error", err)
	return res, err
}
