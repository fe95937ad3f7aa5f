package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/core/tray"
	"github.com/yndnr/trayctl/internal/storage/snapshot"
)

// ============================================================================
// Status
// ============================================================================

// StatusReport is the read-only view of the tray configuration.
type StatusReport struct {
	Value        string                `json:"value" yaml:"value"`
	State        string                `json:"state" yaml:"state"`
	Description  string                `json:"description" yaml:"description"`
	IconsVisible bool                  `json:"icons_visible" yaml:"icons_visible"`
	OSBuild      int                   `json:"os_build,omitempty" yaml:"os_build,omitempty"`
	Snapshots    []snapshot.TierStatus `json:"snapshots" yaml:"snapshots"`
}

// Status reads the primary switch and the snapshot tiers. It never mutates
// anything; a corrupt snapshot is reported, not returned as an error.
func (s *TrayService) Status(ctx context.Context) (*StatusReport, error) {
	v, err := s.store.Read(ctx, tray.AutoTray)
	if err != nil {
		s.metrics.ObserveAction(string(domain.ActionStatus), err)
		return nil, err
	}
	st := tray.StateOf(v)

	report := &StatusReport{
		Value:        v.String(),
		State:        st.String(),
		Description:  tray.DescribeValue(v),
		IconsVisible: st.IconsVisible(),
		OSBuild:      s.osBuild,
	}
	for _, tier := range domain.Tiers {
		report.Snapshots = append(report.Snapshots, s.snapshots.Inspect(tier))
	}
	s.metrics.ObserveAction(string(domain.ActionStatus), nil)
	return report, nil
}

// ============================================================================
// Diff
// ============================================================================

// KeyDiff is one value that differs between snapshot and live store.
type KeyDiff struct {
	Key      string `json:"key" yaml:"key"`
	Snapshot string `json:"snapshot" yaml:"snapshot"`
	Live     string `json:"live" yaml:"live"`
}

// DiffReport compares the stored snapshot with the live values.
type DiffReport struct {
	Tier       domain.Tier `json:"tier" yaml:"tier"`
	SnapshotID string      `json:"snapshot_id" yaml:"snapshot_id"`
	CreatedAt  time.Time   `json:"created_at" yaml:"created_at"`
	Keys       []KeyDiff   `json:"keys" yaml:"keys"`
	// Text is a line diff of the REG renderings, "-" snapshot and "+" live.
	Text string `json:"text" yaml:"text"`
}

// Changed reports whether live values moved away from the snapshot.
func (r *DiffReport) Changed() bool {
	return len(r.Keys) > 0
}

// Diff compares the snapshot Rollback would restore with the live store.
func (s *TrayService) Diff(ctx context.Context) (*DiffReport, error) {
	snap, err := s.rollbackSource()
	if err != nil {
		s.metrics.ObserveAction(string(domain.ActionDiff), err)
		return nil, err
	}

	// Keys registered since the capture show up as live-only entries.
	keys := make([]domain.ConfigKey, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		keys = append(keys, e.Key)
	}
	current, err := tray.KeySet(ctx, snap.Tier, s.store)
	if err != nil {
		return nil, fmt.Errorf("enumerate keys: %w", err)
	}
	keys = append(keys, current...)

	live := &domain.Snapshot{Tier: snap.Tier}
	seen := map[string]struct{}{}
	for _, k := range keys {
		if _, ok := seen[k.ID()]; ok {
			continue
		}
		seen[k.ID()] = struct{}{}
		v, err := s.store.Read(ctx, k)
		if err != nil {
			s.metrics.ObserveAction(string(domain.ActionDiff), err)
			return nil, err
		}
		live.Entries = append(live.Entries, domain.Entry{Key: k, Value: v})
	}
	live.SortEntries()

	report := &DiffReport{Tier: snap.Tier, SnapshotID: snap.ID, CreatedAt: snap.CreatedAt}
	for _, le := range live.Entries {
		old := domain.Absent()
		if se, ok := snap.Lookup(le.Key); ok {
			old = se.Value
		}
		if !old.Equal(le.Value) {
			report.Keys = append(report.Keys, KeyDiff{Key: le.Key.String(), Snapshot: old.String(), Live: le.Value.String()})
		}
	}

	from, err := snapshot.RenderEntries(snap.Entries)
	if err != nil {
		return nil, err
	}
	to, err := snapshot.RenderEntries(live.Entries)
	if err != nil {
		return nil, err
	}
	report.Text = lineDiff(from, to)

	s.metrics.ObserveAction(string(domain.ActionDiff), nil)
	return report, nil
}

// rollbackSource loads the snapshot Rollback would pick.
func (s *TrayService) rollbackSource() (*domain.Snapshot, error) {
	var reasons []string
	for _, tier := range domain.Tiers {
		snap, _, err := s.snapshots.Load(tier)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			reasons = append(reasons, fmt.Sprintf("%s: %v", tier, err))
		}
	}
	if len(reasons) > 0 {
		return nil, domain.ErrSnapshotNotFound.WithDetails(strings.Join(reasons, "; "))
	}
	return nil, domain.ErrSnapshotNotFound
}

// lineDiff returns a unified-style line diff. Equal lines are prefixed with
// a space.
func lineDiff(from, to string) string {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix = "+"
		case diffpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
		}
	}
	return out.String()
}
