package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/core/service"
	"github.com/yndnr/trayctl/internal/core/tray"
	"github.com/yndnr/trayctl/internal/storage/snapshot"
)

// palette holds the colors used by the human renderers.
type palette struct {
	ok, fail, warn, dim, bold *color.Color
}

func (s Style) palette() palette {
	p := palette{
		ok:   color.New(color.FgGreen),
		fail: color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
		dim:  color.New(color.Faint),
		bold: color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.ok, p.fail, p.warn, p.dim, p.bold} {
		if s.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// RenderResult prints an action outcome:
//
//	[ok] enable: EnableAutoTray set to 0
//	  HKCU\...\EnableAutoTray: (absent) -> 0x00000000 (0)
//	  warning: shell restart: ...
func RenderResult(w io.Writer, r *domain.ActionResult, style Style) error {
	p := style.palette()

	label := p.ok.Sprint("[ok]")
	if !r.Success {
		label = p.fail.Sprint("[failed]")
	}
	if _, err := fmt.Fprintf(w, "%s %s: %s\n", label, r.Action, r.Description); err != nil {
		return err
	}
	for _, c := range r.Changes {
		fmt.Fprintf(w, "  %s: %s -> %s\n", c.Key, p.dim.Sprint(c.Before), p.bold.Sprint(c.After))
	}
	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "  %s %s\n", p.warn.Sprint("warning:"), msg)
	}
	return nil
}

// RenderStatus prints the switch state followed by a snapshot table.
func RenderStatus(w io.Writer, r *service.StatusReport, style Style) error {
	p := style.palette()

	state := r.State
	switch r.State {
	case tray.StateShowAll.String():
		state = p.ok.Sprint(state)
	case tray.StateUnknown.String():
		state = p.warn.Sprint(state)
	}

	build := "unknown"
	if r.OSBuild > 0 {
		build = strconv.Itoa(r.OSBuild)
	}

	head := &Table{}
	head.AddRow(tray.AutoTray.Name, r.Value)
	head.AddRow("State", state)
	head.AddRow("Meaning", r.Description)
	head.AddRow("Windows build", build)
	if err := head.RenderWithOptions(w, true); err != nil {
		return err
	}
	fmt.Fprintln(w)

	snaps := &Table{Headers: []string{"SNAPSHOT", "STATE", "CREATED", "ENTRIES", "PATH"}}
	for _, ts := range r.Snapshots {
		created, entries, path := "-", "-", "-"
		if ts.Info != nil {
			created = formatTime(ts.Info.CreatedAt)
			entries = strconv.Itoa(ts.Info.Entries)
			path = ts.Info.Path
		}
		st := string(ts.State)
		switch ts.State {
		case snapshot.TierPresent:
			st = p.ok.Sprint(st)
		case snapshot.TierCorrupted:
			st = p.fail.Sprint(st)
			if ts.Reason != "" {
				path = ts.Reason
			}
		}
		snaps.AddRow(string(ts.Tier), st, created, entries, path)
	}
	return snaps.Render(w)
}

// RenderDiff prints the snapshot-versus-live line diff.
func RenderDiff(w io.Writer, r *service.DiffReport, style Style) error {
	p := style.palette()

	fmt.Fprintf(w, "%s snapshot %s (%s)\n", p.bold.Sprint(r.Tier), r.SnapshotID, formatTime(r.CreatedAt))
	if !r.Changed() {
		_, err := fmt.Fprintln(w, "live values match the snapshot")
		return err
	}

	for _, line := range strings.Split(strings.TrimSuffix(r.Text, "\n"), "\n") {
		if line == "" {
			continue
		}
		c := p.dim
		switch line[0] {
		case '+':
			c = p.ok
		case '-':
			c = p.fail
		}
		if _, err := fmt.Fprintln(w, c.Sprint(line)); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\n%d value(s) differ\n", len(r.Keys))
	return nil
}
