package command

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/trayctl/internal/cli/output"
	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/infra/buildinfo"
)

// StatusCommand returns the status verb.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  string(domain.ActionStatus),
		Usage: "show the current setting and snapshot state",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			svc, err := e.service(c.Context)
			if err != nil {
				return e.finish(domain.ActionStatus, nil, err)
			}
			if e.diagnostic {
				e.printDiagnostic()
			}

			report, err := svc.Status(c.Context)
			if err != nil {
				return e.finish(domain.ActionStatus, nil, err)
			}
			return e.finish(domain.ActionStatus, nil, e.print(report))
		},
	}
}

// DiffCommand returns the diff verb.
func DiffCommand() *cli.Command {
	return &cli.Command{
		Name:  string(domain.ActionDiff),
		Usage: "compare the snapshot rollback would restore with live values",
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			svc, err := e.service(c.Context)
			if err != nil {
				return e.finish(domain.ActionDiff, nil, err)
			}
			if e.diagnostic {
				e.printDiagnostic()
			}

			report, err := svc.Diff(c.Context)
			if err != nil {
				return e.finish(domain.ActionDiff, nil, err)
			}
			return e.finish(domain.ActionDiff, nil, e.print(report))
		},
	}
}

// VersionCommand returns the version verb.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print build information",
		Action: func(c *cli.Context) error {
			return getEnv(c).print(buildinfo.Get())
		},
	}
}

// diagnostic is the --diagnostic report.
type diagnostic struct {
	Version        string `json:"version"`
	Host           string `json:"host"`
	Platform       string `json:"platform"`
	Build          string `json:"build"`
	BuildSource    string `json:"build_source"`
	Backend        string `json:"backend"`
	SnapshotFormat string `json:"snapshot_format"`
	Comprehensive  string `json:"comprehensive"`
	Basic          string `json:"basic"`
}

// printDiagnostic writes host and snapshot facts to stderr as a table.
func (e *env) printDiagnostic() {
	build := "unknown"
	if e.host.Build > 0 {
		build = strconv.Itoa(e.host.Build)
	}
	d := diagnostic{
		Version:        buildinfo.String(),
		Host:           e.host.Hostname,
		Platform:       e.host.Platform + " " + e.host.PlatformVersion,
		Build:          build,
		BuildSource:    e.host.BuildSource,
		Backend:        e.cfg.Store.Backend,
		SnapshotFormat: e.cfg.Snapshot.Format,
		Comprehensive:  e.tierLine(domain.TierComprehensive),
		Basic:          e.tierLine(domain.TierBasic),
	}
	if err := (&output.TableFormatter{}).Format(e.opts.stderr, d); err != nil {
		e.log.Warn("diagnostic report", "error", err)
	}
}

func (e *env) tierLine(tier domain.Tier) string {
	st := e.snapshots.Inspect(tier)
	if st.Info != nil {
		return string(st.State) + " " + st.Info.Path
	}
	if st.Reason != "" {
		return string(st.State) + ": " + st.Reason
	}
	return string(st.State) + " " + e.snapshots.Path(tier)
}
