package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/trayctl/internal/cli/config"
	"github.com/yndnr/trayctl/internal/cli/output"
	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/core/service"
	"github.com/yndnr/trayctl/internal/infra/buildinfo"
	"github.com/yndnr/trayctl/internal/infra/hostinfo"
	"github.com/yndnr/trayctl/internal/infra/shell"
	"github.com/yndnr/trayctl/internal/infra/shutdown"
	"github.com/yndnr/trayctl/internal/storage/hive"
	"github.com/yndnr/trayctl/internal/storage/snapshot"
	"github.com/yndnr/trayctl/internal/telemetry/logger"
	"github.com/yndnr/trayctl/internal/telemetry/metric"
)

// env is everything one invocation needs. The store and service are
// opened on first use so that version and help work without a registry.
type env struct {
	opts       *options
	cfg        config.Config
	log        logger.Logger
	format     output.Format
	style      output.Style
	spinner    bool
	diagnostic bool
	metrics    *metric.Registry
	cleanup    *shutdown.Handler

	host      hostinfo.Info
	store     hive.Store
	snapshots *snapshot.Manager
	svc       *service.TrayService
}

// setup builds the env in the App's Before hook.
func setup(c *cli.Context, o *options) error {
	format, err := output.ParseFormat(c.String(flagOutput))
	if err != nil {
		return cli.Exit(err.Error(), domain.ExitGeneral)
	}

	cfg, err := config.Load(config.LoadRequest{Path: c.String(flagConfig)})
	if err != nil {
		return cli.Exit(err.Error(), domain.ExitGeneral)
	}

	diagnostic := c.Bool(flagDiagnostic)
	lc := cfg.Logger(diagnostic)
	lc.Output = o.stderr
	log, err := logger.New(lc)
	if err != nil {
		return cli.Exit(err.Error(), domain.ExitGeneral)
	}
	logger.SetDefault(log)

	runID := ulid.Make().String()
	c.Context = logger.WithRunID(logger.WithLogger(c.Context, log), runID)

	e := &env{
		opts:       o,
		cfg:        cfg,
		log:        logger.L(c.Context),
		format:     format,
		style:      styleFor(o.stdout, format),
		spinner:    styleFor(o.stderr, format).Color,
		diagnostic: diagnostic,
		metrics:    metric.NewRegistry(),
		cleanup:    shutdown.NewHandler(5 * time.Second),
	}
	if path := cfg.Metrics.Textfile; path != "" {
		e.cleanup.OnShutdown(func(context.Context) error {
			if err := e.metrics.WriteTextfile(path); err != nil {
				return fmt.Errorf("write metrics textfile: %w", err)
			}
			return nil
		})
	}

	c.App.Metadata[metadataEnvKey] = e
	e.log.Debug("trayctl starting",
		"version", buildinfo.Version,
		"store_backend", cfg.Store.Backend,
		"snapshot_dir", cfg.Snapshot.Dir,
		"snapshot_format", cfg.Snapshot.Format)
	return nil
}

// teardown runs the cleanup hooks in the App's After hook.
func teardown(c *cli.Context) error {
	e, ok := c.App.Metadata[metadataEnvKey].(*env)
	if !ok {
		return nil
	}
	if err := e.cleanup.Run(c.Context); err != nil {
		e.log.Warn("cleanup", "error", err)
	}
	return nil
}

func getEnv(c *cli.Context) *env {
	e, _ := c.App.Metadata[metadataEnvKey].(*env)
	return e
}

// service opens the store and snapshot manager and returns the dispatcher.
func (e *env) service(ctx context.Context) (*service.TrayService, error) {
	if e.svc != nil {
		return e.svc, nil
	}

	// 1. Host facts recorded in snapshots and used by the build tweak
	e.host = e.opts.host(ctx, e.cfg.Tweaks.OSBuild)
	e.log.Debug("host detected",
		"build", e.host.Build,
		"build_source", e.host.BuildSource,
		"platform", e.host.Platform)

	// 2. Config store
	store := e.opts.store
	if store == nil {
		s, err := hive.Open(e.cfg.Hive(), e.log)
		if err != nil {
			return nil, err
		}
		e.cleanup.OnShutdown(func(context.Context) error { return s.Close() })
		store = s
	}
	e.store = store

	// 3. Snapshots
	snaps, err := snapshot.NewManager(snapshot.Config{
		Dir:         e.cfg.Snapshot.Dir,
		Format:      e.cfg.Snapshot.Format,
		ToolVersion: buildinfo.Version,
		Host:        e.host.Hostname,
		User:        e.host.User,
		OSBuild:     e.host.Build,
	}, store, e.log)
	if err != nil {
		return nil, err
	}
	e.snapshots = snaps
	if err := e.metrics.Register(metric.NewSnapshotCollector(e.tierSamples)); err != nil {
		e.log.Warn("register snapshot collector", "error", err)
	}

	// 4. Shell restarter
	restarter := e.opts.restarter
	if restarter == nil {
		restarter = shell.NewRestarter(e.cfg.Shell(), e.log)
	}
	if e.spinner {
		restarter = &spinnerRestarter{inner: restarter, w: e.opts.stderr}
	}

	svc, err := service.NewTrayService(service.TrayDeps{
		Store:     store,
		Snapshots: snaps,
		Restarter: restarter,
		Metrics:   e.metrics,
		Logger:    e.log,
		OSBuild:   e.host.Build,
	})
	if err != nil {
		return nil, err
	}
	e.svc = svc
	return svc, nil
}

// tierSamples feeds the snapshot collector.
func (e *env) tierSamples() []metric.TierSample {
	var out []metric.TierSample
	for _, tier := range domain.Tiers {
		st := e.snapshots.Inspect(tier)
		s := metric.TierSample{
			Tier:      string(tier),
			Present:   st.State == snapshot.TierPresent,
			Corrupted: st.State == snapshot.TierCorrupted,
		}
		if st.Info != nil {
			s.CreatedAt = st.Info.CreatedAt
		}
		out = append(out, s)
	}
	return out
}

// print writes data to stdout in the selected format.
func (e *env) print(data any) error {
	return output.NewFormatter(e.format, e.style).Format(e.opts.stdout, data)
}

// finish prints the result and converts err into an exit code.
func (e *env) finish(action domain.Action, res *domain.ActionResult, err error) error {
	if res != nil {
		if perr := e.print(res); perr != nil {
			return cli.Exit(perr.Error(), domain.ExitGeneral)
		}
	}
	if err != nil {
		e.log.Error("action failed", "action", action, "code", domain.CodeOf(err), "error", err)
		return cli.Exit(err.Error(), domain.ExitCode(action, err))
	}
	return nil
}

// styleFor enables color only for table output on a terminal.
func styleFor(w io.Writer, format output.Format) output.Style {
	f, ok := w.(*os.File)
	if format != output.FormatTable || !ok {
		return output.Style{}
	}
	return output.DetectStyle(f)
}
