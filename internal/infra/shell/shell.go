// Package shell restarts the desktop shell process so registry changes to
// the notification area take effect immediately.
package shell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/telemetry/logger"
)

const (
	DefaultProcessName  = "explorer.exe"
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxPolls     = 10
)

// Proc is a running process.
type Proc interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	Kill(ctx context.Context) error
}

// ProcessTable enumerates running processes.
type ProcessTable interface {
	Processes(ctx context.Context) ([]Proc, error)
}

// Launcher starts a detached process by executable name.
type Launcher interface {
	Launch(ctx context.Context, name string) error
}

// Config configures the restart poll.
type Config struct {
	ProcessName  string
	PollInterval time.Duration
	MaxPolls     int
}

// Report describes a restart.
type Report struct {
	Killed     int  `json:"killed" yaml:"killed"`
	Exited     bool `json:"exited" yaml:"exited"`
	Relaunched bool `json:"relaunched" yaml:"relaunched"`
	Running    bool `json:"running" yaml:"running"`
}

// Option configures a Restarter.
type Option func(*Restarter)

// WithProcessTable replaces the gopsutil process table.
func WithProcessTable(t ProcessTable) Option {
	return func(r *Restarter) { r.table = t }
}

// WithLauncher replaces the exec launcher.
func WithLauncher(l Launcher) Option {
	return func(r *Restarter) { r.launcher = l }
}

// WithSleep replaces the poll sleep.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Restarter) { r.sleep = fn }
}

// Restarter terminates and relaunches the shell.
type Restarter struct {
	cfg      Config
	table    ProcessTable
	launcher Launcher
	sleep    func(ctx context.Context, d time.Duration) error
	log      logger.Logger
}

// NewRestarter creates a restarter backed by the OS process table.
func NewRestarter(cfg Config, log logger.Logger, opts ...Option) *Restarter {
	if cfg.ProcessName == "" {
		cfg.ProcessName = DefaultProcessName
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	if log == nil {
		log = logger.Default()
	}
	r := &Restarter{
		cfg:      cfg,
		table:    systemTable{},
		launcher: execLauncher{},
		sleep:    sleepContext,
		log:      log.With("component", "shell"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Restart kills every instance of the shell, waits for them to exit, and
// relaunches it if Windows did not already do so. Exceeding the poll bound
// returns domain.ErrProcessRestartTimeout together with the report; callers
// treat it as a warning.
func (r *Restarter) Restart(ctx context.Context) (*Report, error) {
	report := &Report{}

	procs, err := r.find(ctx)
	if err != nil {
		return report, domain.ErrProcessRestart.WithDetails("enumerate processes").WithCause(err)
	}
	killed := make(map[int32]struct{}, len(procs))
	for _, p := range procs {
		if err := p.Kill(ctx); err != nil {
			r.log.Warn("kill shell process", "pid", p.PID(), "error", err)
			continue
		}
		killed[p.PID()] = struct{}{}
	}
	report.Killed = len(killed)
	r.log.Debug("shell terminated", "process", r.cfg.ProcessName, "killed", report.Killed)

	// Wait for the killed PIDs only; winlogon may respawn the shell under a
	// new PID before we get to relaunch it.
	report.Exited = true
	if len(killed) > 0 {
		exited, err := r.poll(ctx, func(ps []Proc) bool {
			for _, p := range ps {
				if _, ok := killed[p.PID()]; ok {
					return false
				}
			}
			return true
		})
		if err != nil {
			return report, err
		}
		report.Exited = exited
		if !exited {
			r.log.Warn("shell did not exit in time", "process", r.cfg.ProcessName)
		}
	}

	running, err := r.count(ctx)
	if err != nil {
		return report, domain.ErrProcessRestart.WithCause(err)
	}
	if running == 0 {
		if err := r.launcher.Launch(ctx, r.cfg.ProcessName); err != nil {
			return report, domain.ErrProcessRestart.WithDetails("launch " + r.cfg.ProcessName).WithCause(err)
		}
		report.Relaunched = true
		started, err := r.poll(ctx, func(ps []Proc) bool { return len(ps) > 0 })
		if err != nil {
			return report, err
		}
		report.Running = started
	} else {
		report.Running = true
	}

	if !report.Exited || !report.Running {
		return report, domain.ErrProcessRestartTimeout.WithDetails(
			fmt.Sprintf("%s after %d polls of %s", r.cfg.ProcessName, r.cfg.MaxPolls, r.cfg.PollInterval))
	}
	r.log.Info("shell restarted", "process", r.cfg.ProcessName, "relaunched", report.Relaunched)
	return report, nil
}

// poll samples the shell processes until done returns true or the bound is
// reached.
func (r *Restarter) poll(ctx context.Context, done func([]Proc) bool) (bool, error) {
	for i := 0; i < r.cfg.MaxPolls; i++ {
		if err := r.sleep(ctx, r.cfg.PollInterval); err != nil {
			return false, err
		}
		ps, err := r.find(ctx)
		if err != nil {
			r.log.Debug("poll processes", "error", err)
			continue
		}
		if done(ps) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Restarter) count(ctx context.Context) (int, error) {
	procs, err := r.find(ctx)
	return len(procs), err
}

func (r *Restarter) find(ctx context.Context) ([]Proc, error) {
	all, err := r.table.Processes(ctx)
	if err != nil {
		return nil, err
	}
	var out []Proc
	for _, p := range all {
		name, err := p.Name(ctx)
		if err != nil {
			// Processes exit while we enumerate.
			continue
		}
		if strings.EqualFold(name, r.cfg.ProcessName) {
			out = append(out, p)
		}
	}
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
