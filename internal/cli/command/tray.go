package command

import (
	"context"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/trayctl/internal/cli/output"
	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/core/service"
	"github.com/yndnr/trayctl/internal/infra/shell"
)

// EnableCommand returns the enable verb.
func EnableCommand() *cli.Command {
	return &cli.Command{
		Name:  string(domain.ActionEnable),
		Usage: "show all notification area icons (EnableAutoTray=0)",
		Flags: pick(flagRestart, flagBackup, flagForce, flagResetIcons, flagShowSystem, flagBuildTweak),
		Action: func(c *cli.Context) error {
			return runAction(c, domain.ActionEnable, func(ctx context.Context, svc *service.TrayService) (*domain.ActionResult, error) {
				return svc.Enable(ctx, &service.EnableRequest{
					SnapshotFirst:   boolFlag(c, flagBackup),
					Force:           boolFlag(c, flagForce),
					ResetIcons:      boolFlag(c, flagResetIcons),
					ShowSystemIcons: boolFlag(c, flagShowSystem),
					BuildTweak:      boolFlag(c, flagBuildTweak),
					RestartExplorer: boolFlag(c, flagRestart),
				})
			})
		},
	}
}

// DisableCommand returns the disable verb.
func DisableCommand() *cli.Command {
	return &cli.Command{
		Name:  string(domain.ActionDisable),
		Usage: "hide inactive notification area icons (EnableAutoTray=1)",
		Flags: pick(flagRestart, flagBackup, flagForce),
		Action: func(c *cli.Context) error {
			return runAction(c, domain.ActionDisable, func(ctx context.Context, svc *service.TrayService) (*domain.ActionResult, error) {
				return svc.Disable(ctx, &service.DisableRequest{
					SnapshotFirst:   boolFlag(c, flagBackup),
					Force:           boolFlag(c, flagForce),
					RestartExplorer: boolFlag(c, flagRestart),
				})
			})
		},
	}
}

// BackupCommand returns the backup verb.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  string(domain.ActionBackup),
		Usage: "write the basic and comprehensive snapshots",
		Flags: pick(flagForce),
		Action: func(c *cli.Context) error {
			return runAction(c, domain.ActionBackup, func(ctx context.Context, svc *service.TrayService) (*domain.ActionResult, error) {
				return svc.Backup(ctx, boolFlag(c, flagForce))
			})
		},
	}
}

// RollbackCommand returns the rollback verb.
func RollbackCommand() *cli.Command {
	return &cli.Command{
		Name:  string(domain.ActionRollback),
		Usage: "restore the most complete snapshot and delete it",
		Flags: pick(flagRestart),
		Action: func(c *cli.Context) error {
			return runAction(c, domain.ActionRollback, func(ctx context.Context, svc *service.TrayService) (*domain.ActionResult, error) {
				return svc.Rollback(ctx, &service.RollbackRequest{
					RestartExplorer: boolFlag(c, flagRestart),
				})
			})
		},
	}
}

type actionFunc func(ctx context.Context, svc *service.TrayService) (*domain.ActionResult, error)

// runAction opens the service, runs fn and reports the result.
func runAction(c *cli.Context, action domain.Action, fn actionFunc) error {
	e := getEnv(c)
	ctx := c.Context

	svc, err := e.service(ctx)
	if err != nil {
		return e.finish(action, nil, err)
	}
	if e.diagnostic {
		e.printDiagnostic()
	}

	res, err := fn(ctx, svc)
	return e.finish(action, res, err)
}

// spinnerRestarter shows a spinner on a terminal while the shell restarts.
type spinnerRestarter struct {
	inner service.Restarter
	w     io.Writer
}

func (s *spinnerRestarter) Restart(ctx context.Context) (*shell.Report, error) {
	sp := output.NewSpinner(s.w, "restarting explorer.exe")
	sp.Start()
	defer sp.Stop()
	return s.inner.Restart(ctx)
}
