package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/core/service"
	"github.com/yndnr/trayctl/internal/infra/buildinfo"
	"github.com/yndnr/trayctl/internal/infra/hostinfo"
	"github.com/yndnr/trayctl/internal/storage/hive"
)

// Flag names.
const (
	flagRestart    = "restart-explorer"
	flagBackup     = "backup-registry"
	flagForce      = "force"
	flagDiagnostic = "diagnostic"
	flagResetIcons = "reset-icons"
	flagShowSystem = "show-system-icons"
	flagBuildTweak = "build-tweak"
	flagConfig     = "config"
	flagOutput     = "output"
)

const (
	appName        = "trayctl"
	metadataEnvKey = "trayctl.env"
)

// Option customizes the App, mostly for tests.
type Option func(*options)

type options struct {
	stdout    io.Writer
	stderr    io.Writer
	store     hive.Store
	restarter service.Restarter
	host      func(ctx context.Context, buildOverride int) hostinfo.Info
}

// WithWriters redirects command output.
func WithWriters(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithStore replaces the configured store backend. The App does not
// close an injected store.
func WithStore(s hive.Store) Option {
	return func(o *options) { o.store = s }
}

// WithRestarter replaces the explorer.exe restarter.
func WithRestarter(r service.Restarter) Option {
	return func(o *options) { o.restarter = r }
}

// WithHostInfo replaces host detection.
func WithHostInfo(fn func(ctx context.Context, buildOverride int) hostinfo.Info) Option {
	return func(o *options) { o.host = fn }
}

// App creates the CLI application.
func App(opts ...Option) *cli.App {
	o := &options{
		stdout: os.Stdout,
		stderr: os.Stderr,
		host:   hostinfo.Detect,
	}
	for _, opt := range opts {
		opt(o)
	}

	app := &cli.App{
		Name:      appName,
		Usage:     "show or hide inactive notification area icons",
		UsageText: appName + " [flags] enable|disable|status|backup|rollback|diff|version [flags]",
		Version:   buildinfo.String(),
		Writer:    o.stdout,
		ErrWriter: o.stderr,
		Metadata:  map[string]any{},
		Flags:     append(globalFlags(), actionFlags()...),
		Commands: []*cli.Command{
			EnableCommand(),
			DisableCommand(),
			StatusCommand(),
			BackupCommand(),
			RollbackCommand(),
			DiffCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			return setup(c, o)
		},
		After: teardown,
		Action: func(c *cli.Context) error {
			if c.Args().Present() {
				_, err := domain.ParseAction(c.Args().First())
				return err
			}
			return cli.ShowAppHelp(c)
		},
		// Exit codes are handled by Run so tests never hit os.Exit.
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return app
}

// globalFlags returns the flags that configure the invocation itself.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "configuration file (YAML)",
			EnvVars: []string{"TRAYCTL_CONFIG"},
		},
		&cli.StringFlag{
			Name:    flagOutput,
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    flagDiagnostic,
			Aliases: []string{"d"},
			Usage:   "debug logging and a host/snapshot report on stderr",
		},
	}
}

// actionFlags are accepted both before the verb and by the verbs that
// use them.
func actionFlags() []cli.Flag {
	return []cli.Flag{
		restartFlag(),
		&cli.BoolFlag{
			Name:    flagBackup,
			Aliases: []string{"b", "snapshot-first"},
			Usage:   "capture a snapshot before changing anything",
		},
		forceFlag(),
		&cli.BoolFlag{
			Name:  flagResetIcons,
			Usage: "mark every registered icon as promoted (Windows 11)",
		},
		&cli.BoolFlag{
			Name:  flagShowSystem,
			Usage: "clear policies that hide system icons",
		},
		&cli.BoolFlag{
			Name:  flagBuildTweak,
			Usage: "clear the icon cache streams on builds before Windows 11",
		},
	}
}

func restartFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    flagRestart,
		Aliases: []string{"r", "force-apply"},
		Usage:   "restart explorer.exe so the change applies immediately",
	}
}

func forceFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    flagForce,
		Aliases: []string{"f", "overwrite"},
		Usage:   "overwrite an existing snapshot",
	}
}

// pick returns the action flags a verb accepts after its name.
func pick(names ...string) []cli.Flag {
	var out []cli.Flag
	for _, f := range actionFlags() {
		for _, n := range names {
			if f.Names()[0] == n {
				out = append(out, f)
			}
		}
	}
	return out
}

// boolFlag reports a bool flag set at any level of the command line.
func boolFlag(c *cli.Context, name string) bool {
	for _, cc := range c.Lineage() {
		if cc.IsSet(name) {
			return cc.Bool(name)
		}
	}
	return false
}

// Run executes the CLI and returns the process exit code.
func Run(ctx context.Context, args []string, opts ...Option) int {
	app := App(opts...)
	err := app.RunContext(ctx, normalizeArgs(args))
	if err == nil {
		return domain.ExitOK
	}

	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := ec.Error(); msg != "" {
			fmt.Fprintln(app.ErrWriter, "error: "+msg)
		}
		return ec.ExitCode()
	}
	fmt.Fprintln(app.ErrWriter, "error: "+err.Error())
	return domain.ExitCode("", err)
}

// valueFlags take a separate argument.
var valueFlags = map[string]bool{
	"-c": true, "--config": true, "-config": true,
	"-o": true, "--output": true, "-output": true,
}

// normalizeArgs lower-cases the verb so "trayctl Enable" works.
func normalizeArgs(args []string) []string {
	out := append([]string(nil), args...)
	for i := 1; i < len(out); i++ {
		a := out[i]
		if a == "--" {
			return out
		}
		if strings.HasPrefix(a, "-") {
			if valueFlags[a] {
				i++
			}
			continue
		}
		if _, err := domain.ParseAction(a); err == nil || strings.EqualFold(a, "version") {
			out[i] = strings.ToLower(a)
		}
		return out
	}
	return out
}
