package shell

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

type systemTable struct{}

func (systemTable) Processes(ctx context.Context) ([]Proc, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Proc, 0, len(ps))
	for _, p := range ps {
		out = append(out, systemProc{p})
	}
	return out, nil
}

type systemProc struct {
	p *process.Process
}

func (s systemProc) PID() int32 { return s.p.Pid }

func (s systemProc) Name(ctx context.Context) (string, error) {
	return s.p.NameWithContext(ctx)
}

func (s systemProc) Kill(ctx context.Context) error {
	return s.p.KillWithContext(ctx)
}

type execLauncher struct{}

// Launch starts name detached from trayctl; the shell must outlive us.
func (execLauncher) Launch(_ context.Context, name string) error {
	path := name
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("WINDIR"); dir != "" {
			path = filepath.Join(dir, name)
		}
	}
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
