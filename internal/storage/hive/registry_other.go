//go:build !windows

package hive

import (
	"runtime"

	"github.com/yndnr/trayctl/internal/core/domain"
)

func openRegistry() (Store, error) {
	return nil, domain.ErrInvalidSession.WithDetails("no per-user registry hive on " + runtime.GOOS + ", use the file backend")
}
