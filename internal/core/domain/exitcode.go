package domain

import "errors"

// Process exit codes reported by the trayctl binary.
const (
	ExitOK             = 0
	ExitGeneral        = 1
	ExitAccessDenied   = 2
	ExitInvalidSession = 3
	ExitRollbackFailed = 5
	ExitBackupFailed   = 7
)

// ExitCode maps an error returned by an action to the process exit code.
// The action name decides how snapshot errors are classified: a missing or
// corrupt snapshot is a rollback failure during rollback and a backup failure
// during backup.
func ExitCode(action Action, err error) int {
	if err == nil {
		return ExitOK
	}

	switch {
	case errors.Is(err, ErrAccessDenied):
		return ExitAccessDenied
	case errors.Is(err, ErrInvalidSession):
		return ExitInvalidSession
	case errors.Is(err, ErrRollbackFailed):
		return ExitRollbackFailed
	case errors.Is(err, ErrBackupExists), errors.Is(err, ErrBackupFailed):
		return ExitBackupFailed
	}

	if errors.Is(err, ErrSnapshotNotFound) || errors.Is(err, ErrSerialization) {
		switch action {
		case ActionRollback:
			return ExitRollbackFailed
		case ActionBackup:
			return ExitBackupFailed
		}
	}

	return ExitGeneral
}
