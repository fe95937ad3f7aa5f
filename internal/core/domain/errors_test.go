package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	base := NewDomainError("TC-TEST-1000", "broken")

	assert.Equal(t, "[TC-TEST-1000] broken", base.Error())
	assert.Equal(t, "[TC-TEST-1000] broken: trayctl-basic.json",
		base.WithDetails("trayctl-basic.json").Error())
	assert.Equal(t, "[TC-TEST-1000] broken: trayctl-basic.json: eof",
		base.WithDetails("trayctl-basic.json").WithCause(errors.New("eof")).Error())
}

func TestDomainError_IsByCode(t *testing.T) {
	err := ErrBackupExists.WithDetails("basic").WithCause(errors.New("exists"))

	assert.ErrorIs(t, err, ErrBackupExists)
	assert.ErrorIs(t, fmt.Errorf("backup: %w", err), ErrBackupExists)
	assert.NotErrorIs(t, err, ErrBackupFailed)
	assert.NotErrorIs(t, err, errors.New("[TC-SNAP-4090] backup already exists"))
}

func TestDomainError_CopiesLeaveSentinelAlone(t *testing.T) {
	cause := errors.New("denied by policy")
	err := ErrAccessDenied.WithDetails(`Software\Policies`).WithCause(cause)

	assert.Empty(t, ErrAccessDenied.Details)
	assert.Nil(t, ErrAccessDenied.Cause)
	assert.Equal(t, `Software\Policies`, err.Details)
	assert.Same(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "TC-SNAP-4040", CodeOf(ErrSnapshotNotFound))
	assert.Equal(t, "TC-SNAP-5002", CodeOf(fmt.Errorf("rollback: %w", ErrRollbackFailed.WithCause(ErrAccessDenied))))
	assert.Empty(t, CodeOf(errors.New("plain")))
	assert.Empty(t, CodeOf(nil))
}

func TestIsWarning(t *testing.T) {
	assert.True(t, IsWarning(ErrProcessRestartTimeout.WithDetails("explorer.exe")))
	assert.False(t, IsWarning(ErrProcessRestart))
	assert.False(t, IsWarning(nil))
}

func TestSentinelCodesAreUnique(t *testing.T) {
	all := []*DomainError{
		ErrAccessDenied, ErrUnsupportedKind, ErrStore,
		ErrInvalidSession,
		ErrSnapshotNotFound, ErrBackupExists, ErrSerialization, ErrBackupFailed, ErrRollbackFailed,
		ErrProcessRestartTimeout, ErrProcessRestart,
		ErrInvalidArgument, ErrMissingArgument,
	}
	seen := map[string]bool{}
	for _, e := range all {
		assert.Regexp(t, `^TC-[A-Z]+-\d{4}$`, e.Code)
		assert.False(t, seen[e.Code], "duplicate code %s", e.Code)
		seen[e.Code] = true
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		err    error
		want   int
	}{
		{"success", ActionEnable, nil, ExitOK},
		{"access denied", ActionEnable, ErrAccessDenied.WithDetails("x"), ExitAccessDenied},
		{"no session", ActionStatus, ErrInvalidSession, ExitInvalidSession},
		{"backup exists", ActionBackup, ErrBackupExists, ExitBackupFailed},
		{"backup exists during enable", ActionEnable, ErrBackupExists, ExitBackupFailed},
		{"partial restore", ActionRollback, ErrRollbackFailed, ExitRollbackFailed},
		{"rollback without snapshot", ActionRollback, ErrSnapshotNotFound, ExitRollbackFailed},
		{"rollback corrupt", ActionRollback, ErrSerialization, ExitRollbackFailed},
		{"backup encode", ActionBackup, ErrSerialization, ExitBackupFailed},
		{"diff without snapshot", ActionDiff, ErrSnapshotNotFound, ExitGeneral},
		{"store", ActionDisable, ErrStore, ExitGeneral},
		{"plain", ActionEnable, errors.New("boom"), ExitGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.action, tt.err))
		})
	}
}
