package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValue_AbsentIsZero(t *testing.T) {
	assert.True(t, Absent().IsAbsent())
	assert.True(t, Value{}.IsAbsent())
	assert.False(t, DWord(0).IsAbsent(), "explicit zero is not absent")
	assert.Equal(t, "(absent)", Absent().String())
}

func TestValue_DWordRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Uint32().Draw(t, "n")
		v := DWord(n)

		got, ok := v.DWord()
		if !ok || got != n {
			t.Fatalf("DWord(%d).DWord() = %d, %v", n, got, ok)
		}
		if err := v.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
}

func TestValue_BinaryCopiesInput(t *testing.T) {
	in := []byte{1, 2, 3}
	v := Binary(in)
	in[0] = 9

	assert.Equal(t, []byte{1, 2, 3}, v.Data)
	_, ok := v.DWord()
	assert.False(t, ok)
}

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same dword", DWord(1), DWord(1), true},
		{"different dword", DWord(1), DWord(0), false},
		{"absent vs zero", Absent(), DWord(0), false},
		{"both absent", Absent(), Value{}, true},
		{"dword vs binary same bytes", DWord(1), Binary([]byte{1, 0, 0, 0}), false},
		{"binary", Binary([]byte{0xde, 0xad}), Binary([]byte{0xde, 0xad}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestValue_Validate(t *testing.T) {
	assert.NoError(t, Absent().Validate())
	assert.NoError(t, Binary(nil).Validate())
	assert.ErrorIs(t, Value{Kind: KindDWord, Data: []byte{1}}.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, Value{Kind: KindNone, Data: []byte{1}}.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, Value{Kind: 7}.Validate(), ErrUnsupportedKind)
}

func TestParseValueKind(t *testing.T) {
	for _, k := range []ValueKind{KindNone, KindBinary, KindDWord} {
		got, err := ParseValueKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseValueKind("reg_dword")
	require.NoError(t, err)
	assert.Equal(t, KindDWord, got)

	_, err = ParseValueKind("REG_SZ")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestConfigKey_IDIsCaseInsensitive(t *testing.T) {
	a := ConfigKey{Path: `Software\Microsoft\Explorer`, Name: "EnableAutoTray"}
	b := ConfigKey{Path: `software\microsoft\EXPLORER\`, Name: "enableautotray"}
	c := ConfigKey{Path: `Software/Microsoft/Explorer`, Name: "EnableAutoTray"}

	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, a.ID(), c.ID())
	assert.Equal(t, `Software\Microsoft\Explorer\EnableAutoTray`, a.String())
	assert.Equal(t, `X\(Default)`, ConfigKey{Path: "X"}.String())
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		`a\b\c`:      `a\b\c`,
		`\a\\b\c\`:   `a\b\c`,
		`a/b/c`:      `a\b\c`,
		``:           ``,
		`\\`:         ``,
		`Control Panel\NotifyIconSettings`: `Control Panel\NotifyIconSettings`,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), "input %q", in)
	}
}

func TestParseAction(t *testing.T) {
	for _, in := range []string{"Enable", "enable", " ENABLE "} {
		a, err := ParseAction(in)
		require.NoError(t, err)
		assert.Equal(t, ActionEnable, a)
	}
	_, err := ParseAction("Toggle")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		action Action
		err    error
		want   int
	}{
		{ActionEnable, nil, ExitOK},
		{ActionEnable, ErrAccessDenied.WithDetails("EnableAutoTray"), ExitAccessDenied},
		{ActionStatus, ErrInvalidSession, ExitInvalidSession},
		{ActionRollback, ErrSnapshotNotFound, ExitRollbackFailed},
		{ActionRollback, ErrSerialization, ExitRollbackFailed},
		{ActionRollback, ErrRollbackFailed, ExitRollbackFailed},
		{ActionBackup, ErrBackupExists, ExitBackupFailed},
		{ActionBackup, ErrSerialization, ExitBackupFailed},
		{ActionEnable, ErrBackupFailed, ExitBackupFailed},
		{ActionDiff, ErrSnapshotNotFound, ExitGeneral},
		{ActionEnable, fmt.Errorf("boom"), ExitGeneral},
		{ActionEnable, fmt.Errorf("write: %w", ErrAccessDenied), ExitAccessDenied},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.action, tt.err), func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.action, tt.err))
		})
	}
}
