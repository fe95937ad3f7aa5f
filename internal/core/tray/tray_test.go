package tray

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/trayctl/internal/core/domain"
)

type fakeLister struct {
	names []string
	err   error
}

func (f fakeLister) SubKeys(context.Context, string) ([]string, error) {
	return f.names, f.err
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		v    domain.Value
		want State
	}{
		{"absent", domain.Absent(), StateDefault},
		{"zero", domain.DWord(0), StateShowAll},
		{"one", domain.DWord(1), StateAutoHide},
		{"two", domain.DWord(2), StateUnknown},
		{"binary", domain.Binary([]byte{0, 0, 0, 0}), StateUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateOf(tt.v))
		})
	}
}

func TestState_Strings(t *testing.T) {
	assert.Equal(t, "default", StateDefault.String())
	assert.Equal(t, "show-all", StateShowAll.String())
	assert.Equal(t, "auto-hide", StateAutoHide.String())
	assert.Equal(t, "unknown", StateUnknown.String())

	assert.True(t, StateShowAll.IconsVisible())
	assert.False(t, StateDefault.IconsVisible())
	assert.Contains(t, StateDefault.Describe(), "default")
	assert.Contains(t, DescribeValue(domain.DWord(0)), "0x00000000")
}

func TestKeySet(t *testing.T) {
	ctx := context.Background()
	l := fakeLister{names: []string{"111", "222"}}

	basic, err := KeySet(ctx, domain.TierBasic, l)
	require.NoError(t, err)
	assert.Equal(t, []domain.ConfigKey{AutoTray}, basic)

	full, err := KeySet(ctx, domain.TierComprehensive, l)
	require.NoError(t, err)
	assert.Len(t, full, 1+len(SystemIcons)+len(IconStreams)+2)
	assert.Equal(t, AutoTray, full[0])
	assert.Equal(t, `Control Panel\NotifyIconSettings\222`, full[len(full)-1].Path)
	assert.Equal(t, IsPromotedValueName, full[len(full)-1].Name)

	_, err = KeySet(ctx, domain.TierComprehensive, fakeLister{err: errors.New("boom")})
	assert.Error(t, err)
}
