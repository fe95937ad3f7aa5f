package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/core/service"
	"github.com/yndnr/trayctl/internal/storage/snapshot"
)

func TestRenderResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderResult(&buf, sampleResult(), Style{}))

	assert.Equal(t, "[ok] enable: EnableAutoTray set to 0\n"+
		"  HKCU\\Software\\X\\EnableAutoTray: (absent) -> 0x00000000 (0)\n"+
		"  warning: shell restart: timed out\n", buf.String())
}

func TestRenderResult_FailedColored(t *testing.T) {
	r := domain.NewResult(domain.ActionRollback, "")
	r.Success = false
	r.Description = "no snapshot"

	var buf bytes.Buffer
	require.NoError(t, RenderResult(&buf, r, Style{Color: true}))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "[failed]")
	assert.Contains(t, buf.String(), "rollback: no snapshot")
}

func TestRenderStatus(t *testing.T) {
	created := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	r := &service.StatusReport{
		Value:       "(absent)",
		State:       "default",
		Description: "not set: system default (auto-hide inactive icons)",
		Snapshots: []snapshot.TierStatus{
			{Tier: domain.TierComprehensive, State: snapshot.TierPresent, Info: &snapshot.Info{
				CreatedAt: created, Entries: 9, Path: `C:\Temp\trayctl-comprehensive.json`,
			}},
			{Tier: domain.TierBasic, State: snapshot.TierCorrupted, Reason: "checksum mismatch"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderStatus(&buf, r, Style{}))
	out := buf.String()

	assert.Contains(t, out, "EnableAutoTray")
	assert.Contains(t, out, "(absent)")
	assert.Regexp(t, `Windows build +unknown`, out)
	assert.Contains(t, out, "SNAPSHOT")
	assert.Contains(t, out, `trayctl-comprehensive.json`)
	assert.Contains(t, out, "corrupted")
	assert.Contains(t, out, "checksum mismatch")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderDiff(t *testing.T) {
	r := &service.DiffReport{
		Tier:       domain.TierBasic,
		SnapshotID: "tcsn-1",
		Keys:       []service.KeyDiff{{Key: "k", Snapshot: "(absent)", Live: "0x00000000 (0)"}},
		Text:       " [HKEY_CURRENT_USER\\X]\n-; kind=DWORD\n-\"EnableAutoTray\"=-\n+\"EnableAutoTray\"=dword:00000000\n",
	}

	var buf bytes.Buffer
	require.NoError(t, RenderDiff(&buf, r, Style{}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "basic snapshot tcsn-1 (-)\n"), out)
	assert.Contains(t, out, "+\"EnableAutoTray\"=dword:00000000\n")
	assert.Contains(t, out, "1 value(s) differ")

	buf.Reset()
	r.Keys = nil
	require.NoError(t, RenderDiff(&buf, r, Style{}))
	assert.Contains(t, buf.String(), "live values match the snapshot")
}
