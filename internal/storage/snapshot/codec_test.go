package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/yndnr/trayctl/internal/core/domain"
)

func sampleSnapshot() *domain.Snapshot {
	s := &domain.Snapshot{
		ID:          "tcsn-01J0000000000000000000000",
		Tier:        domain.TierComprehensive,
		CreatedAt:   time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		ToolVersion: "1.2.3",
		Host:        "desk-01",
		User:        "alice",
		OSBuild:     22631,
		Entries: []domain.Entry{
			{Key: domain.ConfigKey{Path: `Software\Microsoft\Windows\CurrentVersion\Explorer`, Name: "EnableAutoTray", Kind: domain.KindDWord}, Value: domain.Absent()},
			{Key: domain.ConfigKey{Path: `Software\Microsoft\Windows\CurrentVersion\Policies\Explorer`, Name: "HideClock", Kind: domain.KindDWord}, Value: domain.DWord(1)},
			{Key: domain.ConfigKey{Path: `Software\Classes\Local Settings\TrayNotify`, Name: "IconStreams", Kind: domain.KindBinary}, Value: domain.Binary(bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 40))},
			{Key: domain.ConfigKey{Path: `Control Panel\Quoted`, Name: `we"ird\name`, Kind: domain.KindDWord}, Value: domain.DWord(0xffffffff)},
			{Key: domain.ConfigKey{Path: `Control Panel\Quoted`, Name: "", Kind: domain.KindBinary}, Value: domain.Binary(nil)},
		},
	}
	s.SortEntries()
	return s
}

func assertSameSnapshot(t *testing.T, want, got *domain.Snapshot) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Tier, got.Tier)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
	assert.Equal(t, want.ToolVersion, got.ToolVersion)
	assert.Equal(t, want.Host, got.Host)
	assert.Equal(t, want.User, got.User)
	assert.Equal(t, want.OSBuild, got.OSBuild)
	require.Len(t, got.Entries, len(want.Entries))
	for i := range want.Entries {
		w, g := want.Entries[i], got.Entries[i]
		assert.Equal(t, w.Key.ID(), g.Key.ID(), "entry %d key", i)
		assert.True(t, w.Value.Equal(g.Value), "entry %d: %s != %s", i, w.Value, g.Value)
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	for _, c := range codecs() {
		t.Run(c.Name(), func(t *testing.T) {
			want := sampleSnapshot()
			data, err := c.Encode(want)
			require.NoError(t, err)

			got, err := c.Decode(data)
			require.NoError(t, err)
			assertSameSnapshot(t, want, got)

			again, err := c.Encode(got)
			require.NoError(t, err)
			assert.Equal(t, string(data), string(again), "encoding must be deterministic")
		})
	}
}

func TestCodecs_RoundTripProperty(t *testing.T) {
	segment := rapid.StringMatching(`[A-Za-z0-9 _.]{1,12}`)
	name := rapid.StringMatching(`[A-Za-z0-9"\\ ]{0,16}`)

	for _, c := range codecs() {
		t.Run(c.Name(), func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				s := &domain.Snapshot{
					ID:        "tcsn-x",
					Tier:      domain.TierBasic,
					CreatedAt: time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "ts"), 0).UTC(),
				}
				seen := map[string]bool{}
				n := rapid.IntRange(0, 8).Draw(t, "n")
				for i := 0; i < n; i++ {
					key := domain.ConfigKey{
						Path: segment.Draw(t, "p1") + `\` + segment.Draw(t, "p2"),
						Name: name.Draw(t, "name"),
					}
					if seen[key.ID()] {
						continue
					}
					seen[key.ID()] = true

					var v domain.Value
					switch rapid.IntRange(0, 2).Draw(t, "kind") {
					case 0:
						key.Kind = domain.KindDWord
					case 1:
						key.Kind = domain.KindDWord
						v = domain.DWord(rapid.Uint32().Draw(t, "dword"))
					default:
						key.Kind = domain.KindBinary
						v = domain.Binary(rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "bin"))
					}
					s.Entries = append(s.Entries, domain.Entry{Key: key, Value: v})
				}
				s.SortEntries()

				data, err := c.Encode(s)
				if err != nil {
					t.Fatalf("encode: %v", err)
				}
				got, err := c.Decode(data)
				if err != nil {
					t.Fatalf("decode: %v\n%s", err, data)
				}
				if len(got.Entries) != len(s.Entries) {
					t.Fatalf("entries = %d, want %d", len(got.Entries), len(s.Entries))
				}
				for i := range s.Entries {
					if got.Entries[i].Key.ID() != s.Entries[i].Key.ID() || !got.Entries[i].Value.Equal(s.Entries[i].Value) {
						t.Fatalf("entry %d: got %v=%s want %v=%s", i,
							got.Entries[i].Key, got.Entries[i].Value, s.Entries[i].Key, s.Entries[i].Value)
					}
				}
			})
		})
	}
}

func TestCodecs_Corrupt(t *testing.T) {
	for _, c := range codecs() {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Encode(sampleSnapshot())
			require.NoError(t, err)

			cases := map[string][]byte{
				"empty":     {},
				"garbage":   []byte("\x00\x01not a snapshot"),
				"truncated": data[:len(data)/2],
			}
			for name, in := range cases {
				_, err := c.Decode(in)
				assert.ErrorIs(t, err, domain.ErrSerialization, name)
			}
		})
	}
}

func TestJSONCodec_ChecksumMismatch(t *testing.T) {
	data, err := jsonCodec{}.Encode(sampleSnapshot())
	require.NoError(t, err)

	tampered := bytes.Replace(data, []byte(`"dword": 1`), []byte(`"dword": 0`), 1)
	require.NotEqual(t, data, tampered)

	_, err = jsonCodec{}.Decode(tampered)
	assert.ErrorIs(t, err, domain.ErrSerialization)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestJSONCodec_RejectsForeignDocument(t *testing.T) {
	_, err := jsonCodec{}.Decode([]byte(`{"format":"other","version":1}`))
	assert.ErrorIs(t, err, domain.ErrSerialization)

	_, err = jsonCodec{}.Decode([]byte(`{"format":"trayctl-snapshot","version":99}`))
	assert.ErrorIs(t, err, domain.ErrSerialization)
}

func TestREGCodec_Layout(t *testing.T) {
	data, err := regCodec{}.Encode(sampleSnapshot())
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "Windows Registry Editor Version 5.00\r\n"))
	assert.Contains(t, text, "; trayctl-snapshot version=1\r\n")
	assert.Contains(t, text, `[HKEY_CURRENT_USER\Software\Microsoft\Windows\CurrentVersion\Explorer]`)
	assert.Contains(t, text, "; kind=DWORD\r\n\"EnableAutoTray\"=-\r\n")
	assert.Contains(t, text, `"HideClock"=dword:00000001`)
	assert.Contains(t, text, `"we\"ird\\name"=dword:ffffffff`)
	assert.Contains(t, text, "@=hex:\r\n")
	assert.Contains(t, text, "\\\r\n  ", "long binary values wrap")
}

func TestREGCodec_AcceptsUTF16(t *testing.T) {
	data, err := regCodec{}.Encode(sampleSnapshot())
	require.NoError(t, err)

	// regedit exports UTF-16LE with a BOM.
	units := utf16.Encode([]rune(string(data)))
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xfe})
	for _, u := range units {
		_ = binary.Write(&buf, binary.LittleEndian, u)
	}

	got, err := regCodec{}.Decode(buf.Bytes())
	require.NoError(t, err)
	assertSameSnapshot(t, sampleSnapshot(), got)
}

func TestREGCodec_RejectsPlainExport(t *testing.T) {
	plain := "Windows Registry Editor Version 5.00\r\n\r\n[HKEY_CURRENT_USER\\Software\\X]\r\n\"A\"=dword:00000001\r\n"
	_, err := regCodec{}.Decode([]byte(plain))
	assert.ErrorIs(t, err, domain.ErrSerialization)

	foreign := "Windows Registry Editor Version 5.00\r\n; trayctl-snapshot version=1\r\n[HKEY_LOCAL_MACHINE\\Software]\r\n"
	_, err = regCodec{}.Decode([]byte(foreign))
	assert.ErrorIs(t, err, domain.ErrSerialization)
}

func TestNewCodec(t *testing.T) {
	c, err := NewCodec("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, c.Name())

	c, err = NewCodec("REG")
	require.NoError(t, err)
	assert.Equal(t, ".reg", c.Ext())

	_, err = NewCodec("xml")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
