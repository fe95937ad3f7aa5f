package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/yndnr/trayctl/internal/core/domain"
)

// Format names accepted by NewCodec.
const (
	FormatJSON = "json"
	FormatREG  = "reg"
)

const (
	schemaName    = "trayctl-snapshot"
	schemaVersion = 1
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec serializes snapshots to a file format.
type Codec interface {
	// Name is the format name ("json", "reg").
	Name() string
	// Ext is the file extension including the dot.
	Ext() string
	Encode(s *domain.Snapshot) ([]byte, error)
	Decode(data []byte) (*domain.Snapshot, error)
}

// NewCodec returns the codec for format.
func NewCodec(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		return jsonCodec{}, nil
	case FormatREG:
		return regCodec{}, nil
	default:
		return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("unknown snapshot format %q", format))
	}
}

// codecs lists every known codec; the manager probes all of them so a
// snapshot written before a format change is still found.
func codecs() []Codec {
	return []Codec{jsonCodec{}, regCodec{}}
}

// fileEntry is the stable on-disk shape of one snapshot entry.
type fileEntry struct {
	Path   string  `json:"path"`
	Name   string  `json:"name"`
	Kind   string  `json:"kind"`
	Absent bool    `json:"absent,omitempty"`
	DWord  *uint32 `json:"dword,omitempty"`
	Data   []byte  `json:"data,omitempty"`
}

func toFileEntry(e domain.Entry) fileEntry {
	fe := fileEntry{
		Path: domain.NormalizePath(e.Key.Path),
		Name: e.Key.Name,
		Kind: e.Key.Kind.String(),
	}
	switch {
	case e.Value.IsAbsent():
		fe.Absent = true
	case e.Value.Kind == domain.KindDWord:
		n, _ := e.Value.DWord()
		fe.DWord = &n
		fe.Kind = domain.KindDWord.String()
	default:
		fe.Data = append([]byte{}, e.Value.Data...)
		fe.Kind = e.Value.Kind.String()
	}
	return fe
}

func (fe fileEntry) toDomain() (domain.Entry, error) {
	kind, err := domain.ParseValueKind(fe.Kind)
	if err != nil {
		return domain.Entry{}, err
	}
	e := domain.Entry{Key: domain.ConfigKey{Path: fe.Path, Name: fe.Name, Kind: kind}}

	switch {
	case fe.Absent:
		e.Value = domain.Absent()
	case kind == domain.KindDWord:
		if fe.DWord == nil {
			return domain.Entry{}, fmt.Errorf("entry %s: dword kind without dword field", e.Key)
		}
		e.Value = domain.DWord(*fe.DWord)
	case kind == domain.KindBinary:
		e.Value = domain.Binary(fe.Data)
	default:
		return domain.Entry{}, fmt.Errorf("entry %s: present value with kind %s", e.Key, kind)
	}
	return e, nil
}

// entriesChecksum hashes the canonical JSON form of the entries. Both
// codecs record it so a truncated or hand-edited file is detected.
func entriesChecksum(entries []domain.Entry) (string, error) {
	fes := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		fes = append(fes, toFileEntry(e))
	}
	b, err := json.Marshal(fes)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// toUTF8 strips a UTF-8 BOM and converts UTF-16 input (as written by
// regedit and Windows PowerShell) to UTF-8.
func toUTF8(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func serializationError(format string, cause error) error {
	return domain.ErrSerialization.WithDetails(format).WithCause(cause)
}
