package domain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// ValueKind is the type of a stored value. The numeric values match the
// REG_* constants so they can be handed to the registry API unchanged.
type ValueKind uint32

const (
	// KindNone marks an absent value.
	KindNone ValueKind = 0
	// KindBinary is an opaque byte blob (REG_BINARY).
	KindBinary ValueKind = 3
	// KindDWord is a 32-bit little-endian integer (REG_DWORD).
	KindDWord ValueKind = 4
)

// String returns the registry-style kind name.
func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "NONE"
	case KindBinary:
		return "BINARY"
	case KindDWord:
		return "DWORD"
	default:
		return fmt.Sprintf("KIND(%d)", uint32(k))
	}
}

// ParseValueKind is the inverse of ValueKind.String.
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "":
		return KindNone, nil
	case "BINARY", "REG_BINARY":
		return KindBinary, nil
	case "DWORD", "REG_DWORD":
		return KindDWord, nil
	default:
		return KindNone, ErrUnsupportedKind.WithDetails(s)
	}
}

// Value is a typed value read from or written to the config store.
// The zero Value is the absent sentinel.
type Value struct {
	Kind ValueKind
	Data []byte
}

// Absent returns the "value does not exist" sentinel.
func Absent() Value {
	return Value{}
}

// DWord returns a DWORD value.
func DWord(v uint32) Value {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	return Value{Kind: KindDWord, Data: data}
}

// Binary returns a BINARY value holding a copy of b.
func Binary(b []byte) Value {
	data := make([]byte, len(b))
	copy(data, b)
	return Value{Kind: KindBinary, Data: data}
}

// IsAbsent reports whether v is the absent sentinel.
func (v Value) IsAbsent() bool {
	return v.Kind == KindNone
}

// DWord returns the integer held by a DWORD value.
func (v Value) DWord() (uint32, bool) {
	if v.Kind != KindDWord || len(v.Data) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(v.Data), true
}

// Equal reports whether two values have the same kind and bytes.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	return bytes.Equal(v.Data, o.Data)
}

// Validate checks the data length against the kind.
func (v Value) Validate() error {
	switch v.Kind {
	case KindNone:
		if len(v.Data) != 0 {
			return ErrInvalidArgument.WithDetails("absent value carries data")
		}
	case KindDWord:
		if len(v.Data) != 4 {
			return ErrInvalidArgument.WithDetails(fmt.Sprintf("dword value has %d bytes", len(v.Data)))
		}
	case KindBinary:
	default:
		return ErrUnsupportedKind.WithDetails(v.Kind.String())
	}
	return nil
}

// String renders the value for humans.
func (v Value) String() string {
	switch v.Kind {
	case KindNone:
		return "(absent)"
	case KindDWord:
		n, _ := v.DWord()
		return fmt.Sprintf("0x%08x (%d)", n, n)
	case KindBinary:
		return fmt.Sprintf("binary[%d]", len(v.Data))
	default:
		return v.Kind.String()
	}
}

// ConfigKey names one value in the per-user hive.
type ConfigKey struct {
	// Path is relative to HKCU, backslash separated.
	Path string
	// Name is the value name; empty is the (Default) value.
	Name string
	// Kind is the kind the tool expects to find and write.
	Kind ValueKind
}

// String returns Path\Name.
func (k ConfigKey) String() string {
	if k.Name == "" {
		return k.Path + `\(Default)`
	}
	return k.Path + `\` + k.Name
}

// ID is the case-insensitive identity of the key.
func (k ConfigKey) ID() string {
	return strings.ToLower(NormalizePath(k.Path)) + "\x00" + strings.ToLower(k.Name)
}

// NormalizePath trims separators and collapses duplicate backslashes.
// Forward slashes are accepted as separators.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "/", `\`)
	parts := strings.Split(p, `\`)
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, `\`)
}
