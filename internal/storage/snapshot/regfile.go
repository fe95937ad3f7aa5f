package snapshot

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/trayctl/internal/core/domain"
)

// REG export layout:
//
//	Windows Registry Editor Version 5.00
//
//	; trayctl-snapshot version=1
//	; id=tcsn-...
//	; tier=comprehensive
//	; ...
//
//	[HKEY_CURRENT_USER\Software\...\Explorer]
//	"EnableAutoTray"=dword:00000000
//	; kind=DWORD
//	"HideClock"=-
//
// Absent values use the "=-" delete syntax so importing the file with
// regedit performs the same restore as trayctl. The "; kind=" comment
// carries the expected kind of an absent value.
const (
	regHeader   = "Windows Registry Editor Version 5.00"
	regRoot     = "HKEY_CURRENT_USER"
	regMetaMark = "; " + schemaName
	regWrapAt   = 76
)

type regCodec struct{}

func (regCodec) Name() string { return FormatREG }
func (regCodec) Ext() string  { return ".reg" }

func (regCodec) Encode(s *domain.Snapshot) ([]byte, error) {
	sum, err := entriesChecksum(s.Entries)
	if err != nil {
		return nil, serializationError(FormatREG, err)
	}

	var b bytes.Buffer
	b.WriteString(regHeader + "\r\n\r\n")
	fmt.Fprintf(&b, "%s version=%d\r\n", regMetaMark, schemaVersion)
	meta := [][2]string{
		{"id", s.ID},
		{"tier", string(s.Tier)},
		{"created_at", formatTime(s.CreatedAt)},
		{"tool_version", s.ToolVersion},
		{"host", s.Host},
		{"user", s.User},
		{"os_build", strconv.Itoa(s.OSBuild)},
		{"checksum", sum},
	}
	for _, kv := range meta {
		fmt.Fprintf(&b, "; %s=%s\r\n", kv[0], kv[1])
	}

	if err := writeRegEntries(&b, s.Entries, "\r\n"); err != nil {
		return nil, serializationError(FormatREG, err)
	}
	b.WriteString("\r\n")
	return b.Bytes(), nil
}

// RenderEntries renders entries as REG sections with "\n" line endings,
// without the file header or metadata. Used to diff snapshots.
func RenderEntries(entries []domain.Entry) (string, error) {
	var b bytes.Buffer
	if err := writeRegEntries(&b, entries, "\n"); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeRegEntries(b *bytes.Buffer, entries []domain.Entry, eol string) error {
	current := ""
	for _, e := range entries {
		path := domain.NormalizePath(e.Key.Path)
		if path != current {
			fmt.Fprintf(b, "%s[%s\\%s]%s", eol, regRoot, path, eol)
			current = path
		}
		name := regName(e.Key.Name)
		switch {
		case e.Value.IsAbsent():
			fmt.Fprintf(b, "; kind=%s%s", e.Key.Kind, eol)
			fmt.Fprintf(b, "%s=-%s", name, eol)
		case e.Value.Kind == domain.KindDWord:
			n, _ := e.Value.DWord()
			fmt.Fprintf(b, "%s=dword:%08x%s", name, n, eol)
		case e.Value.Kind == domain.KindBinary:
			b.WriteString(regHexLine(name+"=hex:", e.Value.Data, eol))
		default:
			return domain.ErrUnsupportedKind.WithDetails(e.Key.String())
		}
	}
	return nil
}

func (regCodec) Decode(data []byte) (*domain.Snapshot, error) {
	data, err := toUTF8(data)
	if err != nil {
		return nil, serializationError(FormatREG, err)
	}

	lines, err := regLines(data)
	if err != nil {
		return nil, serializationError(FormatREG, err)
	}
	if len(lines) == 0 || lines[0] != regHeader {
		return nil, serializationError(FormatREG, fmt.Errorf("missing %q header", regHeader))
	}

	s := &domain.Snapshot{}
	meta := map[string]string{}
	sawMark := false
	currentPath := ""
	pendingKind := domain.KindNone

	for i, line := range lines[1:] {
		lineNo := i + 2
		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, regMetaMark+" "):
			sawMark = true
			v := strings.TrimPrefix(line, regMetaMark+" ")
			if v != fmt.Sprintf("version=%d", schemaVersion) {
				return nil, serializationError(FormatREG, fmt.Errorf("line %d: unsupported %s", lineNo, v))
			}

		case strings.HasPrefix(line, "; kind="):
			k, err := domain.ParseValueKind(strings.TrimPrefix(line, "; kind="))
			if err != nil {
				return nil, serializationError(FormatREG, fmt.Errorf("line %d: %w", lineNo, err))
			}
			pendingKind = k

		case strings.HasPrefix(line, ";"):
			if k, v, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, ";")), "="); ok {
				meta[k] = v
			}

		case strings.HasPrefix(line, "["):
			if !strings.HasSuffix(line, "]") {
				return nil, serializationError(FormatREG, fmt.Errorf("line %d: unterminated key", lineNo))
			}
			full := line[1 : len(line)-1]
			rest, ok := cutFold(full, regRoot+`\`)
			if !ok {
				return nil, serializationError(FormatREG, fmt.Errorf("line %d: key outside %s", lineNo, regRoot))
			}
			currentPath = domain.NormalizePath(rest)

		default:
			if currentPath == "" {
				return nil, serializationError(FormatREG, fmt.Errorf("line %d: value before any key", lineNo))
			}
			e, err := parseRegValue(currentPath, line, pendingKind)
			if err != nil {
				return nil, serializationError(FormatREG, fmt.Errorf("line %d: %w", lineNo, err))
			}
			pendingKind = domain.KindNone
			s.Entries = append(s.Entries, e)
		}
	}

	if !sawMark {
		return nil, serializationError(FormatREG, fmt.Errorf("not a %s file", schemaName))
	}
	if err := applyRegMeta(s, meta); err != nil {
		return nil, serializationError(FormatREG, err)
	}
	if err := verifyChecksum(s.Entries, meta["checksum"]); err != nil {
		return nil, serializationError(FormatREG, err)
	}
	if err := s.Validate(); err != nil {
		return nil, serializationError(FormatREG, err)
	}
	return s, nil
}

func applyRegMeta(s *domain.Snapshot, meta map[string]string) error {
	tier, err := domain.ParseTier(meta["tier"])
	if err != nil {
		return err
	}
	created, err := parseTime(meta["created_at"])
	if err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	build := 0
	if v := meta["os_build"]; v != "" {
		if build, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("os_build: %w", err)
		}
	}
	s.ID = meta["id"]
	s.Tier = tier
	s.CreatedAt = created
	s.ToolVersion = meta["tool_version"]
	s.Host = meta["host"]
	s.User = meta["user"]
	s.OSBuild = build
	return nil
}

// regLines splits the file into logical lines, joining "\" continuations.
func regLines(data []byte) ([]string, error) {
	var (
		out     []string
		pending strings.Builder
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if pending.Len() > 0 {
			line = strings.TrimSpace(line)
		}
		if strings.HasSuffix(line, `\`) && !strings.HasPrefix(strings.TrimSpace(line), "[") {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			continue
		}
		pending.WriteString(line)
		out = append(out, strings.TrimSpace(pending.String()))
		pending.Reset()
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if pending.Len() > 0 {
		out = append(out, strings.TrimSpace(pending.String()))
	}
	return out, nil
}

func parseRegValue(path, line string, absentKind domain.ValueKind) (domain.Entry, error) {
	name, rest, err := splitRegName(line)
	if err != nil {
		return domain.Entry{}, err
	}
	key := domain.ConfigKey{Path: path, Name: name}
	if !strings.HasPrefix(rest, "=") {
		return domain.Entry{}, fmt.Errorf("missing '=' after %q", name)
	}
	data := strings.TrimSpace(rest[1:])

	switch {
	case data == "-":
		key.Kind = absentKind
		return domain.Entry{Key: key, Value: domain.Absent()}, nil

	case strings.HasPrefix(strings.ToLower(data), "dword:"):
		n, err := strconv.ParseUint(data[len("dword:"):], 16, 32)
		if err != nil {
			return domain.Entry{}, fmt.Errorf("dword %q: %w", name, err)
		}
		key.Kind = domain.KindDWord
		return domain.Entry{Key: key, Value: domain.DWord(uint32(n))}, nil

	case strings.HasPrefix(strings.ToLower(data), "hex:"):
		raw := strings.ReplaceAll(data[len("hex:"):], ",", "")
		raw = strings.Join(strings.Fields(raw), "")
		b, err := hex.DecodeString(raw)
		if err != nil {
			return domain.Entry{}, fmt.Errorf("hex %q: %w", name, err)
		}
		key.Kind = domain.KindBinary
		return domain.Entry{Key: key, Value: domain.Binary(b)}, nil

	default:
		return domain.Entry{}, domain.ErrUnsupportedKind.WithDetails(fmt.Sprintf("%s=%s", name, data))
	}
}

// splitRegName parses `@` or a quoted, backslash-escaped value name.
func splitRegName(line string) (string, string, error) {
	if strings.HasPrefix(line, "@") {
		return "", line[1:], nil
	}
	if !strings.HasPrefix(line, `"`) {
		return "", "", fmt.Errorf("value name must be quoted: %q", line)
	}
	var name strings.Builder
	for i := 1; i < len(line); i++ {
		switch c := line[i]; c {
		case '\\':
			if i+1 >= len(line) {
				return "", "", fmt.Errorf("dangling escape in %q", line)
			}
			i++
			name.WriteByte(line[i])
		case '"':
			return name.String(), line[i+1:], nil
		default:
			name.WriteByte(c)
		}
	}
	return "", "", fmt.Errorf("unterminated value name in %q", line)
}

func regName(name string) string {
	if name == "" {
		return "@"
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(name) + `"`
}

// regHexLine renders hex bytes with regedit-style continuation lines.
func regHexLine(prefix string, data []byte, eol string) string {
	var b strings.Builder
	b.WriteString(prefix)
	col := len(prefix)
	for i, c := range data {
		chunk := fmt.Sprintf("%02x", c)
		if i < len(data)-1 {
			chunk += ","
		}
		if col+len(chunk) > regWrapAt && i < len(data)-1 {
			b.WriteString("\\" + eol + "  ")
			col = 2
		}
		b.WriteString(chunk)
		col += len(chunk)
	}
	b.WriteString(eol)
	return b.String()
}

func cutFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
