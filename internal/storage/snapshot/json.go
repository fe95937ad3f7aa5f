package snapshot

import (
	"fmt"

	"github.com/yndnr/trayctl/internal/core/domain"
)

type jsonDocument struct {
	Format      string      `json:"format"`
	Version     int         `json:"version"`
	ID          string      `json:"id"`
	Tier        string      `json:"tier"`
	CreatedAt   string      `json:"created_at"`
	ToolVersion string      `json:"tool_version"`
	Host        string      `json:"host,omitempty"`
	User        string      `json:"user,omitempty"`
	OSBuild     int         `json:"os_build,omitempty"`
	Checksum    string      `json:"checksum"`
	Entries     []fileEntry `json:"entries"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return FormatJSON }
func (jsonCodec) Ext() string  { return ".json" }

func (jsonCodec) Encode(s *domain.Snapshot) ([]byte, error) {
	sum, err := entriesChecksum(s.Entries)
	if err != nil {
		return nil, serializationError(FormatJSON, err)
	}

	doc := jsonDocument{
		Format:      schemaName,
		Version:     schemaVersion,
		ID:          s.ID,
		Tier:        string(s.Tier),
		CreatedAt:   formatTime(s.CreatedAt),
		ToolVersion: s.ToolVersion,
		Host:        s.Host,
		User:        s.User,
		OSBuild:     s.OSBuild,
		Checksum:    sum,
		Entries:     make([]fileEntry, 0, len(s.Entries)),
	}
	for _, e := range s.Entries {
		doc.Entries = append(doc.Entries, toFileEntry(e))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, serializationError(FormatJSON, err)
	}
	return append(data, '\n'), nil
}

func (jsonCodec) Decode(data []byte) (*domain.Snapshot, error) {
	data, err := toUTF8(data)
	if err != nil {
		return nil, serializationError(FormatJSON, err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, serializationError(FormatJSON, err)
	}
	if doc.Format != schemaName {
		return nil, serializationError(FormatJSON, fmt.Errorf("unexpected format %q", doc.Format))
	}
	if doc.Version < 1 || doc.Version > schemaVersion {
		return nil, serializationError(FormatJSON, fmt.Errorf("unsupported schema version %d", doc.Version))
	}

	tier, err := domain.ParseTier(doc.Tier)
	if err != nil {
		return nil, serializationError(FormatJSON, err)
	}
	created, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, serializationError(FormatJSON, fmt.Errorf("created_at: %w", err))
	}

	s := &domain.Snapshot{
		ID:          doc.ID,
		Tier:        tier,
		CreatedAt:   created,
		ToolVersion: doc.ToolVersion,
		Host:        doc.Host,
		User:        doc.User,
		OSBuild:     doc.OSBuild,
		Entries:     make([]domain.Entry, 0, len(doc.Entries)),
	}
	for _, fe := range doc.Entries {
		e, err := fe.toDomain()
		if err != nil {
			return nil, serializationError(FormatJSON, err)
		}
		s.Entries = append(s.Entries, e)
	}

	if err := verifyChecksum(s.Entries, doc.Checksum); err != nil {
		return nil, serializationError(FormatJSON, err)
	}
	if err := s.Validate(); err != nil {
		return nil, serializationError(FormatJSON, err)
	}
	return s, nil
}

func verifyChecksum(entries []domain.Entry, want string) error {
	got, err := entriesChecksum(entries)
	if err != nil {
		return err
	}
	if got != want {
		return ErrChecksumMismatch
	}
	return nil
}
