package domain

import (
	"crypto/rand"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SnapshotIDPrefix is the prefix for snapshot IDs.
const SnapshotIDPrefix = "tcsn-"

// Tier selects one of the two independent snapshot slots.
type Tier string

const (
	// TierBasic holds only the primary auto-tray value.
	TierBasic Tier = "basic"
	// TierComprehensive holds the full key set.
	TierComprehensive Tier = "comprehensive"
)

// Tiers lists the tiers in rollback preference order.
var Tiers = []Tier{TierComprehensive, TierBasic}

// ParseTier parses a tier name.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierBasic:
		return TierBasic, nil
	case TierComprehensive:
		return TierComprehensive, nil
	default:
		return "", ErrInvalidArgument.WithDetails("unknown snapshot tier " + s)
	}
}

// Entry is the recorded prior state of one key.
type Entry struct {
	Key   ConfigKey
	Value Value
}

// Snapshot is a point-in-time capture of a set of keys.
type Snapshot struct {
	ID          string
	Tier        Tier
	CreatedAt   time.Time
	ToolVersion string
	Host        string
	User        string
	OSBuild     int
	Entries     []Entry
}

// GenerateSnapshotID returns a new snapshot ID.
// Format: tcsn-{ulid_lowercase}.
func GenerateSnapshotID(t time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", ErrBackupFailed.WithCause(err)
	}
	return SnapshotIDPrefix + strings.ToLower(id.String()), nil
}

// SortEntries orders entries by case-insensitive path, then name.
func (s *Snapshot) SortEntries() {
	sort.SliceStable(s.Entries, func(i, j int) bool {
		return s.Entries[i].Key.ID() < s.Entries[j].Key.ID()
	})
}

// Lookup returns the entry recorded for key.
func (s *Snapshot) Lookup(key ConfigKey) (Entry, bool) {
	id := key.ID()
	for _, e := range s.Entries {
		if e.Key.ID() == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Validate checks tier and entries.
func (s *Snapshot) Validate() error {
	if _, err := ParseTier(string(s.Tier)); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		if NormalizePath(e.Key.Path) == "" {
			return ErrInvalidArgument.WithDetails("entry with empty path")
		}
		if err := e.Value.Validate(); err != nil {
			return err
		}
		id := e.Key.ID()
		if _, dup := seen[id]; dup {
			return ErrInvalidArgument.WithDetails("duplicate entry " + e.Key.String())
		}
		seen[id] = struct{}{}
	}
	return nil
}
