package hive

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/telemetry/logger"
)

// Store is the config store accessor.
//
// Implementations must treat a missing path or value as domain.Absent()
// on Read rather than as an error, and treat deletes of missing values or
// subtrees as success.
type Store interface {
	// Read returns the current value, or domain.Absent() if the path or
	// value does not exist.
	Read(ctx context.Context, key domain.ConfigKey) (domain.Value, error)

	// Write creates any missing path components and stores v, replacing
	// an existing value. Returns domain.ErrAccessDenied when refused.
	Write(ctx context.Context, key domain.ConfigKey, v domain.Value) error

	// Delete removes a value.
	Delete(ctx context.Context, key domain.ConfigKey) error

	// DeleteTree removes path and everything below it.
	DeleteTree(ctx context.Context, path string) error

	// SubKeys lists the direct children of path, sorted case-insensitively.
	SubKeys(ctx context.Context, path string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendRegistry = "registry"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Dir is the badger directory for the file backend.
	Dir string
	// SyncWrites makes every file backend commit durable before returning.
	SyncWrites bool
}

// Open creates the configured store.
func Open(cfg Config, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Default()
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendRegistry, "":
		return openRegistry()
	case BackendFile:
		return NewFileStore(FileConfig{Dir: cfg.Dir, SyncWrites: cfg.SyncWrites}, log)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("unknown store backend %q", cfg.Backend))
	}
}

// validateWrite rejects values the store cannot hold.
func validateWrite(key domain.ConfigKey, v domain.Value) error {
	if domain.NormalizePath(key.Path) == "" {
		return domain.ErrInvalidArgument.WithDetails("empty key path")
	}
	if v.IsAbsent() {
		return domain.ErrInvalidArgument.WithDetails("cannot write absent value to " + key.String() + ", use Delete")
	}
	return v.Validate()
}

// parentPaths returns every ancestor of path plus path itself, shortest first.
func parentPaths(path string) []string {
	parts := strings.Split(domain.NormalizePath(path), `\`)
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], `\`))
	}
	return out
}

// lastSegment returns the final component of a normalized path.
func lastSegment(path string) string {
	if i := strings.LastIndex(path, `\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func sortFold(names []string) {
	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li == lj {
			return names[i] < names[j]
		}
		return li < lj
	})
}
