package hive

import (
	"context"
	"strings"
	"sync"

	"github.com/yndnr/trayctl/internal/core/domain"
)

type memValue struct {
	name  string
	value domain.Value
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	keys   map[string]string              // lower path -> original path
	values map[string]map[string]memValue // lower path -> lower name -> value
	denied []string                       // lower path prefixes refusing mutation
	writes int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:   make(map[string]string),
		values: make(map[string]map[string]memValue),
	}
}

// Deny makes every mutation at or below path fail with domain.ErrAccessDenied.
func (s *MemoryStore) Deny(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied = append(s.denied, strings.ToLower(domain.NormalizePath(path)))
}

// Mutations returns the number of successful Write, Delete and DeleteTree
// calls that changed the store.
func (s *MemoryStore) Mutations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) Read(_ context.Context, key domain.ConfigKey) (domain.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vals, ok := s.values[strings.ToLower(domain.NormalizePath(key.Path))]
	if !ok {
		return domain.Absent(), nil
	}
	mv, ok := vals[strings.ToLower(key.Name)]
	if !ok {
		return domain.Absent(), nil
	}
	return domain.Value{Kind: mv.value.Kind, Data: append([]byte(nil), mv.value.Data...)}, nil
}

func (s *MemoryStore) Write(_ context.Context, key domain.ConfigKey, v domain.Value) error {
	if err := validateWrite(key, v); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := domain.NormalizePath(key.Path)
	if s.isDenied(path) {
		return domain.ErrAccessDenied.WithDetails(key.String())
	}

	for _, p := range parentPaths(path) {
		lp := strings.ToLower(p)
		if _, ok := s.keys[lp]; !ok {
			s.keys[lp] = p
		}
	}

	lp := strings.ToLower(path)
	vals, ok := s.values[lp]
	if !ok {
		vals = make(map[string]memValue)
		s.values[lp] = vals
	}
	ln := strings.ToLower(key.Name)
	name := key.Name
	if existing, ok := vals[ln]; ok {
		name = existing.name
	}
	vals[ln] = memValue{
		name:  name,
		value: domain.Value{Kind: v.Kind, Data: append([]byte(nil), v.Data...)},
	}
	s.writes++
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key domain.ConfigKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := domain.NormalizePath(key.Path)
	lp := strings.ToLower(path)
	vals, ok := s.values[lp]
	if !ok {
		return nil
	}
	ln := strings.ToLower(key.Name)
	if _, ok := vals[ln]; !ok {
		return nil
	}
	if s.isDenied(path) {
		return domain.ErrAccessDenied.WithDetails(key.String())
	}
	delete(vals, ln)
	s.writes++
	return nil
}

func (s *MemoryStore) DeleteTree(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path = domain.NormalizePath(path)
	lp := strings.ToLower(path)
	if _, ok := s.keys[lp]; !ok {
		return nil
	}
	if s.isDenied(path) {
		return domain.ErrAccessDenied.WithDetails(path)
	}

	prefix := lp + `\`
	for k := range s.keys {
		if k == lp || strings.HasPrefix(k, prefix) {
			delete(s.keys, k)
			delete(s.values, k)
		}
	}
	s.writes++
	return nil
}

func (s *MemoryStore) SubKeys(_ context.Context, path string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lp := strings.ToLower(domain.NormalizePath(path))
	prefix := lp + `\`
	if lp == "" {
		prefix = ""
	}

	var names []string
	for k, orig := range s.keys {
		if !strings.HasPrefix(k, prefix) || k == lp {
			continue
		}
		if strings.Contains(k[len(prefix):], `\`) {
			continue
		}
		names = append(names, lastSegment(orig))
	}
	sortFold(names)
	return names, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// isDenied must be called with s.mu held.
func (s *MemoryStore) isDenied(path string) bool {
	lp := strings.ToLower(path)
	for _, d := range s.denied {
		if lp == d || strings.HasPrefix(lp, d+`\`) {
			return true
		}
	}
	return false
}
