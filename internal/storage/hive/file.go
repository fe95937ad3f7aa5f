package hive

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/trayctl/internal/core/domain"
	"github.com/yndnr/trayctl/internal/telemetry/logger"
)

// Key layout inside badger:
//
//	k:<lower path>                  -> original path
//	v:<lower path>\x00<lower name>  -> [kind:4][nameLen:2][name][data]
const (
	keyPrefix   = "k:"
	valuePrefix = "v:"
)

// FileConfig configures the badger-backed store.
type FileConfig struct {
	Dir        string
	SyncWrites bool
}

// FileStore persists an emulated hive in a badger database.
type FileStore struct {
	db  *badger.DB
	log logger.Logger
}

// NewFileStore opens (or creates) the database in cfg.Dir.
func NewFileStore(cfg FileConfig, log logger.Logger) (*FileStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("hive: file store dir is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(&badgerLogger{logger: log}).
		WithSyncWrites(cfg.SyncWrites).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(4 << 20).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.ErrStore.WithCause(fmt.Errorf("badger: open db: %w", err))
	}

	log.Debug("file store opened", "dir", cfg.Dir)
	return &FileStore{db: db, log: log}, nil
}

func (s *FileStore) Read(_ context.Context, key domain.ConfigKey) (domain.Value, error) {
	var v domain.Value
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(valueKey(key.Path, key.Name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				v = domain.Absent()
				return nil
			}
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		_, v, err = decodeValue(raw)
		return err
	})
	if err != nil {
		return domain.Absent(), domain.ErrStore.WithDetails(key.String()).WithCause(err)
	}
	return v, nil
}

func (s *FileStore) Write(_ context.Context, key domain.ConfigKey, v domain.Value) error {
	if err := validateWrite(key, v); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, p := range parentPaths(key.Path) {
			k := pathKey(p)
			if _, err := txn.Get(k); err == nil {
				continue
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(k, []byte(p)); err != nil {
				return err
			}
		}

		vk := valueKey(key.Path, key.Name)
		name := key.Name
		if item, err := txn.Get(vk); err == nil {
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if existing, _, err := decodeValue(raw); err == nil {
				name = existing
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(vk, encodeValue(name, v))
	})
	if err != nil {
		return domain.ErrStore.WithDetails(key.String()).WithCause(err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key domain.ConfigKey) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(valueKey(key.Path, key.Name))
	})
	if err != nil {
		return domain.ErrStore.WithDetails(key.String()).WithCause(err)
	}
	return nil
}

func (s *FileStore) DeleteTree(_ context.Context, path string) error {
	lp := strings.ToLower(domain.NormalizePath(path))
	if lp == "" {
		return domain.ErrInvalidArgument.WithDetails("refusing to delete the hive root")
	}

	var doomed [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		collect := func(prefix []byte, match func(rest string) bool) {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				k := it.Item().KeyCopy(nil)
				if match(string(k[len(prefix):])) {
					doomed = append(doomed, k)
				}
			}
		}
		// keys: the path itself and anything below it
		collect([]byte(keyPrefix+lp), func(rest string) bool {
			return rest == "" || strings.HasPrefix(rest, `\`)
		})
		// values: those of the path and of its descendants
		collect([]byte(valuePrefix+lp), func(rest string) bool {
			return strings.HasPrefix(rest, "\x00") || strings.HasPrefix(rest, `\`)
		})
		return nil
	})
	if err != nil {
		return domain.ErrStore.WithDetails(path).WithCause(err)
	}
	if len(doomed) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range doomed {
		if err := wb.Delete(k); err != nil {
			return domain.ErrStore.WithDetails(path).WithCause(err)
		}
	}
	if err := wb.Flush(); err != nil {
		return domain.ErrStore.WithDetails(path).WithCause(err)
	}

	s.log.Debug("deleted subtree", "path", path, "entries", len(doomed))
	return nil
}

func (s *FileStore) SubKeys(_ context.Context, path string) ([]string, error) {
	lp := strings.ToLower(domain.NormalizePath(path))
	prefix := keyPrefix
	if lp != "" {
		prefix = keyPrefix + lp + `\`
	}

	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			rest := string(item.Key()[len(prefix):])
			if rest == "" || strings.Contains(rest, `\`) {
				continue
			}
			orig, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			names = append(names, lastSegment(string(orig)))
		}
		return nil
	})
	if err != nil {
		return nil, domain.ErrStore.WithDetails(path).WithCause(err)
	}
	sortFold(names)
	return names, nil
}

// Close flushes and closes the database.
func (s *FileStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

func pathKey(path string) []byte {
	return []byte(keyPrefix + strings.ToLower(domain.NormalizePath(path)))
}

func valueKey(path, name string) []byte {
	return []byte(valuePrefix + strings.ToLower(domain.NormalizePath(path)) + "\x00" + strings.ToLower(name))
}

func encodeValue(name string, v domain.Value) []byte {
	buf := make([]byte, 6+len(name)+len(v.Data))
	binary.BigEndian.PutUint32(buf[0:4], uint32(v.Kind))
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(name)))
	copy(buf[6:], name)
	copy(buf[6+len(name):], v.Data)
	return buf
}

func decodeValue(raw []byte) (string, domain.Value, error) {
	if len(raw) < 6 {
		return "", domain.Absent(), fmt.Errorf("hive: short value record (%d bytes)", len(raw))
	}
	kind := domain.ValueKind(binary.BigEndian.Uint32(raw[0:4]))
	n := int(binary.BigEndian.Uint16(raw[4:6]))
	if len(raw) < 6+n {
		return "", domain.Absent(), fmt.Errorf("hive: truncated value name")
	}
	name := string(raw[6 : 6+n])
	data := append([]byte(nil), raw[6+n:]...)
	return name, domain.Value{Kind: kind, Data: data}, nil
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
