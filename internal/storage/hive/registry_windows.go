//go:build windows

package hive

import (
	"context"
	"errors"
	"syscall"

	"golang.org/x/sys/windows/registry"

	"github.com/yndnr/trayctl/internal/core/domain"
)

// RegistryStore reads and writes HKEY_CURRENT_USER.
type RegistryStore struct {
	root registry.Key
}

func openRegistry() (Store, error) {
	// HKCU is always mapped for an interactive user; probing it catches
	// service accounts without a loaded profile.
	k, err := registry.OpenKey(registry.CURRENT_USER, "", registry.QUERY_VALUE)
	if err != nil {
		return nil, domain.ErrInvalidSession.WithCause(err)
	}
	_ = k.Close()
	return &RegistryStore{root: registry.CURRENT_USER}, nil
}

func (s *RegistryStore) Read(_ context.Context, key domain.ConfigKey) (domain.Value, error) {
	k, err := registry.OpenKey(s.root, domain.NormalizePath(key.Path), registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return domain.Absent(), nil
		}
		return domain.Absent(), classify(key.String(), err)
	}
	defer func() {
		_ = k.Close()
	}()

	_, valtype, err := k.GetValue(key.Name, nil)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return domain.Absent(), nil
		}
		return domain.Absent(), classify(key.String(), err)
	}

	switch valtype {
	case registry.DWORD:
		n, _, err := k.GetIntegerValue(key.Name)
		if err != nil {
			return domain.Absent(), classify(key.String(), err)
		}
		return domain.DWord(uint32(n)), nil
	case registry.BINARY:
		b, _, err := k.GetBinaryValue(key.Name)
		if err != nil {
			return domain.Absent(), classify(key.String(), err)
		}
		return domain.Binary(b), nil
	default:
		return domain.Absent(), domain.ErrUnsupportedKind.WithDetails(key.String())
	}
}

func (s *RegistryStore) Write(_ context.Context, key domain.ConfigKey, v domain.Value) error {
	if err := validateWrite(key, v); err != nil {
		return err
	}

	k, _, err := registry.CreateKey(s.root, domain.NormalizePath(key.Path), registry.SET_VALUE)
	if err != nil {
		return classify(key.String(), err)
	}
	defer func() {
		_ = k.Close()
	}()

	switch v.Kind {
	case domain.KindDWord:
		n, _ := v.DWord()
		err = k.SetDWordValue(key.Name, n)
	case domain.KindBinary:
		err = k.SetBinaryValue(key.Name, v.Data)
	default:
		return domain.ErrUnsupportedKind.WithDetails(key.String())
	}
	if err != nil {
		return classify(key.String(), err)
	}
	return nil
}

func (s *RegistryStore) Delete(_ context.Context, key domain.ConfigKey) error {
	k, err := registry.OpenKey(s.root, domain.NormalizePath(key.Path), registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil
		}
		return classify(key.String(), err)
	}
	defer func() {
		_ = k.Close()
	}()

	err = k.DeleteValue(key.Name)
	if err == nil || errors.Is(err, registry.ErrNotExist) {
		return nil
	}
	return classify(key.String(), err)
}

// DeleteTree removes children depth-first because RegDeleteKey refuses
// keys that still have subkeys.
func (s *RegistryStore) DeleteTree(ctx context.Context, path string) error {
	path = domain.NormalizePath(path)
	if path == "" {
		return domain.ErrInvalidArgument.WithDetails("refusing to delete the hive root")
	}

	children, err := s.SubKeys(ctx, path)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.DeleteTree(ctx, path+`\`+child); err != nil {
			return err
		}
	}

	err = registry.DeleteKey(s.root, path)
	if err == nil || errors.Is(err, registry.ErrNotExist) {
		return nil
	}
	return classify(path, err)
}

func (s *RegistryStore) SubKeys(_ context.Context, path string) ([]string, error) {
	k, err := registry.OpenKey(s.root, domain.NormalizePath(path), registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, nil
		}
		return nil, classify(path, err)
	}
	defer func() {
		_ = k.Close()
	}()

	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, classify(path, err)
	}
	sortFold(names)
	return names, nil
}

func (s *RegistryStore) Close() error {
	return nil
}

func classify(what string, err error) error {
	if errors.Is(err, syscall.ERROR_ACCESS_DENIED) {
		return domain.ErrAccessDenied.WithDetails(what).WithCause(err)
	}
	return domain.ErrStore.WithDetails(what).WithCause(err)
}
