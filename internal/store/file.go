package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	appLog "lessoncal/internal/log"
)

const fileExt = ".json"

// File stores each key as <dir>/<key>.json with 0600 permissions.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates the directory (0700) if needed and returns a File store.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("store: file directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, filepath.FromSlash(key)+fileExt)
}

func (f *File) Load(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Save writes every entry to a temp file in its target directory first and
// only then renames them into place, so a failed write leaves all targets
// untouched.
func (f *File) Save(_ context.Context, entries ...Entry) error {
	for _, e := range entries {
		if err := validateKey(e.Key); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	staged := make([]string, 0, len(entries))
	defer func() {
		// Renamed temp paths no longer exist; Remove is a no-op for them.
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()

	for _, e := range entries {
		tmp, err := f.stage(e)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}

	for i, e := range entries {
		if err := os.Rename(staged[i], f.path(e.Key)); err != nil {
			appLog.Error("file store rename failed", err, "key", e.Key, "renamed", i)
			return err
		}
	}
	staged = nil
	return nil
}

func (f *File) stage(e Entry) (string, error) {
	dir := filepath.Dir(f.path(e.Key))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".lessoncal-*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(e.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}

func (f *File) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0)
	err := filepath.WalkDir(f.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, fileExt) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(f.dir, p)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), fileExt)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *File) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		if err := validateKey(k); err != nil {
			return err
		}
		if err := os.Remove(f.path(k)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (f *File) Close() error {
	return nil
}
