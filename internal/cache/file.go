package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HartBrook/promptforge/internal/errors"
)

const entryExt = ".json"

// FileBackend stores one JSON file per entry in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir. The directory is
// created on first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// Dir returns the cache directory path.
func (f *FileBackend) Dir() string {
	return f.dir
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, key+entryExt)
}

// GetCached reads the entry for key.
func (f *FileBackend) GetCached(_ context.Context, key string) (*Entry, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.CacheBackend("read", err)
	}

	e := &Entry{}
	if err := json.Unmarshal(data, e); err != nil || e.Prompt == nil {
		return nil, false, errors.CacheBackend("decode", err)
	}
	return e, true, nil
}

// PutCached writes e, replacing any previous file atomically.
func (f *FileBackend) PutCached(_ context.Context, e *Entry) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return errors.CacheBackend("mkdir", err)
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return errors.CacheBackend("encode", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".entry-*")
	if err != nil {
		return errors.CacheBackend("write", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.CacheBackend("write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.CacheBackend("write", err)
	}
	if err := os.Rename(tmp.Name(), f.path(e.Key)); err != nil {
		os.Remove(tmp.Name())
		return errors.CacheBackend("write", err)
	}
	return nil
}

// DeleteCached removes the entry for key, reporting whether it existed.
func (f *FileBackend) DeleteCached(_ context.Context, key string) (bool, error) {
	if err := os.Remove(f.path(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.CacheBackend("delete", err)
	}
	return true, nil
}

// List returns all readable entries sorted by key. Unreadable files are
// skipped.
func (f *FileBackend) List(ctx context.Context) ([]*Entry, error) {
	keys, err := f.keys()
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok, err := f.GetCached(ctx, k); err == nil && ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Clear removes every entry file and returns how many were removed.
func (f *FileBackend) Clear(_ context.Context) (int, error) {
	keys, err := f.keys()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, k := range keys {
		if err := os.Remove(f.path(k)); err != nil && !os.IsNotExist(err) {
			return removed, errors.CacheBackend("clear", err)
		}
		removed++
	}
	return removed, nil
}

// Close is a no-op.
func (f *FileBackend) Close() error {
	return nil
}

func (f *FileBackend) keys() ([]string, error) {
	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.CacheBackend("list", err)
	}

	var keys []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != entryExt {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, entryExt))
	}
	sort.Strings(keys)
	return keys, nil
}
