// internal/draft/kv.go
//
// Drafts persist through a small key-value interface so the same logic
// works against any durable backing store. The default backend keeps one
// JSON file per key under the state directory; a sqlite backend lives in
// sqlite.go.

package draft

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("draft: not found")

// DefaultQuota caps backend usage at 5 MiB. Drafts are small; hitting
// this means expired entries piled up.
const DefaultQuota int64 = 5 << 20

// KV is the minimal durable key-value contract the draft store needs.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Keys returns all stored keys with the given prefix, in no
	// particular order.
	Keys(prefix string) ([]string, error)
	// Usage reports bytes used and the quota in bytes.
	Usage() (used, quota int64, err error)
}

// FileKV stores each key as a file below a root directory. Slashes in
// keys become subdirectories.
type FileKV struct {
	root  string
	quota int64
}

// NewFileKV creates the root directory if needed.
func NewFileKV(root string) (*FileKV, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("draft: ensure store dir: %w", err)
	}
	return &FileKV{root: root, quota: DefaultQuota}, nil
}

func (f *FileKV) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("draft: invalid key %q", key)
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

// Get reads a stored value.
func (f *FileKV) Get(key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("draft: read %s: %w", key, err)
	}
	return data, nil
}

// Set writes a value, creating parent directories as needed.
func (f *FileKV) Set(key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("draft: ensure dir for %s: %w", key, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("draft: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("draft: commit %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (f *FileKV) Delete(key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("draft: delete %s: %w", key, err)
	}
	return nil
}

// Keys walks the store and returns keys matching the prefix.
func (f *FileKV) Keys(prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, relErr := filepath.Rel(f.root, path)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("draft: list keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Usage sums stored file sizes against the quota.
func (f *FileKV) Usage() (int64, int64, error) {
	var used int64
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		used += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("draft: measure usage: %w", err)
	}
	return used, f.quota, nil
}
