// ABOUTME: File-backed KV store writing one JSON file per key under a data directory.
// ABOUTME: Writes are staged in temp files and renamed under a cross-process lock file.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// FileKV stores each key as <dir>/<key>.json.
type FileKV struct {
	dir   string
	mu    sync.Mutex // serializes writers within this process
	flock *flock.Flock
}

// lockFile is created inside the data directory. Keys cannot start with a dot,
// so it never collides with a value file.
const lockFile = ".lock"

// NewFileKV creates the data directory if needed and returns a store rooted there.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &FileKV{dir: dir, flock: flock.New(filepath.Join(dir, lockFile))}, nil
}

func (f *FileKV) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func (f *FileKV) Get(key string) ([]byte, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (f *FileKV) Set(key string, value []byte) error {
	unlock, err := f.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := f.stage(key, value)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp) }()
	return f.commit(key, tmp)
}

func (f *FileKV) Delete(keys ...string) error {
	unlock, err := f.lock()
	if err != nil {
		return err
	}
	defer unlock()

	for _, k := range keys {
		if err := f.remove(k); err != nil {
			return err
		}
	}
	return nil
}

// Update stages every new value in a temp file before renaming any of them into
// place, so a failed write leaves all keys untouched.
func (f *FileKV) Update(keys []string, fn UpdateFunc) error {
	unlock, err := f.lock()
	if err != nil {
		return err
	}
	defer unlock()

	current := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, ok, err := f.Get(k)
		if err != nil {
			return err
		}
		if ok {
			current[k] = v
		}
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	staged := make(map[string]string, len(next))
	defer func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()
	for k, v := range next {
		if v == nil {
			if _, err := f.path(k); err != nil {
				return err
			}
			continue
		}
		tmp, err := f.stage(k, v)
		if err != nil {
			return err
		}
		staged[k] = tmp
	}

	for k, v := range next {
		if v == nil {
			err = f.remove(k)
		} else {
			err = f.commit(k, staged[k])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// lock serializes writers in this process and, through a lock file, across
// processes sharing the directory.
func (f *FileKV) lock() (func(), error) {
	f.mu.Lock()
	if err := f.flock.Lock(); err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("failed to lock cache dir: %w", err)
	}
	return func() {
		_ = f.flock.Unlock()
		f.mu.Unlock()
	}, nil
}

func (f *FileKV) Close() error { return f.flock.Close() }

func (f *FileKV) remove(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// stage writes value to a temp file next to key's file and returns its name.
func (f *FileKV) stage(key string, value []byte) (string, error) {
	if _, err := f.path(key); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(f.dir, "."+key+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}

// commit renames a staged temp file over key's file.
func (f *FileKV) commit(key, tmp string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
