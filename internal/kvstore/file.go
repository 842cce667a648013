package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// FileStore persists values as a single JSON object on disk.
//
// Every operation takes an exclusive flock on path+".lock" and writes go
// through a temp file and rename, so a reader never sees a torn file.
type FileStore struct {
	path        string
	lockTimeout time.Duration
}

// NewFileStore returns a FileStore at path, creating the parent directory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("kvstore: empty state file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", filepath.Dir(path), err)
	}
	return &FileStore{path: path, lockTimeout: 5 * time.Second}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var (
		v  string
		ok bool
	)
	err := s.withLock(func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		v, ok = data[key]
		return nil
	})
	return v, ok, err
}

func (s *FileStore) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.withLock(func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		data[key] = value
		return s.write(data)
	})
}

func (s *FileStore) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.withLock(func() error {
		data, err := s.read()
		if err != nil {
			return err
		}
		if _, ok := data[key]; !ok {
			return nil
		}
		delete(data, key)
		return s.write(data)
	})
}

// Verify reports whether the state file can be read and parsed.
func (s *FileStore) Verify() error {
	return s.withLock(func() error {
		_, err := s.read()
		return err
	})
}

// Quarantine moves an unreadable state file aside so the store starts empty.
// It returns the new location, or "" when the file was fine or absent.
func (s *FileStore) Quarantine(now time.Time) (string, error) {
	var moved string
	err := s.withLock(func() error {
		if _, err := s.read(); err == nil {
			return nil
		}
		dst := fmt.Sprintf("%s.corrupt-%s", s.path, now.UTC().Format("20060102T150405Z"))
		if err := os.Rename(s.path, dst); err != nil {
			return fmt.Errorf("cannot move state file aside: %w", err)
		}
		moved = dst
		return nil
	})
	return moved, err
}

// withLock runs fn while holding the state lock, polling until lockTimeout.
func (s *FileStore) withLock(fn func() error) error {
	l := flock.New(s.path + ".lock")
	deadline := time.Now().Add(s.lockTimeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return fmt.Errorf("cannot acquire state lock: %w", err)
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("state file is busy (lock: %s.lock)", s.path)
		}
		time.Sleep(50 * time.Millisecond)
	}
	defer func() { _ = l.Unlock() }()
	return fn()
}

func (s *FileStore) read() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("cannot read state file %s: %w", s.path, err)
	}
	out := map[string]string{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("invalid state file %s: %w", s.path, err)
	}
	return out, nil
}

func (s *FileStore) write(data map[string]string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o600); err != nil {
		return fmt.Errorf("cannot write state file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cannot replace state file %s: %w", s.path, err)
	}
	return nil
}
