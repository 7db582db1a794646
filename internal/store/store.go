// Package store persists chapter text under its normalized key, one file per
// chapter. A file's presence is the only resumability signal.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	fileExt    = ".txt"
	tempPrefix = ".noveld-"
	tempSuffix = ".part"
	lockName   = ".noveld.lock"
)

type WriteResult int

const (
	Written WriteResult = iota + 1
	AlreadyPresent
)

func (r WriteResult) String() string {
	switch r {
	case Written:
		return "written"
	case AlreadyPresent:
		return "already present"
	default:
		return "unknown"
	}
}

var (
	ErrLocked     = errors.New("destination is in use by another run")
	ErrInvalidKey = errors.New("invalid chapter key")
)

// Error reports a failed store operation on one key.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Store struct {
	dir  string
	lock *flock.Flock
	// created is set when Open made dir; only then may Close remove it.
	created bool

	// write fills the temporary file; replaced in tests to simulate failures.
	write func(f *os.File, content []byte) error
}

// Open prepares dir as a chapter store, creating it when missing.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, &Error{Op: "open", Err: errors.New("empty destination")}
	}

	_, err := os.Stat(dir)
	created := errors.Is(err, fs.ErrNotExist)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	return &Store{
		dir:     dir,
		lock:    flock.New(filepath.Join(dir, lockName)),
		created: created,
		write:   writeAll,
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Lock takes the destination's exclusive lock without waiting.
func (s *Store) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return &Error{Op: "lock", Err: err}
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, s.dir)
	}

	return nil
}

// Close releases the lock. The lock file is always removed when nothing
// else was written; the destination itself only when Open created it.
func (s *Store) Close() error {
	if !s.lock.Locked() {
		return nil
	}

	if err := s.lock.Unlock(); err != nil {
		return &Error{Op: "unlock", Err: err}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	if len(entries) == 1 && entries[0].Name() == lockName {
		_ = os.Remove(s.lock.Path())
		if s.created {
			_ = os.Remove(s.dir)
		}
	}

	return nil
}

func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, tempPrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return nil
}

func (s *Store) Exists(key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, &Error{Op: "stat", Key: key, Err: err}
	}

	_, err := os.Stat(s.Path(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &Error{Op: "stat", Key: key, Err: err}
	}
}

// WriteIfAbsent stores content under key unless a file is already there.
// The content is written to a temporary file, synced and then linked into
// place, so a partial file is never visible under key.
func (s *Store) WriteIfAbsent(key, content string) (WriteResult, error) {
	if err := checkKey(key); err != nil {
		return 0, &Error{Op: "write", Key: key, Err: err}
	}

	final := s.Path(key)
	if _, err := os.Stat(final); err == nil {
		return AlreadyPresent, nil
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*"+tempSuffix)
	if err != nil {
		return 0, &Error{Op: "write", Key: key, Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := s.write(tmp, []byte(content)); err != nil {
		_ = tmp.Close()
		return 0, &Error{Op: "write", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return 0, &Error{Op: "write", Key: key, Err: err}
	}

	err = os.Link(tmpName, final)
	switch {
	case err == nil:
		return Written, nil
	case errors.Is(err, fs.ErrExist):
		return AlreadyPresent, nil
	}

	// Hard links are not available everywhere; fall back to rename.
	if _, statErr := os.Stat(final); statErr == nil {
		return AlreadyPresent, nil
	}
	if err := os.Rename(tmpName, final); err != nil {
		return 0, &Error{Op: "write", Key: key, Err: err}
	}

	return Written, nil
}

func (s *Store) Read(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", &Error{Op: "read", Key: key, Err: err}
	}

	b, err := os.ReadFile(s.Path(key))
	if err != nil {
		return "", &Error{Op: "read", Key: key, Err: err}
	}

	return string(b), nil
}

// CleanupTemp removes temporary files left behind by an interrupted run and
// returns how many were removed.
func (s *Store) CleanupTemp() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, &Error{Op: "cleanup", Err: err}
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, tempSuffix) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, &Error{Op: "cleanup", Key: name, Err: err}
		}
		removed++
	}

	return removed, nil
}

func writeAll(f *os.File, content []byte) error {
	if _, err := f.Write(content); err != nil {
		return err
	}

	return f.Sync()
}
