package equivalence

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/logging"
)

// FileStore persists the cache as a JSON file.
//
// Writes go to a temporary file in the same directory and are renamed into
// place, so readers never observe a partial file. With locking enabled,
// Save and Upsert hold an advisory "<path>.lock" file for their duration.
type FileStore struct {
	path        string
	lock        bool
	lockTimeout time.Duration
	staleAge    time.Duration
	logger      *zerolog.Logger
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLock enables the advisory lock file.
func WithLock(enabled bool) FileOption {
	return func(s *FileStore) {
		s.lock = enabled
	}
}

// WithLockTimeout bounds how long a writer waits for the lock.
func WithLockTimeout(d time.Duration) FileOption {
	return func(s *FileStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithStaleLockAge sets the age after which an abandoned lock is reclaimed.
func WithStaleLockAge(d time.Duration) FileOption {
	return func(s *FileStore) {
		if d > 0 {
			s.staleAge = d
		}
	}
}

// WithFileLogger sets the logger used for lock diagnostics.
func WithFileLogger(logger *zerolog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore returns a store backed by path. An empty path uses
// constants.DefaultCachePath.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	if path == "" {
		path = constants.DefaultCachePath
	}
	s := &FileStore{
		path:        path,
		lockTimeout: constants.LockTimeout,
		staleAge:    constants.StaleLockAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Path returns the cache file path.
func (s *FileStore) Path() string {
	return s.path
}

// Location implements Store.
func (s *FileStore) Location() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (Cache, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Cache{}, nil
		}
		return Cache{}, errors.WrapIO("read", s.path, err)
	}
	c, err := Decode(data)
	if err != nil {
		return Cache{}, &errors.ParseError{Format: "json", File: s.path, Message: err.Error(), Err: err}
	}
	return c, nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, c Cache) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(c)
}

// Upsert implements Store. A corrupt file is replaced by the merged entries.
func (s *FileStore) Upsert(ctx context.Context, entries Cache) (Cache, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Equivalence cache unreadable, rebuilding")
	}
	current.Merge(entries)
	if err := s.write(current); err != nil {
		return nil, err
	}
	return current, nil
}

// Clear removes the cache file.
func (s *FileStore) Clear(ctx context.Context) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("remove", s.path, err)
	}
	return nil
}

func (s *FileStore) write(c Cache) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".equivalences_*.json")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return errors.WrapIO("write", tempPath, err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return errors.WrapIO("close", tempPath, err)
	}
	if err := os.Chmod(tempPath, constants.FilePermissions); err != nil {
		_ = os.Remove(tempPath)
		return errors.WrapIO("chmod", tempPath, err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return errors.WrapIO("rename", s.path, err)
	}
	return nil
}

func (s *FileStore) acquire(ctx context.Context) (func(), error) {
	if !s.lock {
		return func() {}, nil
	}
	return acquireLock(ctx, s.path+".lock", s.lockTimeout, s.staleAge, s.logger)
}

var _ Store = (*FileStore)(nil)
