package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Skotchmaster/movie_reviews/internal/logging"
	"github.com/Skotchmaster/movie_reviews/internal/models"
)

// FileStore keeps the collection in one JSON file. Saves go through a temp
// file and a rename, so a crash leaves either the old or the new collection.
type FileStore struct {
	path   string
	strict bool

	mu  sync.RWMutex
	now func() time.Time
}

func NewFileStore(path string, strict bool) *FileStore {
	return &FileStore{path: path, strict: strict, now: time.Now}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) LoadAll(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.User{}, nil
		}
		return nil, fmt.Errorf("read users file: %w", err)
	}

	users, err := decodeUsers(data)
	if err == nil {
		return users, nil
	}

	l := logging.FromContext(ctx).With("store", "file", "path", s.path)
	if s.strict {
		l.Error("users_file_corrupt", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}

	backup := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if werr := os.WriteFile(backup, data, 0o600); werr != nil {
		return nil, fmt.Errorf("backup corrupt users file: %w", werr)
	}
	l.Warn("users_file_corrupt", "err", err, "backup", backup)
	return []models.User{}, nil
}

func (s *FileStore) SaveAll(ctx context.Context, users []models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cloneUsers(users), "", "    ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp users file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp users file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp users file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp users file: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}
