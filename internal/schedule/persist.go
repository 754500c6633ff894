package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps a PersistedState between runs.  Load reports false
// when nothing has been saved.
type StateStore interface {
	Save(ctx context.Context, p PersistedState) error
	Load(ctx context.Context) (PersistedState, bool, error)
}

// FileStateStore writes the state as JSON to a local file.
type FileStateStore struct {
	path string
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Save replaces the file atomically.
func (f *FileStateStore) Save(_ context.Context, p PersistedState) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".schedule-state-*")
	if err != nil {
		return fmt.Errorf("state file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("state file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStateStore) Load(context.Context) (PersistedState, bool, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return PersistedState{}, false, nil
	}
	if err != nil {
		return PersistedState{}, false, fmt.Errorf("state file: %w", err)
	}
	var p PersistedState
	if err := json.Unmarshal(b, &p); err != nil {
		return PersistedState{}, false, fmt.Errorf("state file: %w", err)
	}
	return p, true, nil
}

// RedisStateStore keeps the state under one key that expires after
// ttl, so several admin clients can share a session.
type RedisStateStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisStateStore(rdb *redis.Client, key string, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{rdb: rdb, key: key, ttl: ttl}
}

func (r *RedisStateStore) Save(ctx context.Context, p PersistedState) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key, b, r.ttl).Err()
}

func (r *RedisStateStore) Load(ctx context.Context) (PersistedState, bool, error) {
	b, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return PersistedState{}, false, nil
	}
	if err != nil {
		return PersistedState{}, false, err
	}
	var p PersistedState
	if err := json.Unmarshal(b, &p); err != nil {
		return PersistedState{}, false, err
	}
	return p, true, nil
}
