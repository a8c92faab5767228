package projection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultSlotName is the slot the client persists into unless told
// otherwise.
const DefaultSlotName = "zi-design-storage"

// Slot is a named place holding one serialized projection record.
type Slot interface {
	// Load returns the stored record, or nil when the slot is empty.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// FileSlot stores the record in <dir>/<name>.json.
type FileSlot struct {
	path string
}

func NewFileSlot(dir, name string) (*FileSlot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultSlotName
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid slot name %q", name)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileSlot{path: filepath.Join(dir, name+".json")}, nil
}

// Path returns the file backing the slot.
func (s *FileSlot) Path() string {
	return s.path
}

func (s *FileSlot) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save replaces the record atomically: readers see either the old or
// the new file, never a partial write.
func (s *FileSlot) Save(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileSlot) Close() error { return nil }

// RedisSlot stores the record under a Redis key, letting several
// machines share one projection.
type RedisSlot struct {
	client *redis.Client
	key    string
	owned  bool
}

// NewRedisSlot wraps an existing client. The caller keeps ownership of it.
func NewRedisSlot(client *redis.Client, name string) *RedisSlot {
	if strings.TrimSpace(name) == "" {
		name = DefaultSlotName
	}
	return &RedisSlot{client: client, key: "zidesign:slot:" + name}
}

// OpenRedisSlot dials rawURL and owns the resulting client.
func OpenRedisSlot(ctx context.Context, rawURL, name string) (*RedisSlot, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slot := NewRedisSlot(client, name)
	slot.owned = true
	return slot, nil
}

func (s *RedisSlot) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (s *RedisSlot) Save(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisSlot) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
