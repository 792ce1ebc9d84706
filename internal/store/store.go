// ABOUTME: Redis-backed key-value store adapter for podium persistence
// ABOUTME: Provides string/hash primitives, key scans, full wipe and unique IDs

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Logical database selectors. Production data and test data live in
// separate Redis logical databases so that Reset in tests can never touch
// real records.
const (
	DBProduction = 0
	DBTest       = 1
)

// ErrNotFound is returned when a requested key or hash field does not exist
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the store cannot be reached; all
// connection and timeout failures wrap it
var ErrUnavailable = errors.New("storage unavailable")

// Store is a scoped handle onto one Redis logical database. Callers obtain
// one per unit of work via Open and must Close it on every exit path.
type Store struct {
	client *redis.Client
	db     int
	logger *slog.Logger
}

// Open connects to the Redis server at url and selects the given logical
// database. The connection is verified with a ping before the handle is
// returned.
func Open(url string, db int) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing store url: %w", err)
	}
	opts.DB = db

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Store{
		client: client,
		db:     db,
		logger: slog.Default().With("component", "store", "db", db),
	}, nil
}

// Close releases the underlying connection. Safe to call on every exit path.
func (s *Store) Close() error {
	return s.client.Close()
}

// DB returns the logical database selector this handle is scoped to.
func (s *Store) DB() int {
	return s.db
}

// Get returns the string value at key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return "", wrapErr("get", key, err)
	}
	return val, nil
}

// Set stores a string value at key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return wrapErr("set", key, err)
	}
	return nil
}

// HGet returns one field of the hash at key, or ErrNotFound.
func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if err != nil {
		return "", wrapErr("hget", key, err)
	}
	return val, nil
}

// HGetAll returns every field of the hash at key. A missing hash comes back
// as ErrNotFound rather than an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrapErr("hgetall", key, err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	return vals, nil
}

// HSet stores one field of the hash at key.
func (s *Store) HSet(ctx context.Context, key, field, value string) error {
	if err := s.client.HSet(ctx, key, field, value).Err(); err != nil {
		return wrapErr("hset", key, err)
	}
	return nil
}

// HDel removes one field of the hash at key. Deleting a missing field is
// not an error.
func (s *Store) HDel(ctx context.Context, key, field string) error {
	if err := s.client.HDel(ctx, key, field).Err(); err != nil {
		return wrapErr("hdel", key, err)
	}
	return nil
}

// HExists reports whether the hash at key has the given field.
func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	ok, err := s.client.HExists(ctx, key, field).Result()
	if err != nil {
		return false, wrapErr("hexists", key, err)
	}
	return ok, nil
}

// Keys returns every key matching the glob pattern. Enumeration order is
// whatever the store yields.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, wrapErr("keys", pattern, err)
	}
	return keys, nil
}

// Delete removes the value at key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return wrapErr("del", key, err)
	}
	return nil
}

// Reset wipes every key in the selected logical database. Irreversible;
// used for first-run bootstrap and for test teardown. Callers must never
// invoke it on DBProduction without explicit operator confirmation.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("%w: flushdb: %v", ErrUnavailable, err)
	}
	s.logger.Info("store wiped")
	return nil
}

// UniqueID returns a fresh, collision-free identifier. UUIDv7 keeps the
// identifiers time-ordered the way the record keys are scanned.
func (s *Store) UniqueID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	return id.String(), nil
}

// wrapErr translates a redis error into the store error taxonomy: nil
// replies become ErrNotFound, everything else wraps ErrUnavailable.
func wrapErr(op, key string, err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, op, key, err)
}
