package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrSnapshotNotFound is returned when no stored snapshot exists for a key.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// RedisOptions represents configuration options for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

var defaultOptions = &RedisOptions{
	Addr:     "localhost:6379",
	Password: "",
	DB:       0,
}

// SetDefaultRedisOptions sets the default options for Redis connections
func SetDefaultRedisOptions(options *RedisOptions) {
	defaultOptions = options
}

// GetRedisClient creates a new Redis client using the default options
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// Store persists snapshots to Redis as JSON, one key per instrument.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore creates a Store with the given key prefix. A zero ttl keeps
// snapshots forever.
func NewStore(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *Store) key(instrument string) string {
	return fmt.Sprintf("%s:snapshot:%s", s.prefix, instrument)
}

// Save writes the snapshot for an instrument, replacing any previous one.
func (s *Store) Save(ctx context.Context, instrument string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := s.key(instrument)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to save snapshot", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.Debug("Saved snapshot",
		zap.String("key", key),
		zap.Int("bids", len(snap.Bids)),
		zap.Int("asks", len(snap.Asks)))
	return nil
}

// Load reads the stored snapshot for an instrument.
func (s *Store) Load(ctx context.Context, instrument string) (*Snapshot, error) {
	key := s.key(instrument)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		s.logger.Error("Failed to load snapshot", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode stored snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the stored snapshot for an instrument.
func (s *Store) Delete(ctx context.Context, instrument string) error {
	return s.client.Del(ctx, s.key(instrument)).Err()
}
