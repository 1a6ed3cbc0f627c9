package session

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKeyspace is the key prefix used when none is configured.
	DefaultKeyspace = "sess:"
	// DefaultMaxAge is the session TTL used when none is configured.
	DefaultMaxAge = 24 * time.Hour

	defaultScanCount       = 100
	defaultBulkParallelism = 4
)

// Config tunes a [Store].
type Config struct {
	Keyspace        string
	MaxAge          time.Duration
	Scheme          KeyScheme
	ScanCount       int64
	BulkParallelism int
}

// Store persists session data in Redis with a per-key TTL equal to the
// configured max age. Every successful create, update or touch resets the TTL.
type Store struct {
	redis       redis.UniversalClient
	keyspace    string
	maxAge      time.Duration
	scheme      KeyScheme
	scanCount   int64
	parallelism int
}

// NewStore creates a session [Store] backed by the given Redis client. Zero
// config fields fall back to the package defaults.
func NewStore(rdb redis.UniversalClient, cfg Config) *Store {
	if cfg.Keyspace == "" {
		cfg.Keyspace = DefaultKeyspace
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = defaultScanCount
	}
	if cfg.BulkParallelism <= 0 {
		cfg.BulkParallelism = defaultBulkParallelism
	}
	return &Store{
		redis:       rdb,
		keyspace:    cfg.Keyspace,
		maxAge:      cfg.MaxAge,
		scheme:      cfg.Scheme,
		scanCount:   cfg.ScanCount,
		parallelism: cfg.BulkParallelism,
	}
}

// MaxAge returns the TTL applied on every write and touch.
func (s *Store) MaxAge() time.Duration {
	return s.maxAge
}

// Scheme returns the key scheme in use.
func (s *Store) Scheme() KeyScheme {
	return s.scheme
}

// Create writes the record data under a new key with TTL = max age.
//
//	Performance: 1 Redis SET NX.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	if !rec.HasIdentity() {
		return ErrIdentity
	}
	key, err := s.recordKey(rec)
	if err != nil {
		return err
	}
	data, err := Encode(rec.Data)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, key, data, s.maxAge).Result()
	if err != nil {
		return storageErr(err)
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

// Load reads and decodes the data stored for (owner, id).
//
// A missing key is [ErrSessionMissing], which callers should treat as a normal
// outcome; a malformed payload is [ErrSerialization]; anything else is
// [ErrStorage].
//
//	Performance: 1 Redis GET.
func (s *Store) Load(ctx context.Context, owner, id string) (map[string]any, error) {
	if id == "" {
		return nil, ErrIdentity
	}
	if err := s.CheckOwner(owner); err != nil {
		return nil, err
	}
	raw, err := s.redis.Get(ctx, s.Key(owner, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionMissing
		}
		return nil, storageErr(err)
	}
	return Decode(raw)
}

// Touch resets the TTL without rewriting data.
//
//	Performance: 1 Redis EXPIRE.
func (s *Store) Touch(ctx context.Context, rec *Record) error {
	if !rec.HasIdentity() {
		return ErrIdentity
	}
	key, err := s.recordKey(rec)
	if err != nil {
		return err
	}
	ok, err := s.redis.Expire(ctx, key, s.maxAge).Result()
	if err != nil {
		return storageErr(err)
	}
	if !ok {
		return ErrSessionMissing
	}
	return nil
}

// Update rewrites the full serialized data and resets the TTL. Concurrent
// updates of the same id are unordered; the last write wins.
//
//	Performance: 1 Redis SET.
func (s *Store) Update(ctx context.Context, rec *Record) error {
	if !rec.HasIdentity() {
		return ErrIdentity
	}
	key, err := s.recordKey(rec)
	if err != nil {
		return err
	}
	data, err := Encode(rec.Data)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, key, data, s.maxAge).Err(); err != nil {
		return storageErr(err)
	}
	return nil
}

// Reload merges the persisted data into rec.Data. Stored values win; ID and
// Owner are left untouched.
func (s *Store) Reload(ctx context.Context, rec *Record) error {
	if !rec.HasIdentity() {
		return ErrIdentity
	}
	data, err := s.Load(ctx, rec.Owner, rec.ID)
	if err != nil {
		return err
	}
	if rec.Data == nil {
		rec.Data = make(map[string]any, len(data))
	}
	Merge(rec.Data, data)
	return nil
}

// Destroy deletes the record key. Destroying an absent key is not an error.
// The in-memory record keeps its ID.
//
//	Performance: 1 Redis DEL.
func (s *Store) Destroy(ctx context.Context, rec *Record) error {
	if !rec.HasIdentity() {
		return ErrIdentity
	}
	key, err := s.recordKey(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return storageErr(err)
	}
	return nil
}

// Keys lazily enumerates every key stored for owner using SCAN. The sequence
// is finite, unordered, and not a snapshot: keys written or removed while it
// runs may or may not appear. A scan failure is yielded once as the last
// element. Only keys of exactly this owner are yielded.
func (s *Store) Keys(ctx context.Context, owner string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.scheme != KeyByOwner {
			yield("", ErrOwnerScopeRequired)
			return
		}
		if err := s.CheckOwner(owner); err != nil {
			yield("", err)
			return
		}

		it := s.redis.Scan(ctx, 0, s.ownerPattern(owner), s.scanCount).Iterator()
		// SCAN may return a key more than once.
		seen := make(map[string]struct{})
		for it.Next(ctx) {
			key := it.Val()
			if !s.ownsKey(owner, key) {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if !yield(key, nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield("", storageErr(err))
		}
	}
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), storageErr(err)
	}
	return time.Since(start), nil
}
