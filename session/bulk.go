package session

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Bulk operation names reported in [BulkError].
const (
	OpUpdateAll  = "update_all"
	OpDestroyAll = "destroy_all"
)

type keyError struct {
	key string
	err error
}

func (e *keyError) Error() string { return e.err.Error() }
func (e *keyError) Unwrap() error { return e.err }

// Count returns how many sessions are stored for owner.
//
// This is an O(n) SCAN and must not be used in request hot paths.
func (s *Store) Count(ctx context.Context, owner string) (int, error) {
	keys, err := s.collectKeys(ctx, owner)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// UpdateAll writes data to every session of owner and resets their TTL. Keys
// that expire between the scan and the write are skipped rather than
// recreated. It returns the number of sessions written.
//
// ATOMICITY NOTE: the scan and the writes are separate steps. A session
// created after the scan is not updated by this call.
func (s *Store) UpdateAll(ctx context.Context, owner string, data map[string]any) (int, error) {
	encoded, err := Encode(data)
	if err != nil {
		return 0, err
	}
	keys, err := s.collectKeys(ctx, owner)
	if err != nil {
		return 0, err
	}
	return s.fanOut(ctx, OpUpdateAll, owner, keys, func(ctx context.Context, key string) (bool, error) {
		ok, err := s.redis.SetXX(ctx, key, encoded, s.maxAge).Result()
		if err != nil {
			return false, storageErr(err)
		}
		return ok, nil
	})
}

// DestroyAll deletes every session of owner and returns how many were removed.
func (s *Store) DestroyAll(ctx context.Context, owner string) (int, error) {
	keys, err := s.collectKeys(ctx, owner)
	if err != nil {
		return 0, err
	}
	return s.fanOut(ctx, OpDestroyAll, owner, keys, func(ctx context.Context, key string) (bool, error) {
		n, err := s.redis.Del(ctx, key).Result()
		if err != nil {
			return false, storageErr(err)
		}
		return n > 0, nil
	})
}

func (s *Store) collectKeys(ctx context.Context, owner string) ([]string, error) {
	var keys []string
	for key, err := range s.Keys(ctx, owner) {
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// fanOut applies fn to keys with at most s.parallelism calls in flight. The
// first failure cancels the rest; every key not confirmed done is reported.
func (s *Store) fanOut(
	ctx context.Context,
	op, owner string,
	keys []string,
	fn func(ctx context.Context, key string) (bool, error),
) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	var (
		mu      sync.Mutex
		done    = make(map[string]struct{}, len(keys))
		applied int
	)

	for _, key := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &keyError{key: key, err: err}
			}
			ok, err := fn(gctx, key)
			if err != nil {
				return &keyError{key: key, err: err}
			}
			mu.Lock()
			done[key] = struct{}{}
			if ok {
				applied++
			}
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err == nil && len(done) < len(keys) {
		// The loop stopped early because the caller's context ended.
		err = ctx.Err()
		if err == nil {
			err = context.Canceled
		}
	}
	if err == nil {
		return applied, nil
	}

	bulkErr := &BulkError{Op: op, Owner: owner, Err: err}
	var ke *keyError
	if errors.As(err, &ke) {
		bulkErr.Key = ke.key
		bulkErr.Err = ke.err
	}
	for _, key := range keys {
		if _, ok := done[key]; !ok {
			bulkErr.Unprocessed = append(bulkErr.Unprocessed, key)
		}
	}
	return applied, bulkErr
}
