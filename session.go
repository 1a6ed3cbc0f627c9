package goSession

import (
	"context"
	"encoding/json"

	"github.com/MrEthical07/goSession/session"
)

// Session is the request-scoped handle over one session record. It embeds
// [session.Record], so ID, Owner, Data, Claims and RawToken are accessed
// directly; lifecycle methods go through the engine that produced it.
//
// A Session is not safe for concurrent use. Each request gets its own.
type Session struct {
	session.Record
	engine *Engine
}

// Create persists the current data under a fresh id, signs a token carrying
// that id plus claims, and returns the token. The owner is taken from a string
// `sub` claim when present, otherwise the session's current Owner is kept.
// Any previous identity is replaced.
func (s *Session) Create(ctx context.Context, claims map[string]any) (string, error) {
	if s == nil || s.engine == nil {
		return "", ErrEngineNotReady
	}
	return s.engine.create(ctx, s, "", claims)
}

// Touch resets the session TTL without writing data.
func (s *Session) Touch(ctx context.Context) error {
	if s == nil {
		return ErrEngineNotReady
	}
	return s.engine.Touch(ctx, s)
}

// Update rewrites the stored data with the in-memory data and resets the TTL.
func (s *Session) Update(ctx context.Context) error {
	if s == nil {
		return ErrEngineNotReady
	}
	return s.engine.Update(ctx, s)
}

// Reload merges stored data into the in-memory data; stored values win.
func (s *Session) Reload(ctx context.Context) error {
	if s == nil {
		return ErrEngineNotReady
	}
	return s.engine.Reload(ctx, s)
}

// Destroy deletes the stored session. The token stays verifiable but no
// longer resolves to a session.
func (s *Session) Destroy(ctx context.Context) error {
	if s == nil {
		return ErrEngineNotReady
	}
	return s.engine.Destroy(ctx, s)
}

// UpdateAll writes this session's data to every session of its owner.
func (s *Session) UpdateAll(ctx context.Context) (int, error) {
	if s == nil {
		return 0, ErrEngineNotReady
	}
	if s.Owner == "" {
		return 0, ErrIdentity
	}
	return s.engine.UpdateAllForOwner(ctx, s.Owner, s.Data)
}

// DestroyAll deletes every session of this session's owner, this one included.
func (s *Session) DestroyAll(ctx context.Context) (int, error) {
	if s == nil {
		return 0, ErrEngineNotReady
	}
	if s.Owner == "" {
		return 0, ErrIdentity
	}
	return s.engine.DestroyAllForOwner(ctx, s.Owner)
}

// Count returns how many sessions the owner currently has.
func (s *Session) Count(ctx context.Context) (int, error) {
	if s == nil {
		return 0, ErrEngineNotReady
	}
	if s.Owner == "" {
		return 0, ErrIdentity
	}
	return s.engine.CountForOwner(ctx, s.Owner)
}

// MarshalJSON renders the persistable data only.
func (s *Session) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.ToJSON())
}
