package session

import "strings"

const keySeparator = ":"

// KeyScheme selects how storage keys are derived from a session.
type KeyScheme int

const (
	// KeyByID stores sessions at keyspace+id.
	KeyByID KeyScheme = iota
	// KeyByOwner stores sessions at keyspace:owner:id and enables owner enumeration.
	KeyByOwner
)

func (k KeyScheme) String() string {
	switch k {
	case KeyByID:
		return "id"
	case KeyByOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// ParseKeyScheme maps "id" and "owner" to their schemes.
func ParseKeyScheme(s string) (KeyScheme, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "id":
		return KeyByID, true
	case "owner":
		return KeyByOwner, true
	default:
		return KeyByID, false
	}
}

// Key derives the storage key for (owner, id). The same tuple always maps to
// the same key; under KeyByID the owner is ignored.
func (s *Store) Key(owner, id string) string {
	if s.scheme == KeyByOwner {
		return s.keyspace + keySeparator + owner + keySeparator + id
	}
	return s.keyspace + id
}

// CheckOwner reports whether owner can be used in a key. Under KeyByOwner the
// owner segment must not contain the separator, otherwise the enumeration
// pattern of one owner would match the keys of another ("alice" and
// "alice:admin").
func (s *Store) CheckOwner(owner string) error {
	if s.scheme == KeyByOwner && strings.Contains(owner, keySeparator) {
		return ErrOwnerInvalid
	}
	return nil
}

func (s *Store) recordKey(rec *Record) (string, error) {
	if err := s.CheckOwner(rec.Owner); err != nil {
		return "", err
	}
	return s.Key(rec.Owner, rec.ID), nil
}

// ownsKey reports whether key, returned by a SCAN on ownerPattern(owner), is
// exactly keyspace:owner:<id> with no further separator.
func (s *Store) ownsKey(owner, key string) bool {
	prefix := s.keyspace + keySeparator + owner + keySeparator
	id, ok := strings.CutPrefix(key, prefix)
	return ok && id != "" && !strings.Contains(id, keySeparator)
}

func (s *Store) ownerPattern(owner string) string {
	return s.keyspace + keySeparator + escapeGlob(owner) + keySeparator + "*"
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
