package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIdentity is returned when an operation needs a session id and the record has none.
	ErrIdentity = errors.New("session has no id")
	// ErrSessionMissing means nothing is stored under the session key: it expired or was destroyed.
	ErrSessionMissing = errors.New("session not found")
	// ErrSerialization is returned when session data cannot be encoded or a stored payload is not a JSON object.
	ErrSerialization = errors.New("session serialization failed")
	// ErrStorage wraps every backend transport or command failure.
	ErrStorage = errors.New("session storage unavailable")
	// ErrSessionExists is returned by Create when the generated id is already taken.
	ErrSessionExists = errors.New("session id already exists")
	// ErrOwnerScopeRequired is returned by enumeration and bulk operations on a store keyed by id only.
	ErrOwnerScopeRequired = errors.New("owner-scoped key scheme required")
	// ErrOwnerInvalid is returned under KeyByOwner for an owner containing ':'.
	ErrOwnerInvalid = errors.New("session owner must not contain ':'")
)

// BulkError reports a fail-fast abort of an owner bulk operation.
//
// Key is the key whose operation failed, Unprocessed every key that was not
// successfully handled (Key included). Err is the underlying cause.
type BulkError struct {
	Op          string
	Owner       string
	Key         string
	Unprocessed []string
	Err         error
}

func (e *BulkError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "session %s for owner %q aborted", e.Op, e.Owner)
	if e.Key != "" {
		fmt.Fprintf(&b, " at key %q", e.Key)
	}
	fmt.Fprintf(&b, " with %d unprocessed keys: %v", len(e.Unprocessed), e.Err)
	return b.String()
}

func (e *BulkError) Unwrap() error {
	return e.Err
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
