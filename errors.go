package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// Errors returned by Engine and Session methods. They are the same values the
// jwt and session packages return, so errors.Is works across layers.
var (
	// ErrIdentity is returned when an operation needs a session id that is absent.
	ErrIdentity = session.ErrIdentity
	// ErrInvalidToken is returned for signature, expiry, claim or shape failures.
	ErrInvalidToken = jwt.ErrInvalidToken
	// ErrSessionMissing means the session expired or was destroyed.
	ErrSessionMissing = session.ErrSessionMissing
	// ErrSerialization is returned when data is not representable as a JSON object.
	ErrSerialization = session.ErrSerialization
	// ErrStorage wraps every Redis transport or command failure.
	ErrStorage = session.ErrStorage
	// ErrSessionExists is returned when a generated id collides on create.
	ErrSessionExists = session.ErrSessionExists
	// ErrOwnerScopeRequired is returned by owner operations when keys are not owner-scoped.
	ErrOwnerScopeRequired = session.ErrOwnerScopeRequired
	// ErrOwnerInvalid is returned under the owner key scheme for an owner containing ':'.
	ErrOwnerInvalid = session.ErrOwnerInvalid
	// ErrNoToken is returned by [Engine.Open] and [Engine.Verify] for an empty token.
	ErrNoToken = errors.New("no session token")
	// ErrEngineNotReady is returned by methods on a nil engine or a detached session.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// BulkError reports a fail-fast abort of an owner bulk operation.
type BulkError = session.BulkError
