// Package session provides the session record model, its JSON serialization
// contract, and the Redis-backed store that persists session data under a TTL.
//
// # Storage format
//
// A session is stored as a JSON object holding only its data fields. Identity
// fields and reserved operation names are never written, so the value can be
// merged back into a record without clobbering its id or owner.
//
// # Key schemes
//
// A [Store] uses exactly one [KeyScheme] for every operation: `keyspace+id`
// ([KeyByID]) or `keyspace:owner:id` ([KeyByOwner]). Only the owner scheme
// supports enumeration and the owner bulk operations.
//
// # Architecture boundaries
//
// This package owns Redis I/O and the record model. It does NOT sign or verify
// tokens, read HTTP requests, or decide whether a missing session is an error
// for the caller; those belong to the jwt package, the middleware, and the
// Engine.
//
// # What this package must NOT do
//
//   - Import goSession, jwt, or middleware (no upward imports).
//   - Swallow backend errors: every transport failure surfaces as [ErrStorage].
//   - Serialize identity fields into the stored value.
package session
