// Package jwt issues and verifies the compact signed tokens that carry a session
// identifier.
//
// # Token shape
//
// Every token is a standard JWS whose payload contains the reserved `jti` claim
// (a freshly generated UUIDv4 that doubles as the session key) plus whatever
// claims the caller supplied. The owner of a session, when there is one, travels
// in `sub`.
//
// # Architecture boundaries
//
// This package owns the signing algorithm, key material and validation rules. It
// does NOT touch Redis, decide what a missing session means, or read HTTP
// requests; those belong to the session store and the middleware.
//
// # What this package must NOT do
//
//   - Import goSession, session, or middleware (no upward imports).
//   - Accept a caller-supplied `jti`.
//   - Return claims from a token that failed any validation step.
package jwt
