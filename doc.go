// Package goSession provides Redis-backed sessions addressed by signed JWTs.
//
// A session is a JSON object stored in Redis under a key derived from a
// random id. The id travels to the client inside a signed token (`jti`), so
// the server trusts only ids it issued. Every create, update or touch resets
// the key TTL to the configured max age; a session not written or touched for
// that long is gone.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. A [Session] is request scoped and
// not safe for concurrent use.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config],
// [Session] and value types such as [MetricsSnapshot]. Token signing lives in
// the jwt package, Redis layout and payload encoding in the session package,
// and HTTP request handling in the middleware package.
//
// # Error model
//
// Expected absences ([ErrNoToken], [ErrInvalidToken], [ErrSessionMissing])
// are distinct from [ErrStorage], which means the outcome is unknown. Storage
// errors are never turned into "no session".
//
// # Performance contract
//
// [Engine.Open] costs one token verification and one Redis GET. Owner bulk
// operations scan the keyspace and are meant for administrative paths.
package goSession
