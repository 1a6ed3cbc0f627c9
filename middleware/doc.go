// Package middleware adapts a goSession.Engine to net/http.
//
// # Handlers
//
//   - [Sessions] attaches a request-scoped session to every request.
//   - [RequireSession] rejects requests whose session has no identity.
//   - [RequireToken] verifies the token only, no Redis call.
//
// The token is looked up by an [Extractor] in path values, the request
// body, the query string, a header and a cookie, in that order.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not sign
// or parse tokens and never talks to Redis directly.
package middleware
