package session

import (
	"sort"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/rs/zerolog"
)

// Record is the in-memory form of one session.
//
// Only Data is persisted. ID is generated when the session is created and is
// never taken from client input; Claims and RawToken are attached after the
// carrying token has been verified and are read-only by convention.
type Record struct {
	ID       string
	Owner    string
	Data     map[string]any
	Claims   jwt.Claims
	RawToken string
}

// NewRecord allocates an empty, identity-less record.
func NewRecord() *Record {
	return &Record{Data: make(map[string]any)}
}

// HasIdentity reports whether the record carries a session id.
func (r *Record) HasIdentity() bool {
	return r != nil && r.ID != ""
}

// Get returns a data field.
func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.Data == nil {
		return nil, false
	}
	v, ok := r.Data[key]
	return v, ok
}

// Set stores a data field. Reserved keys are accepted in memory but never persisted.
func (r *Record) Set(key string, value any) {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data[key] = value
}

// Delete removes a data field.
func (r *Record) Delete(key string) {
	delete(r.Data, key)
}

// ToJSON returns the plain data object that would be persisted.
func (r *Record) ToJSON() map[string]any {
	if r == nil {
		return map[string]any{}
	}
	return Sanitize(r.Data)
}

// Reset clears identity, claims and data, leaving an empty record.
func (r *Record) Reset() {
	r.ID = ""
	r.Owner = ""
	r.Claims = nil
	r.RawToken = ""
	r.Data = make(map[string]any)
}

// MarshalZerologObject renders the record identity and data keys. Values are
// left out of logs.
func (r *Record) MarshalZerologObject(e *zerolog.Event) {
	if r == nil {
		return
	}
	keys := make([]string, 0, len(r.Data))
	for k := range r.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.Str("sid", r.ID).
		Str("owner", r.Owner).
		Strs("data_keys", keys).
		Bool("has_token", r.RawToken != "")
}
