package session

import (
	"bytes"
	"encoding/json"
	"io"
	"fmt"
	"reflect"
)

// reservedKeys are never serialized to, nor merged back from, the store.
var reservedKeys = map[string]struct{}{
	"id":       {},
	"owner":    {},
	"claims":   {},
	"rawToken": {},
	"jwt":      {},
	"create":   {},
	"touch":    {},
	"update":   {},
	"reload":   {},
	"destroy":  {},
	"toJSON":   {},
}

// IsReserved reports whether key is excluded from serialization.
func IsReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// Sanitize returns a copy of data without reserved keys and without top-level
// values JSON cannot represent (funcs, channels, complex numbers, unsafe
// pointers). Sanitize(Sanitize(x)) equals Sanitize(x).
func Sanitize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if IsReserved(k) || !serializable(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func serializable(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return false
	default:
		return true
	}
}

// Encode serializes the sanitized data as a JSON object. Nested values that
// cannot be marshaled fail with [ErrSerialization].
func Encode(data map[string]any) ([]byte, error) {
	raw, err := json.Marshal(Sanitize(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return raw, nil
}

// Decode parses a stored payload. Anything other than a JSON object (or null)
// fails with [ErrSerialization]. Numbers decode as [json.Number] so integers
// beyond 2^53 survive an update/reload cycle unchanged.
func Decode(raw []byte) (map[string]any, error) {
	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrSerialization)
	}
	if data == nil {
		data = make(map[string]any)
	}
	for k := range data {
		if IsReserved(k) {
			delete(data, k)
		}
	}
	return data, nil
}

// Merge copies every non-reserved key of src over dst.
func Merge(dst, src map[string]any) {
	for k, v := range src {
		if IsReserved(k) {
			continue
		}
		dst[k] = v
	}
}
