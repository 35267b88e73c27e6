// Package jsonx wraps the tinyjson parser with total (non-panicking)
// helpers for the small JSON bodies the device consumes.
package jsonx

import (
	"github.com/andreyvit/tinyjson"

	"envmon-go/errcode"
)

// Object parses body as a single JSON object. Malformed input returns
// invalid_payload instead of panicking.
func Object(body []byte) (m map[string]any, err error) {
	defer func() {
		if recover() != nil {
			m, err = nil, &errcode.E{C: errcode.InvalidPayload, Op: "jsonx.object", Msg: "malformed json"}
		}
	}()
	r := tinyjson.Raw(body)
	v := r.Value()
	r.EnsureEOF()
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidPayload, Op: "jsonx.object", Msg: "not an object"}
	}
	return obj, nil
}

// Num reads a numeric field, accepting the integer and float forms the
// parser may produce.
func Num(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Str reads a string field.
func Str(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}
