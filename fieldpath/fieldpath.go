// Package fieldpath reads nested values out of decoded FHIR JSON.
//
// Resources are kept as map[string]any so that unknown elements survive
// parsing. A path is a dot-separated list of element names relative to the
// resource, e.g. "address.postalCode". Arrays met along the way fan out, so
// a path can yield several values.
package fieldpath

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TypeError reports a value that is present but has an unexpected JSON type.
type TypeError struct {
	Path string
	Want string
	Got  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Want, e.Got)
}

// Get returns every value reachable via path. Arrays are flattened at each
// step; JSON null is treated as absent. The result is nil when nothing is
// found.
func Get(root map[string]any, path string) []any {
	if root == nil {
		return nil
	}
	if path == "" {
		return []any{root}
	}

	current := []any{root}
	for _, segment := range strings.Split(path, ".") {
		var next []any
		for _, node := range current {
			obj, ok := node.(map[string]any)
			if !ok {
				continue
			}
			next = appendFlat(next, obj[segment])
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

func appendFlat(dst []any, v any) []any {
	switch val := v.(type) {
	case nil:
		return dst
	case []any:
		for _, item := range val {
			if item != nil {
				dst = append(dst, item)
			}
		}
		return dst
	default:
		return append(dst, val)
	}
}

// Has reports whether path yields at least one non-empty value.
func Has(root map[string]any, path string) bool {
	for _, v := range Get(root, path) {
		if !IsEmpty(v) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether v carries no data: nil, a blank string, an empty
// array or an object whose members are all empty.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		for _, item := range val {
			if !IsEmpty(item) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, item := range val {
			if !IsEmpty(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String returns the first value at path as a string. A missing value
// yields "" and a nil error; a value of another type yields a *TypeError.
func String(root map[string]any, path string) (string, error) {
	values := Get(root, path)
	if len(values) == 0 {
		return "", nil
	}
	s, ok := values[0].(string)
	if !ok {
		return "", &TypeError{Path: path, Want: "string", Got: TypeName(values[0])}
	}
	return s, nil
}

// Strings returns all values at path as strings.
func Strings(root map[string]any, path string) ([]string, error) {
	values := Get(root, path)
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, &TypeError{Path: path, Want: "string", Got: TypeName(v)}
		}
		out = append(out, s)
	}
	return out, nil
}

// Objects returns all values at path that are JSON objects.
// Values of other types are returned as a *TypeError.
func Objects(root map[string]any, path string) ([]map[string]any, error) {
	values := Get(root, path)
	out := make([]map[string]any, 0, len(values))
	for _, v := range values {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, &TypeError{Path: path, Want: "object", Got: TypeName(v)}
		}
		out = append(out, obj)
	}
	return out, nil
}

// TypeName returns the JSON type name of a decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
