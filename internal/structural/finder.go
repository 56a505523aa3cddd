// Package structural implements predicate search over decoded JSON values.
//
// The upstream API nests media descriptors at variable depth behind versioned
// wrapper types. Matching nodes by a stable predicate ("this object's type
// field equals video") survives envelope reshaping that breaks any fixed
// field-path traversal.
package structural

import "sort"

// Predicate reports whether a decoded JSON value is a match.
type Predicate func(value any) bool

// Find walks value depth-first and returns every subtree the predicate
// matches. A matched node is returned whole and not descended into, so
// matches are never nested inside other returned matches; sibling matches
// elsewhere in the tree are still found.
//
// Strings are leaves and are never inspected for sub-structure. Object keys
// are visited in sorted order so results are deterministic.
//
// Find returns nil, not an empty slice, when nothing matches anywhere.
// Callers must treat nil and empty identically as "nothing found".
func Find(value any, pred Predicate) []any {
	if value == nil {
		return nil
	}
	if pred(value) {
		return []any{value}
	}

	var results []any
	switch v := value.(type) {
	case []any:
		for _, elem := range v {
			results = append(results, Find(elem, pred)...)
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			results = append(results, Find(v[k], pred)...)
		}
	default:
		// Strings, numbers, booleans: leaves.
		return nil
	}

	if len(results) == 0 {
		return nil
	}
	return results
}

// FindOne returns the first match in Find's traversal order, or nil.
func FindOne(value any, pred Predicate) any {
	matches := Find(value, pred)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// ObjectWhere adapts a predicate over JSON objects into a Predicate,
// rejecting every non-object node. Most callers match on object fields.
func ObjectWhere(pred func(obj map[string]any) bool) Predicate {
	return func(value any) bool {
		obj, ok := value.(map[string]any)
		if !ok {
			return false
		}
		return pred(obj)
	}
}
