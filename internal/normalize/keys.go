// Package normalize holds key-path normalization and tree flattening shared
// by configuration sources.
package normalize

import "strings"

// ToLowerDotPath normalizes a configuration key to a lowercase dot-separated
// path. Double underscores (__) are level separators and become dots; single
// underscores within a level are preserved.
//
//	"FOO__BAR"        → "foo.bar"
//	"DB_MAX_CONNS"    → "db_max_conns"
//	"API__RATE_LIMIT" → "api.rate_limit"
func ToLowerDotPath(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}

// ApplyPrefix joins a prefix and a key into a nested path. Either side may be
// empty, in which case the other is returned unchanged.
func ApplyPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

// Flatten converts a nested value tree into a flat map of dot-separated keys.
// Map values recurse; everything else (scalars, lists) is a leaf. Keys are
// attached beneath prefix when it is non-empty. Non-string map keys are
// skipped.
func Flatten(prefix string, tree map[string]any, result map[string]any) {
	for key, value := range tree {
		path := ApplyPrefix(prefix, key)
		switch v := value.(type) {
		case map[string]any:
			Flatten(path, v, result)
		case map[any]any:
			sub := make(map[string]any, len(v))
			for k, val := range v {
				if ks, ok := k.(string); ok {
					sub[ks] = val
				}
			}
			Flatten(path, sub, result)
		default:
			result[path] = value
		}
	}
}
