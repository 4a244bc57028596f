package config

import (
	"fmt"
	"strings"

	gconfig "github.com/Laisky/go-config/v2"
)

// Getter retrieves raw configuration values by dotted key path.
type Getter func(key string) any

// Shared reads from the process-wide configuration.
func Shared() Getter {
	return func(key string) any {
		return gconfig.S.Get(key)
	}
}

// MapGetter builds a dotted-path getter over nested maps, used by tests and
// by callers that already hold a decoded configuration tree.
func MapGetter(root map[string]any) Getter {
	return func(key string) any {
		if key == "" {
			return nil
		}

		var current any = root
		for _, part := range strings.Split(key, ".") {
			nextMap := ToStringMap(current)
			if nextMap == nil {
				return nil
			}
			next, ok := nextMap[part]
			if !ok {
				return nil
			}
			current = next
		}

		return current
	}
}

// Int reads an int configuration value with a default fallback.
func (g Getter) Int(key string, def int) int {
	return int(g.Int64(key, int64(def)))
}

// Int64 reads an int64 configuration value with a default fallback.
func (g Getter) Int64(key string, def int64) int64 {
	switch v := g(key).(type) {
	case nil:
		return def
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return def
		}
		var parsed int64
		if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// Bool reads a boolean configuration value with a default fallback.
func (g Getter) Bool(key string, def bool) bool {
	switch v := g(key).(type) {
	case nil:
		return def
	case bool:
		return v
	case int:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		default:
			return def
		}
	default:
		return def
	}
}

// String reads a trimmed string configuration value with a default fallback.
func (g Getter) String(key, def string) string {
	switch v := g(key).(type) {
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	case []byte:
		if trimmed := strings.TrimSpace(string(v)); trimmed != "" {
			return trimmed
		}
	}
	return def
}

// StringSlice reads a list of strings. A comma separated string is accepted too.
func (g Getter) StringSlice(key string) []string {
	var out []string
	switch v := g(key).(type) {
	case []string:
		for _, item := range v {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// ToStringMap converts decoded YAML/JSON objects into map[string]any.
// It returns nil when value is not an object.
func ToStringMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[fmt.Sprint(key)] = val
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = val
		}
		return out
	default:
		return nil
	}
}

// ToSlice converts decoded YAML/JSON arrays into []any.
// It returns nil when value is not an array.
func ToSlice(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []map[string]any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, item)
		}
		return out
	default:
		return nil
	}
}
