package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/Laisky/logviewer/library/config"
)

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(config.Shared())
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get config.Getter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateNodeConfig(get, &validationErrs)
	validateGatewayConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateNodeConfig validates the file-serving node settings.
func validateNodeConfig(get config.Getter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.node.api_key", errs)

	if raw := get("settings.node.roots"); raw != nil {
		roots := config.ToStringMap(raw)
		if roots == nil {
			appendValidationError(errs, "settings.node.roots must be an object of name to path")
		}
		for name, path := range roots {
			text, err := parseStrictString(path)
			if err != nil || strings.TrimSpace(text) == "" {
				appendValidationError(errs, "settings.node.roots.%s must be a non-empty path", name)
			}
		}
	}

	if raw := get("settings.node.files.allowed_extensions"); raw != nil {
		switch raw.(type) {
		case string, []string, []any:
		default:
			appendValidationError(errs, "settings.node.files.allowed_extensions must be a list of extensions")
		}
	}
	validateOptionalInt64Min(get, "settings.node.files.max_file_bytes", 1, errs)
	validateOptionalEncoding(get, "settings.node.files.default_encoding", errs)
	validateOptionalIntMin(get, "settings.node.search.workers", 1, errs)
	validateOptionalIntMin(get, "settings.node.search.timeout_seconds", 0, errs)
}

// validateGatewayConfig validates the gateway settings.
func validateGatewayConfig(get config.Getter, errs *[]string) {
	validateOptionalIntMin(get, "settings.gateway.health.timeout_seconds", 1, errs)
	validateOptionalIntMin(get, "settings.gateway.health.interval_seconds", 1, errs)
	validateOptionalIntMin(get, "settings.gateway.proxy.timeout_seconds", 1, errs)
	validateOptionalIntMin(get, "settings.gateway.cache.ttl_seconds", -1, errs)
	validateOptionalStringNonEmpty(get, "settings.gateway.cache.redis.addr", errs)
	validateOptionalIntMin(get, "settings.gateway.cache.redis.db", 0, errs)

	raw := get("settings.gateway.nodes")
	if raw == nil {
		return
	}
	nodes := config.ToSlice(raw)
	if nodes == nil {
		appendValidationError(errs, "settings.gateway.nodes must be a list")
		return
	}

	seen := make(map[string]struct{}, len(nodes))
	for i, rawNode := range nodes {
		node := config.ToStringMap(rawNode)
		label := fmt.Sprintf("settings.gateway.nodes[%d]", i)
		if node == nil {
			appendValidationError(errs, "%s must be an object", label)
			continue
		}

		validateRequiredStringInMap(errs, node, label+".id")
		validateRequiredStringInMap(errs, node, label+".internal_url")

		if id, err := parseStrictString(node["id"]); err == nil && strings.TrimSpace(id) != "" {
			id = strings.TrimSpace(id)
			if _, ok := seen[id]; ok {
				appendValidationError(errs, "%s.id %q is duplicated", label, id)
			}
			seen[id] = struct{}{}
		}
		if rawURL, err := parseStrictString(node["internal_url"]); err == nil && strings.TrimSpace(rawURL) != "" {
			parsed, err := url.Parse(strings.TrimSpace(rawURL))
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				appendValidationError(errs, "%s.internal_url must be a valid absolute http(s) URL", label)
			}
		}
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get config.Getter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalInt64Min validates an optionally configured int64 key with a minimum constraint.
func validateOptionalInt64Min(get config.Getter, key string, min int64, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt64(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get config.Getter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// validateOptionalEncoding validates an optionally configured WHATWG encoding label.
func validateOptionalEncoding(get config.Getter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}
	if _, err := htmlindex.Get(strings.ToLower(strings.TrimSpace(value))); err != nil {
		appendValidationError(errs, "%s: unknown encoding %q", key, value)
	}
}

// validateRequiredStringInMap validates that a required map field is a non-empty string.
// It accepts an error collector pointer, a source map, and the field path label, and appends validation errors.
func validateRequiredStringInMap(errs *[]string, source map[string]any, fieldPath string) {
	parts := strings.Split(fieldPath, ".")
	key := parts[len(parts)-1]
	value, ok := source[key]
	if !ok {
		appendValidationError(errs, "%s is required", fieldPath)
		return
	}

	text, parseErr := parseStrictString(value)
	if parseErr != nil || strings.TrimSpace(text) == "" {
		appendValidationError(errs, "%s must be a non-empty string", fieldPath)
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed integer and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictInt64 parses a value as a strict int64.
func parseStrictInt64(value any) (int64, error) {
	parsed, err := parseStrictInt(value)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int64(parsed), nil
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
