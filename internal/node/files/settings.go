package files

import (
	"runtime"
	"strings"
	"time"

	"github.com/Laisky/logviewer/library/config"
)

const (
	defaultMaxFileBytes    int64 = 10 * 1024 * 1024
	defaultDefaultEncoding       = "utf-8"
)

// DefaultAllowedExtensions is the allow-list used when none is configured.
var DefaultAllowedExtensions = []string{".log", ".txt"}

// Settings captures the immutable runtime configuration of a node's file
// service. It is built once at startup and passed into NewService.
type Settings struct {
	Roots             map[string]string
	AllowedExtensions []string
	MaxFileBytes      int64
	// DefaultEncoding is the WHATWG name used when a file has no BOM and
	// does not look like UTF-8.
	DefaultEncoding string
	Search          SearchSettings
}

// SearchSettings configures the content search engine.
type SearchSettings struct {
	Workers int
	// Timeout bounds one search. Zero means only the caller context applies.
	Timeout time.Duration
}

// LoadSettings reads node configuration and applies safe defaults.
func LoadSettings(get config.Getter) Settings {
	settings := Settings{
		Roots:             map[string]string{},
		AllowedExtensions: get.StringSlice("settings.node.files.allowed_extensions"),
		MaxFileBytes:      get.Int64("settings.node.files.max_file_bytes", defaultMaxFileBytes),
		DefaultEncoding:   get.String("settings.node.files.default_encoding", defaultDefaultEncoding),
		Search: SearchSettings{
			Workers: get.Int("settings.node.search.workers", 0),
			Timeout: time.Duration(get.Int("settings.node.search.timeout_seconds", 0)) * time.Second,
		},
	}

	for name, path := range config.ToStringMap(get("settings.node.roots")) {
		if s, ok := path.(string); ok {
			settings.Roots[name] = s
		}
	}

	return settings.withDefaults()
}

// withDefaults fills zero values with defaults.
func (s Settings) withDefaults() Settings {
	normalized := make([]string, 0, len(s.AllowedExtensions))
	for _, ext := range s.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultAllowedExtensions...)
	}
	s.AllowedExtensions = normalized

	if s.MaxFileBytes <= 0 {
		s.MaxFileBytes = defaultMaxFileBytes
	}
	if strings.TrimSpace(s.DefaultEncoding) == "" {
		s.DefaultEncoding = defaultDefaultEncoding
	}
	if s.Search.Workers <= 0 {
		s.Search.Workers = runtime.GOMAXPROCS(0)
	}
	if s.Search.Timeout < 0 {
		s.Search.Timeout = 0
	}
	return s
}
