package registry

import (
	"net/url"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"

	"github.com/Laisky/logviewer/library/config"
)

const (
	defaultHealthTimeout  = 5 * time.Second
	defaultHealthInterval = 30 * time.Second
)

// NodeConfig is one statically configured file-serving node.
type NodeConfig struct {
	ID          string
	Name        string
	InternalURL string
	APIKey      string
}

// Settings configures the node registry.
type Settings struct {
	Nodes []NodeConfig
	// HealthTimeout bounds each health probe.
	HealthTimeout time.Duration
	// HealthInterval is the period of background refreshes.
	HealthInterval time.Duration
}

// LoadSettings reads settings.gateway.nodes and settings.gateway.health.*.
func LoadSettings(get config.Getter) (Settings, error) {
	settings := Settings{
		HealthTimeout:  time.Duration(get.Int("settings.gateway.health.timeout_seconds", 0)) * time.Second,
		HealthInterval: time.Duration(get.Int("settings.gateway.health.interval_seconds", 0)) * time.Second,
	}

	for i, raw := range config.ToSlice(get("settings.gateway.nodes")) {
		item := config.ToStringMap(raw)
		if item == nil {
			return Settings{}, errors.Errorf("settings.gateway.nodes[%d] must be an object", i)
		}
		node := config.MapGetter(item)
		settings.Nodes = append(settings.Nodes, NodeConfig{
			ID:          node.String("id", ""),
			Name:        node.String("name", ""),
			InternalURL: node.String("internal_url", ""),
			APIKey:      node.String("api_key", ""),
		})
	}

	settings = settings.withDefaults()
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s Settings) withDefaults() Settings {
	if s.HealthTimeout <= 0 {
		s.HealthTimeout = defaultHealthTimeout
	}
	if s.HealthInterval <= 0 {
		s.HealthInterval = defaultHealthInterval
	}

	nodes := make([]NodeConfig, 0, len(s.Nodes))
	for _, node := range s.Nodes {
		node.ID = strings.TrimSpace(node.ID)
		node.InternalURL = strings.TrimRight(strings.TrimSpace(node.InternalURL), "/")
		if strings.TrimSpace(node.Name) == "" {
			node.Name = node.ID
		}
		nodes = append(nodes, node)
	}
	s.Nodes = nodes
	return s
}

// Validate checks node ids are present and unique and every internal url
// is an absolute http(s) url.
func (s Settings) Validate() error {
	seen := make(map[string]struct{}, len(s.Nodes))
	for i, node := range s.Nodes {
		if node.ID == "" {
			return errors.Errorf("node #%d: id is required", i)
		}
		if _, ok := seen[node.ID]; ok {
			return errors.Errorf("node %q: duplicate id", node.ID)
		}
		seen[node.ID] = struct{}{}

		u, err := url.Parse(node.InternalURL)
		if err != nil {
			return errors.Wrapf(err, "node %q: parse internal url", node.ID)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.Errorf("node %q: internal url must be an absolute http(s) url", node.ID)
		}
	}
	return nil
}
