package registry

import (
	"context"
	"io"
	"net/http"

	errors "github.com/Laisky/errors/v2"

	models "github.com/Laisky/logviewer/library/models/files"
)

// Prober checks whether a node answers.
type Prober interface {
	Probe(ctx context.Context, node NodeConfig) error
}

// HTTPProber probes GET {internalUrl}/health.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber wraps client. A nil client falls back to http.DefaultClient;
// per-probe deadlines come from the context.
func NewHTTPProber(client *http.Client) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{client: client}
}

// Probe implements Prober. Any 2xx answer counts as healthy.
func (p *HTTPProber) Probe(ctx context.Context, node NodeConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, node.InternalURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "new health request")
	}
	if node.APIKey != "" {
		req.Header.Set(models.HeaderAPIKey, node.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "do health request")
	}
	defer resp.Body.Close() // nolint: errcheck
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
