// Package proxy forwards gateway requests to file-serving nodes and wraps
// their answers in envelopes.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/Laisky/logviewer/internal/gateway/cache"
	"github.com/Laisky/logviewer/internal/gateway/registry"
	"github.com/Laisky/logviewer/library/config"
	"github.com/Laisky/logviewer/library/log"
	"github.com/Laisky/logviewer/library/metrics"
	models "github.com/Laisky/logviewer/library/models/files"
)

const (
	defaultTimeout = 5 * time.Minute
	// maxErrorBodyBytes bounds how much of a failed response is kept.
	maxErrorBodyBytes = 64 * 1024

	msgCommunication = "error communicating with file server"

	// unknownNodeLabel replaces ids that are not configured in metrics.
	unknownNodeLabel = "unknown"
)

// Operation names used in logs and metrics.
const (
	OpRoots  = "roots"
	OpBrowse = "browse"
	OpFile   = "file"
	OpSearch = "search"
)

// Resolver looks up nodes by id.
type Resolver interface {
	Lookup(id string) (registry.NodeDescriptor, error)
}

// Settings configures the proxy.
type Settings struct {
	Timeout time.Duration
}

// LoadSettings reads settings.gateway.proxy.*.
func LoadSettings(get config.Getter) Settings {
	return Settings{
		Timeout: time.Duration(get.Int("settings.gateway.proxy.timeout_seconds", 0)) * time.Second,
	}
}

// Proxy issues one HTTP call per operation to the resolved node.
type Proxy struct {
	nodes  Resolver
	client *http.Client
	roots  cache.RootsCache
	logger logSDK.Logger
}

// Option customizes a Proxy.
type Option func(*Proxy)

// WithHTTPClient replaces the shared http client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Proxy) {
		if client != nil {
			p.client = client
		}
	}
}

// WithRootsCache caches roots responses in c.
func WithRootsCache(c cache.RootsCache) Option {
	return func(p *Proxy) {
		p.roots = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger logSDK.Logger) Option {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a proxy resolving nodes via nodes.
func New(nodes Resolver, settings Settings, opts ...Option) *Proxy {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	p := &Proxy{
		nodes:  nodes,
		client: &http.Client{Timeout: timeout},
		logger: log.Logger.Named("proxy"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Roots lists the roots of nodeID. Cached roots are only served for a
// configured node that is currently healthy.
func (p *Proxy) Roots(ctx context.Context, nodeID string) models.Envelope[[]models.RootDirectory] {
	if node, err := p.nodes.Lookup(nodeID); p.roots != nil && err == nil && node.IsHealthy {
		roots, ok, err := p.roots.Get(ctx, nodeID)
		if err != nil {
			p.logger.Warn("read roots cache", zap.String("node", nodeID), zap.Error(err))
		} else if ok {
			return models.Envelope[[]models.RootDirectory]{Success: true, Data: roots, NodeID: nodeID}
		}
	}

	var roots []models.RootDirectory
	env := do(ctx, p, nodeID, OpRoots, http.MethodGet, "/roots", nil, nil, &roots)
	if !env.Success {
		return env
	}

	if p.roots != nil {
		if err := p.roots.Set(ctx, nodeID, env.Data); err != nil {
			p.logger.Warn("write roots cache", zap.String("node", nodeID), zap.Error(err))
		}
	}
	return env
}

// InvalidateRoots drops the cached roots of nodeID.
func (p *Proxy) InvalidateRoots(ctx context.Context, nodeID string) {
	if p.roots == nil {
		return
	}
	if err := p.roots.Delete(ctx, nodeID); err != nil {
		p.logger.Warn("invalidate roots cache", zap.String("node", nodeID), zap.Error(err))
	}
}

// Browse lists rootName/path on nodeID.
func (p *Proxy) Browse(ctx context.Context, nodeID, rootName, path string) models.Envelope[[]models.FileItem] {
	var items []models.FileItem
	return do(ctx, p, nodeID, OpBrowse, http.MethodGet, "/browse", fileQuery(rootName, path), nil, &items)
}

// FileContents reads rootName/path on nodeID.
//
// A node that answers with success=false keeps its error message, the
// envelope itself stays successful so callers can see the size.
func (p *Proxy) FileContents(ctx context.Context, nodeID, rootName, path string) models.Envelope[models.FileReadResult] {
	var result models.FileReadResult
	return do(ctx, p, nodeID, OpFile, http.MethodGet, "/file", fileQuery(rootName, path), nil, &result)
}

// Search runs query on nodeID.
func (p *Proxy) Search(ctx context.Context, nodeID string, query models.SearchQuery) models.Envelope[[]models.SearchHit] {
	var resp models.SearchResponse
	env := do(ctx, p, nodeID, OpSearch, http.MethodPost, "/search", nil, query, &resp)
	out := models.Envelope[[]models.SearchHit]{
		Success:      env.Success,
		ErrorMessage: env.ErrorMessage,
		ErrorCode:    env.ErrorCode,
		NodeID:       nodeID,
	}
	if !env.Success {
		return out
	}

	if !resp.Success {
		out.Success = false
		out.ErrorMessage = resp.Error
		if out.ErrorMessage == "" {
			out.ErrorMessage = "search failed"
		}
		out.ErrorCode = resp.Code
		if out.ErrorCode == "" {
			out.ErrorCode = models.CodeTransportError
		}
		return out
	}

	out.Data = resp.Results
	if out.Data == nil {
		out.Data = []models.SearchHit{}
	}
	return out
}

func fileQuery(rootName, path string) url.Values {
	q := url.Values{}
	q.Set("rootName", rootName)
	q.Set("path", path)
	return q
}

// do resolves nodeID, performs one request and decodes a 2xx answer into
// out. It is a function because methods cannot take type parameters.
func do[T any](ctx context.Context, p *Proxy,
	nodeID, op, method, path string, query url.Values, body any, out *T,
) (env models.Envelope[T]) {
	env.NodeID = nodeID
	startAt := time.Now()
	nodeLabel := unknownNodeLabel
	logger := p.logger.With(
		zap.String("node", nodeID),
		zap.String("op", op),
	)
	defer func() {
		outcome := env.ErrorCode
		if env.Success {
			outcome = "ok"
		}
		metrics.RecordProxyRequest(nodeLabel, op, outcome, time.Since(startAt))
	}()

	node, err := p.nodes.Lookup(nodeID)
	if err != nil {
		return failure(env, models.CodeNodeNotFound, fmt.Sprintf("file server not found: %s", nodeID))
	}
	nodeLabel = node.ID
	if !node.IsHealthy {
		logger.Debug("skip unhealthy node")
		return failure(env, models.CodeNodeUnreachable, fmt.Sprintf("file server %s is not available", node.Name))
	}

	target := node.InternalURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			logger.Error("encode request", zap.Error(err))
			return failure(env, models.CodeInternal, "encode request")
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		logger.Error("new request", zap.Error(err))
		return failure(env, models.CodeInternal, "build request")
	}
	requestID := uuid.NewString()
	req.Header.Set(models.HeaderRequestID, requestID)
	if node.APIKey != "" {
		req.Header.Set(models.HeaderAPIKey, node.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	logger = logger.With(zap.String("request_id", requestID))

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Warn("request node", zap.Error(err))
		return failure(env, models.CodeNodeUnreachable, msgCommunication)
	}
	defer resp.Body.Close() // nolint: errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, code := readErrorBody(resp)
		logger.Warn("node answered with error",
			zap.Int("status", resp.StatusCode),
			zap.String("node_code", code),
			zap.String("error", msg))
		if code == "" {
			code = models.CodeTransportError
		}
		return failure(env, code, msg)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		logger.Warn("decode node response", zap.Error(errors.WithStack(err)))
		return failure(env, models.CodeTransportError, "invalid response from file server")
	}

	env.Success = true
	env.Data = *out
	return env
}

func failure[T any](env models.Envelope[T], code, msg string) models.Envelope[T] {
	env.Success = false
	env.ErrorCode = code
	env.ErrorMessage = msg
	return env
}

// readErrorBody extracts the error message and code of a non-2xx answer.
// Bodies that are not an ErrorBody are returned raw with an empty code.
func readErrorBody(resp *http.Response) (msg, code string) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return fmt.Sprintf("file server returned status %d", resp.StatusCode), ""
	}

	var body models.ErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error, body.Code
	}

	var search models.SearchResponse
	if json.Unmarshal(raw, &search) == nil && search.Error != "" {
		return search.Error, search.Code
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		return text, ""
	}
	return fmt.Sprintf("file server returned status %d", resp.StatusCode), ""
}
