// Package registry tracks the configured file-serving nodes and their
// health.
package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	errors "github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/logviewer/library/log"
	"github.com/Laisky/logviewer/library/metrics"
)

// ErrNodeNotFound is returned by Lookup for an unknown node id.
var ErrNodeNotFound = errors.New("node not found")

// NodeDescriptor is a configured node with its last observed health.
type NodeDescriptor struct {
	ID            string
	Name          string
	InternalURL   string
	APIKey        string
	IsHealthy     bool
	LastCheckedAt time.Time
}

type snapshot struct {
	nodes []NodeDescriptor
	byID  map[string]int
}

func newSnapshot(nodes []NodeDescriptor) *snapshot {
	snap := &snapshot{nodes: nodes, byID: make(map[string]int, len(nodes))}
	for i, node := range nodes {
		snap.byID[node.ID] = i
	}
	return snap
}

// Registry holds an immutable snapshot of node health that is swapped as a
// whole on every refresh.
type Registry struct {
	nodes   []NodeConfig
	prober  Prober
	timeout time.Duration
	logger  logSDK.Logger

	refreshMu sync.Mutex
	snap      atomic.Pointer[snapshot]
}

// New validates settings and builds a registry. Until the first Refresh
// every node is reported unhealthy with a zero LastCheckedAt.
func New(settings Settings, prober Prober, logger logSDK.Logger) (*Registry, error) {
	settings = settings.withDefaults()
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid node settings")
	}
	if prober == nil {
		prober = NewHTTPProber(nil)
	}
	if logger == nil {
		logger = log.Logger.Named("registry")
	}

	r := &Registry{
		nodes:   settings.Nodes,
		prober:  prober,
		timeout: settings.HealthTimeout,
		logger:  logger,
	}

	initial := make([]NodeDescriptor, 0, len(settings.Nodes))
	for _, node := range settings.Nodes {
		initial = append(initial, descriptor(node, false, time.Time{}))
	}
	r.snap.Store(newSnapshot(initial))
	return r, nil
}

func descriptor(node NodeConfig, healthy bool, at time.Time) NodeDescriptor {
	return NodeDescriptor{
		ID:            node.ID,
		Name:          node.Name,
		InternalURL:   node.InternalURL,
		APIKey:        node.APIKey,
		IsHealthy:     healthy,
		LastCheckedAt: at,
	}
}

// Refresh probes every node concurrently and publishes the new snapshot.
// Concurrent calls are serialized. When ctx ends before the probes finish
// the previous snapshot is kept and returned.
func (r *Registry) Refresh(ctx context.Context) []NodeDescriptor {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	previous := r.snap.Load()
	results := make([]NodeDescriptor, len(r.nodes))
	probeErrs := make([]error, len(r.nodes))

	var g errgroup.Group
	for i, node := range r.nodes {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			probeErrs[i] = r.prober.Probe(probeCtx, node)
			results[i] = descriptor(node, probeErrs[i] == nil, gutils.Clock.GetUTCNow())
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		r.logger.Debug("refresh interrupted, keep previous health", zap.Error(err))
		return cloneDescriptors(previous.nodes)
	}

	for i, node := range r.nodes {
		err := probeErrs[i]
		metrics.SetNodeHealth(node.ID, err == nil)

		logger := r.logger.With(zap.String("node", node.ID))
		wasHealthy := previous.nodes[i].IsHealthy
		switch {
		case err != nil && wasHealthy:
			logger.Warn("node became unhealthy", zap.Error(err))
		case err != nil:
			logger.Debug("node is unhealthy", zap.Error(err))
		case !wasHealthy:
			logger.Info("node became healthy")
		}
	}

	r.snap.Store(newSnapshot(results))
	return cloneDescriptors(results)
}

// Run refreshes every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Lookup returns the current descriptor of id.
func (r *Registry) Lookup(id string) (NodeDescriptor, error) {
	snap := r.snap.Load()
	i, ok := snap.byID[id]
	if !ok {
		return NodeDescriptor{}, errors.Wrapf(ErrNodeNotFound, "node %q", id)
	}
	return snap.nodes[i], nil
}

// Nodes returns the current descriptors in configuration order.
func (r *Registry) Nodes() []NodeDescriptor {
	return cloneDescriptors(r.snap.Load().nodes)
}

func cloneDescriptors(nodes []NodeDescriptor) []NodeDescriptor {
	out := make([]NodeDescriptor, len(nodes))
	copy(out, nodes)
	return out
}
