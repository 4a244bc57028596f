// Package metrics provides Prometheus metrics for nodes and the gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Node side
	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logviewer_search_duration_seconds",
			Help:    "Duration of content searches",
			Buckets: prometheus.DefBuckets,
		},
	)

	searchFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logviewer_search_files_total",
			Help: "Files visited by content searches",
		},
		[]string{"outcome"},
	)

	fileReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logviewer_file_reads_total",
			Help: "File read requests by outcome",
		},
		[]string{"outcome"},
	)

	// Gateway side
	proxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logviewer_proxy_requests_total",
			Help: "Requests proxied to nodes",
		},
		[]string{"node", "operation", "outcome"},
	)

	proxyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logviewer_proxy_request_duration_seconds",
			Help:    "Duration of requests proxied to nodes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node", "operation"},
	)

	nodeHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logviewer_node_healthy",
			Help: "1 when the last health probe of a node succeeded",
		},
		[]string{"node"},
	)
)

// Search file outcomes.
const (
	SearchFileMatched = "matched"
	SearchFileMissed  = "missed"
	SearchFileSkipped = "skipped"
	SearchFileFailed  = "failed"
)

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSearch records the duration of one search.
func ObserveSearch(d time.Duration) {
	searchDuration.Observe(d.Seconds())
}

// RecordSearchFile counts one visited file.
func RecordSearchFile(outcome string) {
	searchFilesTotal.WithLabelValues(outcome).Inc()
}

// RecordFileRead counts one read request.
func RecordFileRead(outcome string) {
	fileReadsTotal.WithLabelValues(outcome).Inc()
}

// RecordProxyRequest counts one proxied call and its duration.
func RecordProxyRequest(node, operation, outcome string, d time.Duration) {
	proxyRequestsTotal.WithLabelValues(node, operation, outcome).Inc()
	proxyRequestDuration.WithLabelValues(node, operation).Observe(d.Seconds())
}

// SetNodeHealth publishes the last probe result of a node.
func SetNodeHealth(node string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	nodeHealthy.WithLabelValues(node).Set(v)
}
