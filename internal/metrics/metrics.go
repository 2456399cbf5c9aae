// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics registers the daemon's Prometheus instrumentation: one
// registry shared by the TCP server, HTTP server, worker pool, and object
// tree, exposed read-only at GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Registry is the collector registry backing /metrics. A dedicated registry
// (rather than the global default) keeps daemon metrics free of whatever a
// linked library might register on init.
var Registry = prometheus.NewRegistry()

var (
	// CommandsTotal counts dispatched commands by verb and outcome code.
	CommandsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "pipelined_commands_total",
		Help: "Total commands dispatched, by verb and return code.",
	}, []string{"verb", "code"})

	// CommandDuration observes dispatch latency by verb.
	CommandDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipelined_command_duration_seconds",
		Help:    "Command dispatch latency in seconds, by verb.",
		Buckets: prometheus.DefBuckets,
	}, []string{"verb"})

	// WorkerPoolDepth reports the number of queued or in-flight tasks in the
	// worker pool.
	WorkerPoolDepth = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "pipelined_workerpool_depth",
		Help: "Current number of queued or in-flight jobs in the worker pool.",
	})

	// WorkerPoolRejections counts jobs rejected because the pool was full.
	WorkerPoolRejections = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "pipelined_workerpool_rejections_total",
		Help: "Total jobs rejected by the worker pool due to overflow.",
	})

	// TCPConnectionsActive reports currently open TCP client connections.
	TCPConnectionsActive = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "pipelined_tcp_connections_active",
		Help: "Number of currently open TCP protocol connections.",
	})

	// PipelineCount reports the current number of live Pipeline nodes.
	PipelineCount = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "pipelined_pipelines_active",
		Help: "Number of Pipeline nodes currently present in the tree.",
	})

	// PlayHoldRefcount reports the aggregate play-hold refcount across all
	// pipelines, i.e. how many outstanding reasons exist to keep playing.
	PlayHoldRefcount = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "pipelined_play_hold_refcount",
		Help: "Sum of play-hold reference counts across all pipelines.",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route and status code.
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "pipelined_http_requests_total",
		Help: "Total HTTP requests, by method, route and status code.",
	}, []string{"method", "route", "status"})
)

// Gather snapshots the registry's current metric families, for tests and
// diagnostic tooling that assert on counter values rather than scraping
// the exposition endpoint.
func Gather() ([]*dto.MetricFamily, error) {
	return Registry.Gather()
}

// CounterValue extracts the summed value of the named counter family from
// a Gather snapshot, across all label combinations. Missing families read
// as zero.
func CounterValue(families []*dto.MetricFamily, name string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	return 0
}
