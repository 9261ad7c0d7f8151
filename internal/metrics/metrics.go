package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GraphBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmdgraph_builds_total",
		Help: "Total number of command graph compilations, labelled by outcome (swapped, unchanged, error).",
	}, []string{"outcome"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cmdgraph_nodes",
		Help: "Number of nodes in the active command graph.",
	})

	GraphRedirects = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cmdgraph_redirect_nodes",
		Help: "Number of nodes carrying a redirect in the active command graph.",
	})

	UnresolvedRedirects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmdgraph_unresolved_redirects_total",
		Help: "Total number of redirects that failed to resolve during compilation.",
	})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cmdgraph_build_duration_ms",
		Help:    "Command graph compilation latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
	})

	PacketBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cmdgraph_packet_bytes",
		Help: "Size of the active declare-commands message, labelled by form (payload, framed).",
	}, []string{"form"})

	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmdgraph_reloads_total",
		Help: "Total number of command file reloads, labelled by trigger and status.",
	}, []string{"trigger", "status"})

	Views = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmdgraph_views_total",
		Help: "Total number of per-viewer graph requests, labelled by how they were served (full, cached, built).",
	}, []string{"source"})

	CompileQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cmdgraph_compile_queue_utilization_ratio",
		Help: "Current compile queue utilization (0 to 1).",
	})
)
