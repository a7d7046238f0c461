// Package metrics は、ポート割り当てサブシステムの Prometheus メトリクスを定義します。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Probe metrics
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goport_probes_total",
		Help: "Total number of bind probes by result",
	}, []string{"result"})

	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "goport_probe_duration_seconds",
		Help:    "Bind probe duration in seconds",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1},
	})

	// Cache metrics
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goport_probe_cache_hits_total",
		Help: "Total number of probe cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goport_probe_cache_misses_total",
		Help: "Total number of probe cache misses",
	})

	// Allocation metrics
	AllocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goport_allocations_total",
		Help: "Total number of port pair allocations by kind",
	}, []string{"kind"})

	AllocationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goport_allocation_failures_total",
		Help: "Total number of failed allocations by reason",
	}, []string{"reason"})

	ClaimedPorts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "goport_claimed_ports",
		Help: "Current number of ports held in the in-process registry",
	})
)

// Allocation kinds
const (
	KindRequested = "requested"
	KindFallback  = "fallback"
	KindAuto      = "auto"
)
