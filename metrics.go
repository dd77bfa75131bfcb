// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package deferred

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects runtime statistics for one Driver/Reactor pair using
// github.com/prometheus/client_golang. Every Metrics owns a private
// prometheus.Registry rather than registering against the global default,
// so multiple independent Run calls in one process (e.g. in tests) never
// collide on metric names; Gatherer exposes that registry for callers that
// want to feed it into an HTTP /metrics handler.
type Metrics struct {
	registry *prometheus.Registry

	deferredsCreated  prometheus.Counter
	deferredsResolved prometheus.Counter
	deferredsRejected prometheus.Counter
	deferredsCanceled prometheus.Counter

	waiterCompactions prometheus.Counter
	forwardChainLen   prometheus.Histogram

	reactorIterDuration prometheus.Histogram
	registeredFDs       prometheus.Gauge
	registeredTimers    prometheus.Gauge

	pausedQueueDepth     prometheus.Gauge
	wakeupQueueDepth     prometheus.Gauge
	deferredsOutstanding prometheus.Gauge
}

// NewMetrics constructs a Metrics instance with its own registry, under
// the given namespace (e.g. "deferred"); pass "" for no namespace prefix.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		deferredsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deferreds_created_total",
			Help: "Total deferreds constructed (Wait, Task, Return, Fail and combinator results).",
		}),
		deferredsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deferreds_resolved_total",
			Help: "Total deferreds settled into the resolved state.",
		}),
		deferredsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deferreds_rejected_total",
			Help: "Total deferreds settled into the rejected state.",
		}),
		deferredsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deferreds_canceled_total",
			Help: "Total deferreds settled into the canceled state.",
		}),
		waiterCompactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "waiter_set_compactions_total",
			Help: "Total waiterSet compactions triggered by the cleared-count threshold.",
		}),
		forwardChainLen: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "forward_chain_length",
			Help:    "Length of the union-find forwarding chain walked by representative().",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		reactorIterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "reactor_iter_duration_seconds",
			Help:    "Wall time spent in one Reactor.Iter call, including callback dispatch.",
			Buckets: prometheus.DefBuckets,
		}),
		registeredFDs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reactor_registered_fds",
			Help: "Current count of distinct file descriptors registered with the reactor.",
		}),
		registeredTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reactor_registered_timers",
			Help: "Current count of live (unstopped) timers registered with the reactor.",
		}),
		pausedQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "paused_queue_depth",
			Help: "Current depth of the Pause()d-task resume queue.",
		}),
		wakeupQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "wakeup_queue_depth",
			Help: "Current depth of the deferred wakeup-later queue used to bound stack growth.",
		}),
		deferredsOutstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "deferreds_outstanding",
			Help: "Currently live, still-pending deferreds tracked by the registry.",
		}),
	}
	reg.MustRegister(
		m.deferredsCreated,
		m.deferredsResolved,
		m.deferredsRejected,
		m.deferredsCanceled,
		m.waiterCompactions,
		m.forwardChainLen,
		m.reactorIterDuration,
		m.registeredFDs,
		m.registeredTimers,
		m.pausedQueueDepth,
		m.wakeupQueueDepth,
		m.deferredsOutstanding,
	)
	return m
}

// Gatherer exposes the private registry, for wiring into an HTTP handler
// (e.g. promhttp.HandlerFor(m.Gatherer(), ...)).
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// defaultMetrics is the package-level Metrics used by Reactor/Run when no
// WithMetrics option is supplied. The promise-graph counters (deferreds
// created/resolved/rejected/canceled, waiter compactions, forwarding-chain
// length) and the paused/wakeup queue depth gauges are always recorded
// here, whichever Metrics a Reactor or Run was given.
var defaultMetrics = NewMetrics("deferred")
