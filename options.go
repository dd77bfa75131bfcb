// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package deferred

import "math/rand"

// reactorConfig holds configuration options for Reactor construction.
type reactorConfig struct {
	logger      Logger
	metrics     *Metrics
	workers     int
	waitBufSize int
}

// driverConfig holds configuration options for Run.
type driverConfig struct {
	logger          Logger
	metrics         *Metrics
	randSource      *rand.Rand
	waiterThreshold int64
	exitHooks       []func()
	reactor         Reactor
}

// --- Reactor Options ---

// ReactorOption configures a Reactor instance (NewReactorFallback,
// NewReactorNative).
type ReactorOption interface {
	applyReactor(*reactorConfig)
}

// reactorOptionImpl implements ReactorOption.
type reactorOptionImpl struct {
	applyReactorFunc func(*reactorConfig)
}

func (o *reactorOptionImpl) applyReactor(cfg *reactorConfig) {
	o.applyReactorFunc(cfg)
}

// WithWorkerPool configures a native Reactor's bounded goroutine pool size
// (see native_reactor.go, backed by github.com/ygrebnov/workers). Ignored
// by ReactorFallback, which always polls on the calling goroutine.
func WithWorkerPool(n int) ReactorOption {
	return &reactorOptionImpl{func(cfg *reactorConfig) {
		cfg.workers = n
	}}
}

// WithPollBufferSize sets the initial capacity of the readiness buffer a
// Reactor reuses across Iter calls, avoiding reallocation for workloads
// with many simultaneously-ready descriptors. For ReactorNative it sets the
// capacity of the channel its watchers hand ready callbacks to Iter over.
func WithPollBufferSize(n int) ReactorOption {
	return &reactorOptionImpl{func(cfg *reactorConfig) {
		cfg.waitBufSize = n
	}}
}

// --- Driver Options ---

// DriverOption configures Run.
type DriverOption interface {
	applyDriver(*driverConfig)
}

// driverOptionImpl implements DriverOption.
type driverOptionImpl struct {
	applyDriverFunc func(*driverConfig)
}

func (o *driverOptionImpl) applyDriver(cfg *driverConfig) {
	o.applyDriverFunc(cfg)
}

// WithRandSource overrides the source Choose/Pick use to tie-break among
// simultaneously-ready branches, letting callers make Run deterministic
// for tests.
func WithRandSource(r *rand.Rand) DriverOption {
	return &driverOptionImpl{func(cfg *driverConfig) {
		cfg.randSource = r
	}}
}

// WithWaiterCompactionThreshold overrides the default waiterSet
// compaction threshold (42) for the life of a single Run call.
func WithWaiterCompactionThreshold(n int64) DriverOption {
	return &driverOptionImpl{func(cfg *driverConfig) {
		cfg.waiterThreshold = n
	}}
}

// WithExitHook registers a function to run, in last-registered-first
// order, after Run's loop exits but before Run returns — for releasing
// resources tied to the run, such as a Reactor or an open registry scan.
func WithExitHook(fn func()) DriverOption {
	return &driverOptionImpl{func(cfg *driverConfig) {
		cfg.exitHooks = append(cfg.exitHooks, fn)
	}}
}

// WithReactor supplies the Reactor Run polls on each iteration. Defaults
// to a fresh ReactorFallback if omitted.
func WithReactor(r Reactor) DriverOption {
	return &driverOptionImpl{func(cfg *driverConfig) {
		cfg.reactor = r
	}}
}

// --- Shared Options ---

// sharedOption implements both ReactorOption and DriverOption, for
// settings that apply to both layers (a Reactor's own callback dispatch
// logs and records metrics; so does the Driver loop around it).
type sharedOption struct {
	reactorFunc func(*reactorConfig)
	driverFunc  func(*driverConfig)
}

func (o *sharedOption) applyReactor(cfg *reactorConfig) { o.reactorFunc(cfg) }
func (o *sharedOption) applyDriver(cfg *driverConfig)   { o.driverFunc(cfg) }

// WithLogger overrides the Logger used by a Reactor and/or the Driver.
func WithLogger(l Logger) interface {
	ReactorOption
	DriverOption
} {
	return &sharedOption{
		reactorFunc: func(cfg *reactorConfig) { cfg.logger = l },
		driverFunc:  func(cfg *driverConfig) { cfg.logger = l },
	}
}

// WithMetrics overrides the Metrics instance a Reactor and/or the Driver
// record against, for callers sharing one set of metrics across multiple
// Reactor/Driver pairs. Only the reactor gauges, the reactor iteration
// duration and the outstanding-deferreds gauge go to it; the promise-graph
// counters and queue depth gauges are always recorded on defaultMetrics.
func WithMetrics(m *Metrics) interface {
	ReactorOption
	DriverOption
} {
	return &sharedOption{
		reactorFunc: func(cfg *reactorConfig) { cfg.metrics = m },
		driverFunc:  func(cfg *driverConfig) { cfg.metrics = m },
	}
}

// resolveReactorOptions applies ReactorOption instances to a reactorConfig.
func resolveReactorOptions(opts []ReactorOption) reactorConfig {
	cfg := reactorConfig{
		logger:      defaultLogger,
		metrics:     defaultMetrics,
		waitBufSize: 64,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyReactor(&cfg)
	}
	return cfg
}

// resolveDriverOptions applies DriverOption instances to a driverConfig.
func resolveDriverOptions(opts []DriverOption) driverConfig {
	cfg := driverConfig{
		logger:          defaultLogger,
		metrics:         defaultMetrics,
		waiterThreshold: 42,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyDriver(&cfg)
	}
	return cfg
}
