// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package deferred implements a cooperative lightweight-thread scheduler
// built around a value-carrying deferred-computation graph: resolution,
// cancellation, dynamic scoping and a reactor-driven main loop, following
// the promise-graph design used by the original Lwt-family event loop this
// package grew out of.
//
// # Promise graph
//
// Every Deferred[T]/Resolver[T] pair is backed by a *core, an untyped
// node in a mutable forwarding graph. Binding one deferred to another
// (Bind, Catch, TryBind) calls connect to
// forward the child core onto the parent, with union-find style path
// compression performed lazily by representative on every subsequent
// access. This keeps long tail-recursive bind chains (a generator loop
// that binds millions of times before yielding a value) from growing an
// unbounded, unreachable-until-GC chain of intermediate cores: each
// connect collapses one intermediate link immediately, and representative
// collapses the rest the next time anything looks at them.
//
// # Dynamic context
//
// WithValue/Get implement dynamic (not lexical) scoping: a context snapshot
// is captured when a waiter is registered (Bind, OnSuccess, ...) and
// reinstalled around that waiter's firing, so a value written before an asynchronous bind is still
// visible to a continuation running after it settles, even though no
// explicit parameter was threaded through the call chain. This mirrors how
// the original event loop's fiber-local state survives a suspension point.
//
// # Reactor
//
// A Reactor is the pluggable source of "the outside world is ready"
// notifications: readable/writable file descriptors and timers. Two
// implementations are provided: ReactorFallback, a portable
// epoll/kqueue/WSAPoll-backed implementation requiring only
// golang.org/x/sys, and ReactorNative, which dispatches registrations onto
// a bounded worker pool (github.com/ygrebnov/workers) for programs that
// already run such a pool for other I/O. Run drives whichever Reactor it
// is given once per iteration, interleaved with draining the paused-task
// queue and the wakeup-later queue.
//
// # Suspension points
//
// Because the scheduler is single-threaded and cooperative, a running
// continuation is never preempted; it only yields control at specific,
// explicit points — a waiter registered on a still-pending deferred
// returning to its caller, a Pause()d deferred, or a reactor callback
// returning. Only at those points can another continuation run, which is
// what makes the dynamic-context save/restore discipline sufficient
// without any per-goroutine bookkeeping.
package deferred
