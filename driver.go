package deferred

import "time"

// Run drives the scheduler until root settles: drain the paused queue, let
// the reactor take one turn (blocking only when nothing else is immediately
// runnable), drain the wakeup-later queue, and repeat. It returns root's
// resolved value or its rejection error.
//
// On the way out, every deferred still pending in the registry (a losing
// Choose/NChoose input, a fire-and-forget Task, anything root's settlement
// didn't reach) is rejected with ErrRunStopped, so nothing is left waiting
// on a scheduler that has stopped driving it.
//
// Only one Run call may be in flight per process at a time; a nested call
// (directly or via a callback invoked from within an in-progress Run)
// returns ErrReentrantRun immediately rather than attempting to interleave
// reactor iterations: the scheduler's ambient state (current dynamic
// context, paused queue, wakeup queue) is
// process-global, so two overlapping drivers would corrupt it.
func Run[T any](root Deferred[T], opts ...DriverOption) (T, error) {
	var zero T
	if !enterRun() {
		return zero, ErrReentrantRun
	}
	defer exitRun()

	cfg := resolveDriverOptions(opts)
	if cfg.randSource != nil {
		SetRandSource(cfg.randSource)
	}
	if cfg.waiterThreshold > 0 {
		savedThreshold := waiterCompactionThreshold.Load()
		SetWaiterCompactionThreshold(int(cfg.waiterThreshold))
		defer waiterCompactionThreshold.Store(savedThreshold)
	}

	reactor := cfg.reactor
	ownsReactor := false
	if reactor == nil {
		fb, err := NewReactorFallback(WithLogger(cfg.logger), WithMetrics(cfg.metrics))
		if err != nil {
			return zero, err
		}
		reactor = fb
		ownsReactor = true
	}

	defer func() {
		defaultRegistry.rejectAllPending(ErrRunStopped)
		for i := len(cfg.exitHooks) - 1; i >= 0; i-- {
			runExitHook(cfg.logger, cfg.exitHooks[i])
		}
		if ownsReactor {
			if err := reactor.Destroy(); err != nil {
				cfg.logger.Warn("driver", "reactor destroy failed", "err", err)
			}
		}
	}()

	cfg.logger.Info("driver", "run starting")
	for {
		if value, err, pending := root.Poll(); !pending {
			cfg.logger.Info("driver", "run finished", "rejected", err != nil)
			return value, err
		}

		WakeupPaused()
		drainWakeupQueue()
		cfg.metrics.deferredsOutstanding.Set(float64(defaultRegistry.livePending()))

		if _, _, pending := root.Poll(); !pending {
			continue
		}

		block := PausedCount() == 0 && len(wakeupQueue) == 0
		start := time.Now()
		if err := reactor.Iter(block); err != nil {
			cfg.logger.Error("driver", "reactor iteration failed", "err", err)
		}
		cfg.metrics.reactorIterDuration.Observe(time.Since(start).Seconds())

		drainWakeupQueue()
	}
}

// runExitHook invokes fn, recovering and logging any panic so one faulty
// exit hook cannot prevent the rest from running.
func runExitHook(logger Logger, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("driver", "recovered panic from exit hook", "panic", rec)
		}
	}()
	fn()
}
