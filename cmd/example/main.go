// Command example assembles a small deferred-driven program using
// go.uber.org/dig as its composition root: independent constructors for
// the logger, metrics collector and reactor are Provided, and Invoked once
// at startup to build the Driver configuration that Run uses. The
// deferred package itself never imports dig — only this composition root
// does.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"go.uber.org/dig"

	deferred "github.com/joeycumines/go-deferred"
)

func buildContainer() *dig.Container {
	c := dig.New()

	must(c.Provide(func() deferred.Logger {
		return deferred.NewLogger(stumpy.L.New(
			stumpy.L.WithStumpy(),
			logiface.WithLevel[*stumpy.Event](logiface.LevelInformational),
		))
	}))

	must(c.Provide(func() *deferred.Metrics {
		return deferred.NewMetrics("example")
	}))

	must(c.Provide(func(logger deferred.Logger, metrics *deferred.Metrics) (*deferred.ReactorFallback, error) {
		return deferred.NewReactorFallback(
			deferred.WithLogger(logger),
			deferred.WithMetrics(metrics),
		)
	}))

	must(c.Provide(func(logger deferred.Logger, metrics *deferred.Metrics, reactor *deferred.ReactorFallback) []deferred.DriverOption {
		return []deferred.DriverOption{
			deferred.WithLogger(logger),
			deferred.WithMetrics(metrics),
			deferred.WithReactor(reactor),
			deferred.WithExitHook(func() { fmt.Fprintln(os.Stderr, "example: run complete") }),
		}
	}))

	return c
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// countdown builds a deferred that resolves to n after n timer-driven
// steps: each step schedules a 5ms reactor timer and waits for it before
// building the next step, exercising the reactor wiring end to end.
func countdown(reactor deferred.Reactor, n int) deferred.Deferred[int] {
	if n <= 0 {
		return deferred.Return(0)
	}
	tick, resolveTick := deferred.Wait[int]()
	reactor.OnTimer(5*time.Millisecond, false, func() {
		resolveTick.Resolve(n)
	})
	return deferred.Bind(tick, func(v int) deferred.Deferred[int] {
		return deferred.Map(func(rest int) int {
			return rest + 1
		}, countdown(reactor, n-1))
	})
}

func main() {
	container := buildContainer()

	var result int
	err := container.Invoke(func(reactor *deferred.ReactorFallback, opts []deferred.DriverOption) error {
		root := countdown(reactor, 5)
		v, err := deferred.Run(root, opts...)
		result = v
		return err
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "example failed:", err)
		os.Exit(1)
	}
	fmt.Println("countdown iterations:", result)
}
