// Package probe implements the readiness-probe abstraction: repeated
// observation of an asynchronously converging resource with backoff, a
// per-resource timeout budget, and a tri-state outcome.
package probe

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// State is the outcome of waiting on a readiness probe.
type State string

const (
	// Ready means the resource converged within budget.
	Ready State = "ready"
	// Degraded means the probe observed a terminal failure condition;
	// continuing to wait cannot help.
	Degraded State = "degraded"
	// TimedOut means the budget elapsed without convergence or terminal
	// failure.
	TimedOut State = "timeout"
)

// Observation is a single readiness reading of an external resource.
type Observation struct {
	// Ready reports convergence.
	Ready bool
	// Failed reports a terminal condition; polling stops immediately.
	Failed bool
	// Detail is a human-readable description of the current condition.
	Detail string
}

// Func observes the external resource once. Errors are treated as transient
// and retried within the budget.
type Func func(ctx context.Context) (Observation, error)

// Spec parameterizes a wait: poll interval and total budget per resource type.
type Spec struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Result is the final outcome of a wait.
type Result struct {
	State   State
	Detail  string
	Elapsed time.Duration
}

var errNotReady = errors.New("not ready")

// Wait polls fn until it reports ready, reports a terminal failure, the
// budget elapses, or ctx is canceled. Cancellation and budget exhaustion both
// yield TimedOut; no wait is unbounded.
func Wait(ctx context.Context, spec Spec, fn Func) Result {
	start := time.Now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = spec.Interval
	bo.MaxInterval = spec.Interval * 4
	bo.MaxElapsedTime = spec.Timeout

	var lastDetail string
	terminal := false

	op := func() error {
		obs, err := fn(ctx)
		if err != nil {
			lastDetail = err.Error()
			return err
		}
		lastDetail = obs.Detail
		if obs.Failed {
			terminal = true
			return backoff.Permanent(errors.New(obs.Detail))
		}
		if obs.Ready {
			return nil
		}
		return errNotReady
	}

	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	result := Result{Detail: lastDetail, Elapsed: time.Since(start)}
	switch {
	case err == nil:
		result.State = Ready
	case terminal:
		result.State = Degraded
	default:
		result.State = TimedOut
	}
	return result
}
