// Package preflight runs validation checks before and after mutating stages.
// Every check in a phase is evaluated and every failure is reported; the
// runner never short-circuits on the first failure.
package preflight

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Phase tags a check as running before or after a stage.
type Phase string

const (
	// PreStage checks gate mutation: any failure aborts the run before any
	// cloud state changes.
	PreStage Phase = "pre-stage"
	// PostStage checks re-verify convergence and are advisory: failures are
	// surfaced as warnings because resources may still be settling.
	PostStage Phase = "post-stage"
)

// Check is a named predicate with a human-readable failure reason.
// Fn returns nil when the check passes; the error message is the reason shown
// to the user. Checks must be independent of each other.
type Check struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}

// Failure is one failed check with its reason.
type Failure struct {
	Check  string
	Reason string
}

// Result aggregates one phase's checks.
type Result struct {
	Passed   bool
	Failures []Failure
}

// maxConcurrentChecks bounds check parallelism; checks hit external APIs and
// there is no point hammering them.
const maxConcurrentChecks = 4

// Run evaluates every check tagged with phase, concurrently, and aggregates
// the failures in check declaration order. Checks tagged with a different
// phase are skipped.
func Run(ctx context.Context, logger *slog.Logger, phase Phase, checks []Check) Result {
	type slot struct {
		check Check
		err   error
	}

	var selected []slot
	for _, c := range checks {
		if c.Phase == phase {
			selected = append(selected, slot{check: c})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)
	var mu sync.Mutex

	for i := range selected {
		g.Go(func() error {
			err := selected[i].check.Fn(gctx)
			mu.Lock()
			selected[i].err = err
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures are collected, not propagated.
	_ = g.Wait()

	result := Result{Passed: true}
	for _, s := range selected {
		if s.err == nil {
			logger.Debug("check passed", "phase", phase, "check", s.check.Name)
			continue
		}
		logger.Warn("check failed", "phase", phase, "check", s.check.Name, "reason", s.err)
		result.Passed = false
		result.Failures = append(result.Failures, Failure{Check: s.check.Name, Reason: s.err.Error()})
	}
	return result
}
