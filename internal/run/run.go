// Package run defines the deployment run context: the explicit object that
// carries configuration, per-node outcomes, and accumulated validation
// failures through one invocation. Nothing orchestration-related lives in
// ambient globals.
package run

import (
	"sync"
	"time"

	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/preflight"
)

// Outcome is the overall result of a deployment run.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeValidationFailed Outcome = "validation-failed"
	OutcomeApplyFailed      Outcome = "apply-failed"
	OutcomePartial          Outcome = "partial"
	OutcomeCanceled         Outcome = "canceled"
)

// NodeResult records what happened to one resource node during the run.
type NodeResult struct {
	ID     string
	State  graph.State
	Detail string
	Err    error
}

// Run is the aggregate of one invocation: target, touched nodes in order,
// validation results, and the overall outcome.
type Run struct {
	Environment string
	Target      string
	Stages      []graph.Stage
	StartedAt   time.Time

	mu          sync.Mutex
	order       []string
	nodes       map[string]*NodeResult
	preFailures []preflight.Failure
	warnings    []string
	outcome     Outcome
	finished    time.Time
}

// New creates a run for the given environment and target.
func New(environment, target string, stages []graph.Stage) *Run {
	return &Run{
		Environment: environment,
		Target:      target,
		Stages:      stages,
		StartedAt:   time.Now(),
		nodes:       make(map[string]*NodeResult),
	}
}

// SetNode records the state of a node, preserving first-touch order.
func (r *Run) SetNode(id string, state graph.State, detail string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.nodes[id]; !seen {
		r.order = append(r.order, id)
	}
	r.nodes[id] = &NodeResult{ID: id, State: state, Detail: detail, Err: err}
}

// Node returns the recorded result for a node, if any.
func (r *Run) Node(id string) (NodeResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		return NodeResult{}, false
	}
	return *n, true
}

// Nodes returns the recorded node results in first-touch order.
func (r *Run) Nodes() []NodeResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NodeResult, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.nodes[id])
	}
	return out
}

// RecordPreflight stores the pre-stage validation failures.
func (r *Run) RecordPreflight(result preflight.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preFailures = append(r.preFailures, result.Failures...)
}

// PreflightFailures returns the accumulated pre-stage failures.
func (r *Run) PreflightFailures() []preflight.Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]preflight.Failure(nil), r.preFailures...)
}

// Warn records an advisory warning (post-stage check failures, best-effort
// convergence timeouts).
func (r *Run) Warn(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, message)
}

// Warnings returns the accumulated warnings.
func (r *Run) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// Finalize fixes the run outcome. When outcome is empty it is derived from
// the node results: all failures and no successes is apply-failed, a mix is
// partial, none is success.
func (r *Run) Finalize(outcome Outcome) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = time.Now()
	if outcome != "" {
		r.outcome = outcome
		return r.outcome
	}

	var succeeded, failed int
	for _, id := range r.order {
		switch r.nodes[id].State {
		case graph.StateReady, graph.StateDeleted:
			succeeded++
		case graph.StateDegraded, graph.StateBlocked:
			failed++
		}
	}
	switch {
	case failed == 0:
		r.outcome = OutcomeSuccess
	case succeeded == 0:
		r.outcome = OutcomeApplyFailed
	default:
		r.outcome = OutcomePartial
	}
	return r.outcome
}

// Outcome returns the finalized outcome, or empty when still running.
func (r *Run) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// Duration returns how long the run took, or time since start if unfinished.
func (r *Run) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.finished.Sub(r.StartedAt)
}
