// Package executor applies a stage's resource nodes in dependency order and
// blocks until each reaches ready or its timeout budget elapses.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	orcherrors "github.com/glidepath/glidepath/internal/errors"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/probe"
	"github.com/glidepath/glidepath/internal/run"
)

// Executor walks the apply order for a stage, issuing create calls and
// polling readiness probes. Execution is sequential: the underlying cloud
// operations on a shared parent resource are mutually exclusive anyway, and
// cloud state stays the single source of truth between steps.
type Executor struct {
	registry  *graph.Registry
	actuators graph.Actuators
	logger    *slog.Logger
}

// New creates an executor over a node registry and its actuator bindings.
func New(registry *graph.Registry, actuators graph.Actuators, logger *slog.Logger) *Executor {
	return &Executor{registry: registry, actuators: actuators, logger: logger}
}

// PlanOnly computes the apply ordering and intended actions without mutating
// anything, for dry-run and confirmation display.
func (e *Executor) PlanOnly(ctx context.Context, environment, target string, stages ...graph.Stage) (*run.Plan, error) {
	plan := &run.Plan{
		Environment: environment,
		Target:      target,
		CreatedAt:   time.Now().UTC(),
	}
	for _, node := range e.registry.OrderForApply(stages...) {
		act, ok := e.actuators[node.ID]
		if !ok {
			return nil, fmt.Errorf("no actuator bound for resource node %q", node.ID)
		}
		desc, err := act.Describe(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s: %w", node.ID, err)
		}
		action := run.PlannedAction{Node: node.ID, Stage: node.Stage, Action: "create"}
		if desc.Exists {
			action.Action = "skip"
			action.Reason = "already exists"
		}
		plan.Actions = append(plan.Actions, action)
	}
	return plan, nil
}

// Apply walks the apply order for the given stages. An error creating a node
// is fatal for that node and everything depending on it, but independent
// branches still execute; the run records a partial outcome in that case.
// Re-applying over existing resources is idempotent: nodes that already
// satisfy their convergence predicate are treated as ready.
func (e *Executor) Apply(ctx context.Context, r *run.Run, stages ...graph.Stage) error {
	order := e.registry.OrderForApply(stages...)
	total := len(order)
	failed := make(map[string]bool)

	for i, node := range order {
		if err := ctx.Err(); err != nil {
			// Interrupted between steps; already-applied nodes are safe to
			// resume over on the next invocation.
			return fmt.Errorf("run interrupted: %w", err)
		}

		if dep := firstFailedDependency(node, failed); dep != "" {
			e.logger.Warn("skipping node", "node", node.ID, "blocked_by", dep)
			r.SetNode(node.ID, graph.StateBlocked, fmt.Sprintf("blocked by failed dependency %s", dep), nil)
			failed[node.ID] = true
			continue
		}

		act, ok := e.actuators[node.ID]
		if !ok {
			e.recordApplyFailure(r, failed, node, "no actuator bound",
				fmt.Errorf("no actuator bound for resource node %q", node.ID))
			continue
		}
		desc, err := act.Describe(ctx)
		if err != nil {
			e.recordApplyFailure(r, failed, node, "describe failed", err)
			continue
		}

		step := i + 1
		if !desc.Exists {
			e.logger.Info("creating resource", "node", node.ID, "step", step, "total", total)
			r.SetNode(node.ID, graph.StateCreating, "", nil)
			if err := act.Create(ctx); err != nil {
				e.recordApplyFailure(r, failed, node, "create failed", err)
				continue
			}
		} else {
			e.logger.Debug("resource already exists", "node", node.ID, "detail", desc.Detail)
		}

		result := probe.Wait(ctx, act.ProbeSpec(), act.Ready)
		switch result.State {
		case probe.Ready:
			r.SetNode(node.ID, graph.StateReady, result.Detail, nil)
		case probe.Degraded:
			// Terminal probe failure (e.g. system pods under threshold) is a
			// hard validation failure regardless of resource type.
			failed[node.ID] = true
			r.SetNode(node.ID, graph.StateDegraded, result.Detail,
				orcherrors.ErrConvergenceTimeout(node.ID, fmt.Errorf("%s", result.Detail)))
		case probe.TimedOut:
			if node.BestEffort {
				r.Warn(fmt.Sprintf("%s: not converged after %s (%s); it may still settle, re-check with status",
					node.ID, result.Elapsed.Round(time.Second), result.Detail))
				r.SetNode(node.ID, graph.StateDegraded, result.Detail, nil)
				continue
			}
			failed[node.ID] = true
			r.SetNode(node.ID, graph.StateDegraded, result.Detail, orcherrors.ErrConvergenceTimeout(node.ID, nil))
		}
	}
	return nil
}

func (e *Executor) recordApplyFailure(r *run.Run, failed map[string]bool, node *graph.Node, msg string, err error) {
	e.logger.Error("apply failed", "node", node.ID, "error", err)
	failed[node.ID] = true
	r.SetNode(node.ID, graph.StateDegraded, msg, orcherrors.ErrApplyFailed(node.ID, msg, err))
}

// firstFailedDependency returns the id of the first declared dependency that
// failed or was blocked this run, or empty when all are intact. Blocked
// status propagates transitively because blocked nodes are recorded as
// failed.
func firstFailedDependency(node *graph.Node, failed map[string]bool) string {
	for _, dep := range node.DependsOn {
		if failed[dep] {
			return dep
		}
	}
	return ""
}

// NodeHealth is a read-only health reading for one node.
type NodeHealth struct {
	ID     string      `json:"id"`
	Stage  graph.Stage `json:"stage"`
	State  graph.State `json:"state"`
	Detail string      `json:"detail,omitempty"`
}

// Health queries current external state per node without mutating anything.
// Each node gets a single readiness observation, not a converging wait.
func (e *Executor) Health(ctx context.Context, stages ...graph.Stage) []NodeHealth {
	var out []NodeHealth
	for _, node := range e.registry.NodesIn(stages...) {
		h := NodeHealth{ID: node.ID, Stage: node.Stage}
		act, ok := e.actuators[node.ID]
		if !ok {
			h.State = graph.StateDegraded
			h.Detail = fmt.Sprintf("no actuator bound for resource node %q", node.ID)
			out = append(out, h)
			continue
		}

		desc, err := act.Describe(ctx)
		switch {
		case err != nil:
			h.State = graph.StateDegraded
			h.Detail = err.Error()
		case !desc.Exists:
			h.State = graph.StateAbsent
		default:
			obs, rerr := act.Ready(ctx)
			switch {
			case rerr != nil:
				h.State = graph.StateDegraded
				h.Detail = rerr.Error()
			case obs.Failed:
				h.State = graph.StateDegraded
				h.Detail = obs.Detail
			case obs.Ready:
				h.State = graph.StateReady
				h.Detail = obs.Detail
			default:
				h.State = graph.StateCreating
				h.Detail = obs.Detail
			}
		}
		out = append(out, h)
	}
	return out
}
