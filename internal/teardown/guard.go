// Package teardown destroys a stage's resource nodes in reverse dependency
// order, handling deletion-protected resources and gating irreversible data
// loss behind an explicit confirmation.
package teardown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	orcherrors "github.com/glidepath/glidepath/internal/errors"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/probe"
	"github.com/glidepath/glidepath/internal/run"
)

// ConfirmFunc acknowledges an irreversible destruction. Implementations
// prompt the user to type requiredPhrase; automated callers supply a policy
// that refuses. The acknowledgment is requested per run, never cached.
type ConfirmFunc func(message, requiredPhrase string) bool

// Guard performs guarded destruction over the node registry.
type Guard struct {
	registry  *graph.Registry
	actuators graph.Actuators
	confirm   ConfirmFunc
	logger    *slog.Logger
}

// New creates a teardown guard.
func New(registry *graph.Registry, actuators graph.Actuators, confirm ConfirmFunc, logger *slog.Logger) *Guard {
	return &Guard{registry: registry, actuators: actuators, confirm: confirm, logger: logger}
}

// Destroy deletes the nodes of the given stages dependents-first.
// requiredPhrase is what the user must type when stateful resources are about
// to be destroyed. Nodes still depended on by live resources outside the
// requested stages are refused, along with everything they transitively need;
// unrelated branches proceed. Deleting an already-absent node is a no-op
// success.
func (g *Guard) Destroy(ctx context.Context, r *run.Run, requiredPhrase string, stages ...graph.Stage) error {
	order, blocking := g.registry.OrderForDestroy(stages...)

	// A declared dependent outside the destroy set only blocks if it actually
	// exists; external cloud state is the source of truth.
	surviving := make(map[string]bool)
	for _, b := range blocking {
		act, ok := g.actuators[b.Dependent]
		if !ok {
			continue
		}
		desc, err := act.Describe(ctx)
		if err != nil {
			g.logger.Warn("could not verify blocking dependent, refusing to destroy target",
				"dependent", b.Dependent, "target", b.Target, "error", err)
		} else if !desc.Exists {
			continue
		}
		if !surviving[b.Target] {
			surviving[b.Target] = true
			r.SetNode(b.Target, graph.StateBlocked, fmt.Sprintf("live dependent %s outside destroy target", b.Dependent),
				orcherrors.ErrBlockingDependency(b.Target, b.Dependent))
		}
	}

	if canceled, err := g.confirmStateful(ctx, r, requiredPhrase, order, surviving); err != nil {
		return err
	} else if canceled {
		r.Finalize(run.OutcomeCanceled)
		return nil
	}

	for _, node := range order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}
		if surviving[node.ID] {
			continue
		}
		// A node whose dependent survived this run must survive too.
		if dep := g.survivingDependent(node.ID, surviving); dep != "" {
			surviving[node.ID] = true
			r.SetNode(node.ID, graph.StateBlocked, fmt.Sprintf("dependent %s was not destroyed", dep),
				orcherrors.ErrBlockingDependency(node.ID, dep))
			continue
		}

		g.destroyNode(ctx, r, node, surviving)
	}
	return nil
}

// confirmStateful gates destruction of data-bearing nodes. Returns
// canceled=true when the user declines; no destructive call has been issued
// at that point.
func (g *Guard) confirmStateful(ctx context.Context, r *run.Run, requiredPhrase string, order []*graph.Node, surviving map[string]bool) (bool, error) {
	var doomed []string
	for _, node := range order {
		if !node.Stateful || surviving[node.ID] {
			continue
		}
		act, ok := g.actuators[node.ID]
		if !ok {
			return false, fmt.Errorf("no actuator bound for resource node %q", node.ID)
		}
		desc, err := act.Describe(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to describe stateful resource %s: %w", node.ID, err)
		}
		if desc.Exists {
			doomed = append(doomed, node.ID)
		}
	}
	if len(doomed) == 0 {
		return false, nil
	}

	message := fmt.Sprintf("This permanently destroys stateful resources and all their data: %s. This cannot be undone.",
		strings.Join(doomed, ", "))
	if !g.confirm(message, requiredPhrase) {
		g.logger.Info("destruction declined by user")
		return true, nil
	}
	return false, nil
}

func (g *Guard) destroyNode(ctx context.Context, r *run.Run, node *graph.Node, surviving map[string]bool) {
	act, ok := g.actuators[node.ID]
	if !ok {
		surviving[node.ID] = true
		r.SetNode(node.ID, graph.StateDegraded, "no actuator bound",
			orcherrors.ErrApplyFailed(node.ID, "no actuator bound", fmt.Errorf("no actuator bound for resource node %q", node.ID)))
		return
	}

	desc, err := act.Describe(ctx)
	if err != nil {
		surviving[node.ID] = true
		r.SetNode(node.ID, graph.StateDegraded, "describe failed", orcherrors.ErrApplyFailed(node.ID, "describe failed", err))
		return
	}
	if !desc.Exists {
		r.SetNode(node.ID, graph.StateDeleted, "already absent", nil)
		return
	}

	r.SetNode(node.ID, graph.StateDeleting, "", nil)
	g.logger.Info("deleting resource", "node", node.ID)

	err = act.Delete(ctx)
	if errors.Is(err, graph.ErrDeletionProtected) {
		err = g.deleteProtected(ctx, node, act)
	}
	if err != nil {
		surviving[node.ID] = true
		r.SetNode(node.ID, graph.StateDegraded, "delete failed", wrapDeleteError(node.ID, err))
		return
	}

	result := probe.Wait(ctx, act.ProbeSpec(), func(ctx context.Context) (probe.Observation, error) {
		d, derr := act.Describe(ctx)
		if derr != nil {
			return probe.Observation{}, derr
		}
		if d.Exists {
			return probe.Observation{Detail: "still deleting"}, nil
		}
		return probe.Observation{Ready: true, Detail: "deleted"}, nil
	})
	if result.State != probe.Ready {
		surviving[node.ID] = true
		r.SetNode(node.ID, graph.StateDegraded, result.Detail, orcherrors.ErrConvergenceTimeout(node.ID, nil))
		return
	}
	r.SetNode(node.ID, graph.StateDeleted, "", nil)
}

// deleteProtected clears the deletion-protection flag, re-verifies it is
// cleared, then retries the delete exactly once. A second rejection is fatal
// and surfaces the manual remediation command.
func (g *Guard) deleteProtected(ctx context.Context, node *graph.Node, act graph.Actuator) error {
	protector, ok := act.(graph.Protector)
	if !ok {
		return orcherrors.ErrProtectedResource(node.ID, "clear the deletion-protection flag manually and re-run destroy", nil)
	}

	g.logger.Info("clearing deletion protection", "node", node.ID)
	if err := protector.ClearDeletionProtection(ctx); err != nil {
		return orcherrors.ErrProtectedResource(node.ID, protector.ProtectionRemedy(), err)
	}
	stillProtected, err := protector.DeletionProtected(ctx)
	if err != nil {
		return orcherrors.ErrProtectedResource(node.ID, protector.ProtectionRemedy(), err)
	}
	if stillProtected {
		return orcherrors.ErrProtectedResource(node.ID, protector.ProtectionRemedy(), nil)
	}

	if err := act.Delete(ctx); err != nil {
		return orcherrors.ErrProtectedResource(node.ID, protector.ProtectionRemedy(), err)
	}
	return nil
}

// survivingDependent returns the id of a dependent that survived this run,
// or empty. Destroy order is dependents-first, so dependents are always
// resolved before their dependencies.
func (g *Guard) survivingDependent(id string, surviving map[string]bool) string {
	for _, dep := range g.registry.Dependents(id) {
		if surviving[dep] {
			return dep
		}
	}
	return ""
}

func wrapDeleteError(nodeID string, err error) error {
	var oerr *orcherrors.OrchestrationError
	if errors.As(err, &oerr) {
		return err
	}
	return orcherrors.ErrApplyFailed(nodeID, "delete failed", err)
}
