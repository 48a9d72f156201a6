package stack

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glidepath/glidepath/internal/executor"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/run"
	"github.com/glidepath/glidepath/internal/teardown"
	"github.com/glidepath/glidepath/internal/testutil"
)

// fakeActuators binds one in-memory actuator per node of the real graph.
func fakeActuators(t *testing.T) (graph.Actuators, map[string]*testutil.FakeActuator) {
	t.Helper()
	reg, err := BuildRegistry()
	require.NoError(t, err)

	fakes := make(map[string]*testutil.FakeActuator)
	actuators := make(graph.Actuators)
	for _, node := range reg.Nodes() {
		f := &testutil.FakeActuator{}
		fakes[node.ID] = f
		actuators[node.ID] = f
	}
	return actuators, fakes
}

func acceptAll(_, _ string) bool { return true }

// TestFullLifecycle walks one environment through its whole life: staged
// apply, idempotent re-apply, app teardown, then infra teardown.
func TestFullLifecycle(t *testing.T) {
	reg, err := BuildRegistry()
	require.NoError(t, err)
	actuators, fakes := fakeActuators(t)
	logger := slog.New(slog.DiscardHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exec := executor.New(reg, actuators, logger)

	// Plan against an empty environment proposes creating all infra nodes.
	plan, err := exec.PlanOnly(ctx, "dev", "infra", graph.StageInfra)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 4)
	for _, a := range plan.Actions {
		assert.Equal(t, "create", a.Action)
	}
	for id, f := range fakes {
		assert.Zero(t, f.CreateCalls, "plan must not mutate %s", id)
	}

	// Infra apply creates exactly the infra nodes.
	r := run.New("dev", "infra", []graph.Stage{graph.StageInfra})
	require.NoError(t, exec.Apply(ctx, r, graph.StageInfra))
	assert.Equal(t, run.OutcomeSuccess, r.Finalize(""))
	for _, id := range []string{NodeNetwork, NodeSubnet, NodeCluster, NodeNodePool} {
		assert.True(t, fakes[id].Exists, "%s should exist after infra apply", id)
	}
	assert.False(t, fakes[NodeWorkload].Exists)

	// App apply converges on top of the existing infra without re-creating it.
	r = run.New("dev", "app", []graph.Stage{graph.StageApp})
	require.NoError(t, exec.Apply(ctx, r, graph.StageApp))
	assert.Equal(t, run.OutcomeSuccess, r.Finalize(""))
	assert.True(t, fakes[NodeWorkload].Exists)
	assert.True(t, fakes[NodeIngress].Exists)
	assert.Equal(t, 1, fakes[NodeCluster].CreateCalls, "infra must not be re-created")

	// Re-applying everything is a no-op on the cloud side.
	r = run.New("dev", "all", []graph.Stage{graph.StageInfra, graph.StageApp})
	require.NoError(t, exec.Apply(ctx, r, graph.StageInfra, graph.StageApp))
	assert.Equal(t, run.OutcomeSuccess, r.Finalize(""))
	for id, f := range fakes {
		assert.Equal(t, 1, f.CreateCalls, "%s created exactly once", id)
	}

	// Infra destroy is refused while app resources are live; nothing infra
	// side is deleted.
	guard := teardown.New(reg, actuators, acceptAll, logger)
	r = run.New("dev", "infra", []graph.Stage{graph.StageInfra})
	require.NoError(t, guard.Destroy(ctx, r, "destroy", graph.StageInfra))
	assert.NotEqual(t, run.OutcomeSuccess, r.Finalize(""))
	assert.Zero(t, fakes[NodeCluster].DeleteCalls)
	assert.Zero(t, fakes[NodeNetwork].DeleteCalls)

	// App destroy removes the app and leaves infra intact.
	r = run.New("dev", "app", []graph.Stage{graph.StageApp})
	require.NoError(t, guard.Destroy(ctx, r, "destroy", graph.StageApp))
	assert.Equal(t, run.OutcomeSuccess, r.Finalize(""))
	assert.False(t, fakes[NodeWorkload].Exists)
	assert.False(t, fakes[NodeDatabase].Exists)
	assert.True(t, fakes[NodeCluster].Exists)

	// Infra destroy now proceeds, clearing the cluster's protection first.
	fakes[NodeCluster].Protected = true
	r = run.New("dev", "infra", []graph.Stage{graph.StageInfra})
	require.NoError(t, guard.Destroy(ctx, r, "destroy", graph.StageInfra))
	assert.Equal(t, run.OutcomeSuccess, r.Finalize(""))
	assert.Equal(t, 1, fakes[NodeCluster].ClearCalls)
	for id, f := range fakes {
		assert.False(t, f.Exists, "%s should be gone", id)
	}
}

// TestFailedInfraBlocksDependentsButNotSiblings exercises a cluster creation
// failure: downstream nodes are blocked, the network branch still applies.
func TestFailedInfraBlocksDependentsButNotSiblings(t *testing.T) {
	reg, err := BuildRegistry()
	require.NoError(t, err)
	actuators, fakes := fakeActuators(t)
	fakes[NodeCluster].CreateErr = assert.AnError

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exec := executor.New(reg, actuators, slog.New(slog.DiscardHandler))
	r := run.New("dev", "infra", []graph.Stage{graph.StageInfra})
	require.NoError(t, exec.Apply(ctx, r, graph.StageInfra))

	assert.Equal(t, run.OutcomePartial, r.Finalize(""))
	assert.True(t, fakes[NodeNetwork].Exists)
	assert.True(t, fakes[NodeSubnet].Exists)
	nodePool, ok := r.Node(NodeNodePool)
	require.True(t, ok)
	assert.Equal(t, graph.StateBlocked, nodePool.State)
	assert.Zero(t, fakes[NodeNodePool].CreateCalls)
}
