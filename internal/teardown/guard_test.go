package teardown

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orcherrors "github.com/glidepath/glidepath/internal/errors"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/run"
	"github.com/glidepath/glidepath/internal/testutil"
)

func fullNodes() []*graph.Node {
	return []*graph.Node{
		{ID: "network", Stage: graph.StageInfra},
		{ID: "cluster", Stage: graph.StageInfra, DependsOn: []string{"network"}, Protected: true},
		{ID: "namespace", Stage: graph.StageApp, DependsOn: []string{"cluster"}},
		{ID: "database", Stage: graph.StageApp, DependsOn: []string{"namespace"}, Stateful: true},
		{ID: "workload", Stage: graph.StageApp, DependsOn: []string{"database"}},
	}
}

func newGuardSetup(t *testing.T, nodes []*graph.Node, confirm ConfirmFunc) (*Guard, map[string]*testutil.FakeActuator) {
	t.Helper()
	registry, err := graph.NewRegistry(nodes...)
	require.NoError(t, err)

	fakes := make(map[string]*testutil.FakeActuator, len(nodes))
	actuators := make(graph.Actuators, len(nodes))
	for _, n := range nodes {
		f := &testutil.FakeActuator{Exists: true, Protected: n.Protected}
		fakes[n.ID] = f
		actuators[n.ID] = f
	}
	if confirm == nil {
		confirm = func(message, phrase string) bool { return true }
	}
	return New(registry, actuators, confirm, slog.New(slog.DiscardHandler)), fakes
}

func TestDestroy_AppLeavesInfra(t *testing.T) {
	g, fakes := newGuardSetup(t, fullNodes(), nil)
	r := run.New("dev", "destroy-app", []graph.Stage{graph.StageApp})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageApp))

	assert.Equal(t, run.OutcomeSuccess, r.Finalize(""))
	assert.Equal(t, 1, fakes["workload"].DeleteCalls)
	assert.Equal(t, 1, fakes["database"].DeleteCalls)
	assert.Equal(t, 1, fakes["namespace"].DeleteCalls)
	assert.Equal(t, 0, fakes["cluster"].DeleteCalls, "infra must be untouched")
	assert.Equal(t, 0, fakes["network"].DeleteCalls)
}

func TestDestroy_BlockingDependencyRefusesBranch(t *testing.T) {
	// Destroying infra while app nodes still exist must refuse without a
	// single delete call against the depended-upon node.
	g, fakes := newGuardSetup(t, fullNodes(), nil)
	fakes["cluster"].Protected = false
	r := run.New("dev", "destroy-infra", []graph.Stage{graph.StageInfra})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageInfra))

	cluster, ok := r.Node("cluster")
	require.True(t, ok)
	assert.Equal(t, graph.StateBlocked, cluster.State)
	assert.Equal(t, orcherrors.CodeBlockingDependency, orcherrors.GetCode(cluster.Err))
	assert.Contains(t, cluster.Err.Error(), "namespace")
	assert.Equal(t, 0, fakes["cluster"].DeleteCalls)

	// Network is needed by the surviving cluster, so it survives too.
	network, _ := r.Node("network")
	assert.Equal(t, graph.StateBlocked, network.State)
	assert.Equal(t, 0, fakes["network"].DeleteCalls)
}

func TestDestroy_InfraAfterAppGoneSucceeds(t *testing.T) {
	g, fakes := newGuardSetup(t, fullNodes(), nil)
	fakes["cluster"].Protected = false
	// App resources already destroyed externally.
	for _, id := range []string{"namespace", "database", "workload"} {
		fakes[id].Exists = false
	}
	r := run.New("dev", "destroy-infra", []graph.Stage{graph.StageInfra})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageInfra))

	assert.Equal(t, run.OutcomeSuccess, r.Finalize(""))
	assert.Equal(t, 1, fakes["cluster"].DeleteCalls)
	assert.Equal(t, 1, fakes["network"].DeleteCalls)
}

func TestDestroy_AbsentNodeIsNoOpSuccess(t *testing.T) {
	g, fakes := newGuardSetup(t, fullNodes(), nil)
	fakes["workload"].Exists = false
	r := run.New("dev", "destroy-app", []graph.Stage{graph.StageApp})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageApp))

	workload, _ := r.Node("workload")
	assert.Equal(t, graph.StateDeleted, workload.State)
	assert.Equal(t, "already absent", workload.Detail)
	assert.Equal(t, 0, fakes["workload"].DeleteCalls)
	assert.Equal(t, run.OutcomeSuccess, r.Finalize(""))
}

func TestDestroy_ConfirmationDeclinedIsCleanCancel(t *testing.T) {
	declined := func(message, phrase string) bool { return false }
	g, fakes := newGuardSetup(t, fullNodes(), declined)
	r := run.New("dev", "destroy-app", []graph.Stage{graph.StageApp})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageApp))

	assert.Equal(t, run.OutcomeCanceled, r.Outcome())
	for id, f := range fakes {
		assert.Equal(t, 0, f.DeleteCalls, "no destructive call after declined confirmation (%s)", id)
	}
}

func TestDestroy_ConfirmationEnumeratesStatefulNodes(t *testing.T) {
	var captured string
	confirm := func(message, phrase string) bool {
		captured = message
		return false
	}
	g, _ := newGuardSetup(t, fullNodes(), confirm)
	r := run.New("dev", "destroy-app", []graph.Stage{graph.StageApp})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageApp))
	assert.Contains(t, captured, "database")
}

func TestDestroy_NoConfirmationWhenNothingStateful(t *testing.T) {
	prompted := false
	confirm := func(message, phrase string) bool {
		prompted = true
		return true
	}
	g, fakes := newGuardSetup(t, fullNodes(), confirm)
	fakes["database"].Exists = false
	r := run.New("dev", "destroy-app", []graph.Stage{graph.StageApp})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageApp))
	assert.False(t, prompted, "the data-loss gate only fires for live stateful resources")
}

func TestDestroy_ProtectedResourceClearedAndRetriedOnce(t *testing.T) {
	g, fakes := newGuardSetup(t, fullNodes(), nil)
	for _, id := range []string{"namespace", "database", "workload"} {
		fakes[id].Exists = false
	}
	r := run.New("dev", "destroy-infra", []graph.Stage{graph.StageInfra})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageInfra))

	cluster, _ := r.Node("cluster")
	assert.Equal(t, graph.StateDeleted, cluster.State)
	assert.Equal(t, 1, fakes["cluster"].ClearCalls)
	assert.Equal(t, 2, fakes["cluster"].DeleteCalls, "initial attempt plus exactly one retry")
}

func TestDestroy_StickyProtectionFatalAfterExactlyOneRetry(t *testing.T) {
	g, fakes := newGuardSetup(t, fullNodes(), nil)
	for _, id := range []string{"namespace", "database", "workload"} {
		fakes[id].Exists = false
	}
	fakes["cluster"].ProtectionSticky = true
	r := run.New("dev", "destroy-infra", []graph.Stage{graph.StageInfra})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageInfra))

	cluster, _ := r.Node("cluster")
	assert.Equal(t, graph.StateDegraded, cluster.State)
	assert.Equal(t, orcherrors.CodeProtectedResource, orcherrors.GetCode(cluster.Err))
	assert.NotEmpty(t, orcherrors.GetRemedy(cluster.Err))
	assert.Equal(t, 2, fakes["cluster"].DeleteCalls, "initial attempt plus exactly one retry, never a loop")
	assert.Equal(t, 1, fakes["cluster"].ClearCalls)

	// The branch is fatal, but network survives as its dependency.
	network, _ := r.Node("network")
	assert.Equal(t, graph.StateBlocked, network.State)
	assert.Equal(t, 0, fakes["network"].DeleteCalls)
}

func TestDestroy_FlagThatNeverClearsSkipsRetry(t *testing.T) {
	g, fakes := newGuardSetup(t, fullNodes(), nil)
	for _, id := range []string{"namespace", "database", "workload"} {
		fakes[id].Exists = false
	}
	fakes["cluster"].ClearFails = true
	r := run.New("dev", "destroy-infra", []graph.Stage{graph.StageInfra})

	require.NoError(t, g.Destroy(context.Background(), r, "destroy", graph.StageInfra))

	cluster, _ := r.Node("cluster")
	assert.Equal(t, orcherrors.CodeProtectedResource, orcherrors.GetCode(cluster.Err))
	assert.Equal(t, 1, fakes["cluster"].DeleteCalls, "re-verification failed, so no delete retry")
}
