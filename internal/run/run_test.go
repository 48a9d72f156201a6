package run

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orcherrors "github.com/glidepath/glidepath/internal/errors"
	"github.com/glidepath/glidepath/internal/graph"
)

func TestRun_FinalizeDerivesOutcome(t *testing.T) {
	tests := []struct {
		name   string
		states map[string]graph.State
		want   Outcome
	}{
		{
			name:   "all ready is success",
			states: map[string]graph.State{"network": graph.StateReady, "cluster": graph.StateReady},
			want:   OutcomeSuccess,
		},
		{
			name:   "all failed is apply-failed",
			states: map[string]graph.State{"network": graph.StateDegraded, "cluster": graph.StateBlocked},
			want:   OutcomeApplyFailed,
		},
		{
			name:   "mixed is partial",
			states: map[string]graph.State{"network": graph.StateReady, "cluster": graph.StateDegraded},
			want:   OutcomePartial,
		},
		{
			name:   "deletes count as success",
			states: map[string]graph.State{"workload": graph.StateDeleted},
			want:   OutcomeSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New("dev", "apply", []graph.Stage{graph.StageInfra})
			for id, state := range tt.states {
				r.SetNode(id, state, "", nil)
			}
			assert.Equal(t, tt.want, r.Finalize(""))
		})
	}
}

func TestRun_FinalizeExplicitOutcomeWins(t *testing.T) {
	r := New("dev", "apply", []graph.Stage{graph.StageInfra})
	r.SetNode("network", graph.StateReady, "", nil)
	assert.Equal(t, OutcomeValidationFailed, r.Finalize(OutcomeValidationFailed))
}

func TestRun_NodesPreserveFirstTouchOrder(t *testing.T) {
	r := New("dev", "apply", []graph.Stage{graph.StageInfra})
	r.SetNode("network", graph.StateCreating, "", nil)
	r.SetNode("cluster", graph.StateCreating, "", nil)
	r.SetNode("network", graph.StateReady, "converged", nil)

	nodes := r.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "network", nodes[0].ID)
	assert.Equal(t, graph.StateReady, nodes[0].State)
	assert.Equal(t, "cluster", nodes[1].ID)
}

func TestRun_Warnings(t *testing.T) {
	r := New("dev", "apply", []graph.Stage{graph.StageApp})
	r.Warn("ingress address not yet assigned")
	r.Warn("certificate still PROVISIONING")
	assert.Equal(t, []string{"ingress address not yet assigned", "certificate still PROVISIONING"}, r.Warnings())
}

func TestAcquireLock_RefusesSecondAcquire(t *testing.T) {
	env := "locktest-" + t.Name()
	lock, err := AcquireLock(env)
	require.NoError(t, err)
	defer lock.Release()

	_, err = AcquireLock(env)
	require.Error(t, err)

	var oerr *orcherrors.OrchestrationError
	require.True(t, errors.As(err, &oerr))
	assert.Equal(t, orcherrors.CodeRunLocked, oerr.Code)
}

func TestAcquireLock_ReleaseAllowsReacquire(t *testing.T) {
	env := "locktest-release"
	lock, err := AcquireLock(env)
	require.NoError(t, err)
	lock.Release()

	lock2, err := AcquireLock(env)
	require.NoError(t, err)
	lock2.Release()
}

func TestPlan_SaveLoadDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	p := &Plan{
		Environment: "dev",
		Target:      "plan-infra",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		Actions: []PlannedAction{
			{Node: "network", Stage: graph.StageInfra, Action: "create"},
			{Node: "cluster", Stage: graph.StageInfra, Action: "skip", Reason: "already exists"},
		},
	}
	require.NoError(t, p.Save(path))

	loaded, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, p.Environment, loaded.Environment)
	require.Len(t, loaded.Actions, 2)
	assert.Equal(t, "skip", loaded.Actions[1].Action)

	Discard(path)
	_, err = LoadPlan(path)
	assert.Error(t, err, "plan artifact must be gone after discard")
}
