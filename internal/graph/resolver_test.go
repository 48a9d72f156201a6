package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodes() []*Node {
	return []*Node{
		{ID: "network", Stage: StageInfra},
		{ID: "subnet", Stage: StageInfra, DependsOn: []string{"network"}},
		{ID: "cluster", Stage: StageInfra, DependsOn: []string{"subnet"}, Protected: true},
		{ID: "nodepool", Stage: StageInfra, DependsOn: []string{"cluster"}},
		{ID: "namespace", Stage: StageApp, DependsOn: []string{"nodepool"}},
		{ID: "secrets", Stage: StageApp, DependsOn: []string{"namespace"}},
		{ID: "storage", Stage: StageApp, DependsOn: []string{"namespace"}, Stateful: true},
		{ID: "database", Stage: StageApp, DependsOn: []string{"secrets", "storage"}, Stateful: true},
		{ID: "workload", Stage: StageApp, DependsOn: []string{"database"}},
		{ID: "service", Stage: StageApp, DependsOn: []string{"workload"}},
		{ID: "address", Stage: StageApp, DependsOn: []string{"network"}},
		{ID: "ingress", Stage: StageApp, DependsOn: []string{"service", "address"}},
		{ID: "certificate", Stage: StageApp, DependsOn: []string{"ingress"}},
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []*Node
		wantErr string
	}{
		{
			name:  "valid graph",
			nodes: testNodes(),
		},
		{
			name: "duplicate id",
			nodes: []*Node{
				{ID: "network", Stage: StageInfra},
				{ID: "network", Stage: StageInfra},
			},
			wantErr: "duplicate resource node id",
		},
		{
			name: "unknown dependency",
			nodes: []*Node{
				{ID: "cluster", Stage: StageInfra, DependsOn: []string{"missing"}},
			},
			wantErr: "unknown node",
		},
		{
			name: "cycle is fatal",
			nodes: []*Node{
				{ID: "a", Stage: StageInfra, DependsOn: []string{"c"}},
				{ID: "b", Stage: StageInfra, DependsOn: []string{"a"}},
				{ID: "c", Stage: StageInfra, DependsOn: []string{"b"}},
			},
			wantErr: "cycle",
		},
		{
			name: "empty id",
			nodes: []*Node{
				{ID: "", Stage: StageInfra},
			},
			wantErr: "empty id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.nodes...)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOrderForApply_InfraOnly(t *testing.T) {
	r, err := NewRegistry(testNodes()...)
	require.NoError(t, err)

	order := r.OrderForApply(StageInfra)
	ids := nodeIDs(order)

	assert.Equal(t, []string{"network", "subnet", "cluster", "nodepool"}, ids)
}

func TestOrderForApply_AppIncludesTransitiveInfraDeps(t *testing.T) {
	r, err := NewRegistry(testNodes()...)
	require.NoError(t, err)

	order := r.OrderForApply(StageApp)
	ids := nodeIDs(order)

	// App depends transitively on every infra node, so the full chain appears
	// dependencies-first.
	assert.Equal(t, "network", ids[0])
	assertValidTopoOrder(t, r, order)
	assert.Len(t, order, len(testNodes()))
}

func TestOrderForApply_Deterministic(t *testing.T) {
	r, err := NewRegistry(testNodes()...)
	require.NoError(t, err)

	first := nodeIDs(r.OrderForApply(StageInfra, StageApp))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, nodeIDs(r.OrderForApply(StageInfra, StageApp)))
	}

	// secrets and storage have identical constraints; declaration order wins.
	idx := func(ids []string, id string) int {
		for i, v := range ids {
			if v == id {
				return i
			}
		}
		return -1
	}
	assert.Less(t, idx(first, "secrets"), idx(first, "storage"))
}

func TestOrderForApply_RandomDAGs(t *testing.T) {
	// Property: the resolver's output is always a valid topological order.
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		n := 3 + rng.Intn(15)
		nodes := make([]*Node, n)
		for i := 0; i < n; i++ {
			node := &Node{ID: fmt.Sprintf("n%d", i), Stage: StageInfra}
			// Edges only point at earlier-declared nodes, so the graph is a
			// DAG by construction.
			for j := 0; j < i; j++ {
				if rng.Intn(3) == 0 {
					node.DependsOn = append(node.DependsOn, fmt.Sprintf("n%d", j))
				}
			}
			nodes[i] = node
		}

		r, err := NewRegistry(nodes...)
		require.NoError(t, err)

		order := r.OrderForApply(StageInfra)
		require.Len(t, order, n)
		assertValidTopoOrder(t, r, order)
	}
}

func TestOrderForDestroy_ReverseOrder(t *testing.T) {
	r, err := NewRegistry(testNodes()...)
	require.NoError(t, err)

	order, blocking := r.OrderForDestroy(StageApp)
	ids := nodeIDs(order)

	assert.Empty(t, blocking, "nothing outside app depends on app nodes")
	// Dependents come before their dependencies.
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	for _, n := range order {
		for _, dep := range n.DependsOn {
			if i, ok := pos[dep]; ok {
				assert.Greater(t, i, pos[n.ID], "%s must be destroyed before its dependency %s", n.ID, dep)
			}
		}
	}
}

func TestOrderForDestroy_BlockingDependents(t *testing.T) {
	r, err := NewRegistry(testNodes()...)
	require.NoError(t, err)

	_, blocking := r.OrderForDestroy(StageInfra)

	require.NotEmpty(t, blocking, "app nodes depend on infra and must be reported")
	var dependents []string
	for _, b := range blocking {
		dependents = append(dependents, b.Dependent)
	}
	assert.Contains(t, dependents, "namespace")
	assert.Contains(t, dependents, "address")
}

func TestOrderForDestroy_AllStagesHasNoBlocking(t *testing.T) {
	r, err := NewRegistry(testNodes()...)
	require.NoError(t, err)

	order, blocking := r.OrderForDestroy(StageInfra, StageApp)

	assert.Empty(t, blocking)
	assert.Len(t, order, len(testNodes()))
	assert.Equal(t, "network", order[len(order)-1].ID, "network is destroyed last")
}

func TestDependents(t *testing.T) {
	r, err := NewRegistry(testNodes()...)
	require.NoError(t, err)

	assert.Equal(t, []string{"subnet", "address"}, r.Dependents("network"))
	assert.Empty(t, r.Dependents("certificate"))
}

func nodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func assertValidTopoOrder(t *testing.T, r *Registry, order []*Node) {
	t.Helper()
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n.ID] = i
	}
	for _, n := range order {
		for _, dep := range n.DependsOn {
			if depPos, ok := pos[dep]; ok {
				assert.Less(t, depPos, pos[n.ID], "%s ordered before its dependency %s", n.ID, dep)
			}
		}
	}
}
