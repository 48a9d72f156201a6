package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/container/v1"

	"github.com/glidepath/glidepath/internal/constants"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/probe"
)

// KubeHealthReader reports node and system-pod health from inside the
// cluster. The node pool only counts as converged when the cluster it backs
// is actually serving: every node Ready and enough system pods Running.
type KubeHealthReader interface {
	// NodeHealth returns ready and total node counts.
	NodeHealth(ctx context.Context) (ready, total int, err error)
	// SystemPodHealth returns running and total pod counts for the system
	// namespace.
	SystemPodHealth(ctx context.Context) (running, total int, err error)
}

// SystemPodThresholdPercent is the minimum share of system pods that must be
// Running for the cluster to count as healthy. Below it is a hard failure.
const SystemPodThresholdPercent = 80

// SystemPodsHealthy applies the threshold rule: running/total must be at
// least 80%, with the boundary itself passing. An empty system namespace
// counts as unhealthy.
func SystemPodsHealthy(running, total int) bool {
	if total == 0 {
		return false
	}
	return running*100 >= total*SystemPodThresholdPercent
}

// NodePoolSpec carries the node pool parameters.
type NodePoolSpec struct {
	Project     string
	Location    string
	Cluster     string
	Name        string
	MachineType string
	NodeCount   int64
}

// NodePoolActuator manages the GKE node pool and its convergence: pool
// RUNNING, 100% of nodes Ready, and at least 80% of system pods Running.
type NodePoolActuator struct {
	clients *Clients
	spec    NodePoolSpec
	health  KubeHealthReader
}

// NewNodePoolActuator creates the actuator. health may be nil; convergence
// then only covers the pool status.
func NewNodePoolActuator(clients *Clients, spec NodePoolSpec, health KubeHealthReader) *NodePoolActuator {
	return &NodePoolActuator{clients: clients, spec: spec, health: health}
}

func (a *NodePoolActuator) poolName() string {
	return fmt.Sprintf("projects/%s/locations/%s/clusters/%s/nodePools/%s",
		a.spec.Project, a.spec.Location, a.spec.Cluster, a.spec.Name)
}

func (a *NodePoolActuator) Describe(ctx context.Context) (graph.Description, error) {
	pool, err := a.clients.Container.Projects.Locations.Clusters.NodePools.Get(a.poolName()).Context(ctx).Do()
	if err != nil {
		if IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get node pool %s: %w", a.spec.Name, err)
	}
	return graph.Description{Exists: true, Detail: pool.Status}, nil
}

func (a *NodePoolActuator) Create(ctx context.Context) error {
	req := &container.CreateNodePoolRequest{
		NodePool: &container.NodePool{
			Name:             a.spec.Name,
			InitialNodeCount: a.spec.NodeCount,
			Config:           &container.NodeConfig{MachineType: a.spec.MachineType},
		},
	}
	parent := fmt.Sprintf("projects/%s/locations/%s/clusters/%s", a.spec.Project, a.spec.Location, a.spec.Cluster)
	_, err := a.clients.Container.Projects.Locations.Clusters.NodePools.Create(parent, req).Context(ctx).Do()
	if err != nil && !IsConflict(err) {
		return fmt.Errorf("create node pool %s: %w", a.spec.Name, err)
	}
	return nil
}

func (a *NodePoolActuator) Delete(ctx context.Context) error {
	_, err := a.clients.Container.Projects.Locations.Clusters.NodePools.Delete(a.poolName()).Context(ctx).Do()
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete node pool %s: %w", a.spec.Name, err)
	}
	return nil
}

func (a *NodePoolActuator) Ready(ctx context.Context) (probe.Observation, error) {
	pool, err := a.clients.Container.Projects.Locations.Clusters.NodePools.Get(a.poolName()).Context(ctx).Do()
	if err != nil {
		if IsNotFound(err) {
			return probe.Observation{Detail: "node pool not yet visible"}, nil
		}
		return probe.Observation{}, err
	}
	switch pool.Status {
	case "RUNNING":
	case "ERROR":
		return probe.Observation{Failed: true, Detail: fmt.Sprintf("node pool ERROR: %s", pool.StatusMessage)}, nil
	default:
		return probe.Observation{Detail: fmt.Sprintf("node pool status %s", pool.Status)}, nil
	}

	if a.health == nil {
		return probe.Observation{Ready: true, Detail: "node pool RUNNING"}, nil
	}
	return a.observeClusterHealth(ctx)
}

func (a *NodePoolActuator) observeClusterHealth(ctx context.Context) (probe.Observation, error) {
	readyNodes, totalNodes, err := a.health.NodeHealth(ctx)
	if err != nil {
		return probe.Observation{}, fmt.Errorf("read node health: %w", err)
	}
	if totalNodes == 0 || readyNodes != totalNodes {
		return probe.Observation{Detail: fmt.Sprintf("nodes ready: %d/%d", readyNodes, totalNodes)}, nil
	}

	running, total, err := a.health.SystemPodHealth(ctx)
	if err != nil {
		return probe.Observation{}, fmt.Errorf("read system pod health: %w", err)
	}
	if !SystemPodsHealthy(running, total) {
		return probe.Observation{
			Detail: fmt.Sprintf("system pods running: %d/%d, below %d%% threshold", running, total, SystemPodThresholdPercent),
		}, nil
	}
	return probe.Observation{
		Ready:  true,
		Detail: fmt.Sprintf("node pool RUNNING, nodes %d/%d ready, system pods %d/%d running", readyNodes, totalNodes, running, total),
	}, nil
}

func (a *NodePoolActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.LongPollInterval, Timeout: constants.ClusterReadyTimeout}
}
