// Package graph defines the resource dependency graph for glidepath: the
// typed registry of resource nodes and the topological orderings used for
// apply and destroy.
package graph

// Stage is a named subset of resource nodes applied or destroyed together.
type Stage string

const (
	// StageInfra covers the foundational cloud resources: network, subnet,
	// cluster, node pool.
	StageInfra Stage = "infra"
	// StageApp covers the application resources deployed onto the cluster.
	StageApp Stage = "app"
)

// Stages returns the stages covered by a CLI target name.
// "all" expands to infra then app; apply order is infra-first, destroy order
// is handled by the resolver.
func Stages(target string) []Stage {
	switch target {
	case "all":
		return []Stage{StageInfra, StageApp}
	case string(StageInfra):
		return []Stage{StageInfra}
	case string(StageApp):
		return []Stage{StageApp}
	}
	return nil
}

// State is the lifecycle state of a resource node, re-derived from external
// cloud state on every run.
type State string

const (
	StateAbsent   State = "absent"
	StateCreating State = "creating"
	StateReady    State = "ready"
	StateDegraded State = "degraded"
	StateBlocked  State = "blocked"
	StateDeleting State = "deleting"
	StateDeleted  State = "deleted"
)

// Node is one infrastructure or application unit tracked by the orchestrator.
type Node struct {
	// ID is the stable logical name of the node (e.g. "cluster", "workload").
	ID string
	// Stage the node belongs to.
	Stage Stage
	// DependsOn lists the ids of nodes that must be ready before this node is
	// created, and that must outlive this node on destroy.
	DependsOn []string
	// BestEffort marks nodes whose convergence timeout is a warning rather
	// than a hard failure (ingress address assignment, managed certificates);
	// their dependents are not blocked by a timeout.
	BestEffort bool
	// Stateful marks nodes whose destruction loses data and therefore
	// requires an explicit per-run confirmation.
	Stateful bool
	// Protected marks nodes that carry a deletion-protection flag which must
	// be cleared before deletion.
	Protected bool
}
