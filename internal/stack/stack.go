package stack

import (
	"k8s.io/client-go/kubernetes"

	"github.com/glidepath/glidepath/internal/config"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/provider/gcp"
	"github.com/glidepath/glidepath/internal/provider/kube"
)

// Logical node ids.
const (
	NodeNetwork     = "network"
	NodeSubnet      = "subnet"
	NodeCluster     = "cluster"
	NodeNodePool    = "nodepool"
	NodeNamespace   = "namespace"
	NodeSecrets     = "secrets"
	NodeStorage     = "storage"
	NodeDatabase    = "database"
	NodeWorkload    = "workload"
	NodeService     = "service"
	NodeAddress     = "address"
	NodeIngress     = "ingress"
	NodeCertificate = "certificate"
)

// BuildRegistry declares the resource graph. Declaration order is the
// tie-break for unconstrained nodes, so the order here is meaningful.
func BuildRegistry() (*graph.Registry, error) {
	return graph.NewRegistry(
		&graph.Node{ID: NodeNetwork, Stage: graph.StageInfra},
		&graph.Node{ID: NodeSubnet, Stage: graph.StageInfra, DependsOn: []string{NodeNetwork}},
		&graph.Node{ID: NodeCluster, Stage: graph.StageInfra, DependsOn: []string{NodeSubnet}, Protected: true},
		&graph.Node{ID: NodeNodePool, Stage: graph.StageInfra, DependsOn: []string{NodeCluster}},
		&graph.Node{ID: NodeNamespace, Stage: graph.StageApp, DependsOn: []string{NodeNodePool}},
		&graph.Node{ID: NodeSecrets, Stage: graph.StageApp, DependsOn: []string{NodeNamespace}},
		&graph.Node{ID: NodeStorage, Stage: graph.StageApp, DependsOn: []string{NodeNamespace}, Stateful: true},
		&graph.Node{ID: NodeDatabase, Stage: graph.StageApp, DependsOn: []string{NodeSecrets}, Stateful: true},
		&graph.Node{ID: NodeWorkload, Stage: graph.StageApp, DependsOn: []string{NodeDatabase, NodeStorage}},
		&graph.Node{ID: NodeService, Stage: graph.StageApp, DependsOn: []string{NodeWorkload}},
		&graph.Node{ID: NodeAddress, Stage: graph.StageApp, DependsOn: []string{NodeNetwork}},
		&graph.Node{ID: NodeCertificate, Stage: graph.StageApp, DependsOn: []string{NodeAddress}, BestEffort: true},
		&graph.Node{ID: NodeIngress, Stage: graph.StageApp, DependsOn: []string{NodeService, NodeAddress, NodeCertificate}, BestEffort: true},
	)
}

// BuildActuators binds every node to its cloud-side actuator. In-cluster
// actuators resolve their connection through source at call time, so the
// bindings stay valid across cluster creation within a single run. A nil
// source means the connection is derived from the environment's own cluster.
func BuildActuators(clients *gcp.Clients, source KubeSource, env *config.Environment, names Names) graph.Actuators {
	appSpec := kube.AppSpec{
		Namespace:       names.Namespace(),
		Domain:          env.Domain,
		Replicas:        int32(env.Sizing.Replicas),
		DiskSizeGB:      env.Sizing.DiskSizeGB,
		DBDiskSizeGB:    env.Sizing.DBDiskSizeGB,
		CPURequest:      env.Sizing.CPURequest,
		MemoryRequest:   env.Sizing.MemoryRequest,
		AddressName:     names.Address(),
		CertificateName: names.Certificate(),
	}

	cluster := gcp.NewClusterActuator(clients, gcp.ClusterSpec{
		Project:     env.Project,
		Location:    env.Location(),
		Name:        names.Cluster(),
		Network:     names.Network(),
		Subnetwork:  names.Subnet(),
		MachineType: env.MachineType,
		NodeCount:   int64(env.NodeCount),
		Protected:   true,
	})
	if source == nil {
		source = NewGKESource(cluster)
	}

	actuators := graph.Actuators{
		NodeNetwork: gcp.NewNetworkActuator(clients, env.Project, names.Network()),
		NodeSubnet: gcp.NewSubnetActuator(clients, env.Project, env.Region,
			names.Network(), names.Subnet(), env.NetworkCIDR),
		NodeCluster: cluster,
		NodeNodePool: gcp.NewNodePoolActuator(clients, gcp.NodePoolSpec{
			Project:     env.Project,
			Location:    env.Location(),
			Cluster:     names.Cluster(),
			Name:        names.NodePool(),
			MachineType: env.MachineType,
			NodeCount:   int64(env.NodeCount),
		}, lazyHealthReader{source: source}),
		NodeAddress:     gcp.NewAddressActuator(clients, env.Project, names.Address()),
		NodeCertificate: gcp.NewCertificateActuator(clients, env.Project, names.Certificate(), env.Domain),
	}

	appBuilders := map[string]func(kubernetes.Interface) graph.Actuator{
		NodeNamespace: func(c kubernetes.Interface) graph.Actuator { return kube.NewNamespaceActuator(c, appSpec) },
		NodeSecrets:   func(c kubernetes.Interface) graph.Actuator { return kube.NewSecretActuator(c, appSpec) },
		NodeStorage:   func(c kubernetes.Interface) graph.Actuator { return kube.NewDataVolumeActuator(c, appSpec) },
		NodeDatabase:  func(c kubernetes.Interface) graph.Actuator { return kube.NewDatabaseActuator(c, appSpec) },
		NodeWorkload:  func(c kubernetes.Interface) graph.Actuator { return kube.NewWorkloadActuator(c, appSpec) },
		NodeService:   func(c kubernetes.Interface) graph.Actuator { return kube.NewServiceActuator(c, appSpec) },
		NodeIngress:   func(c kubernetes.Interface) graph.Actuator { return kube.NewIngressActuator(c, appSpec) },
	}
	for id, build := range appBuilders {
		actuators[id] = newLazyActuator(id, source, build)
	}
	return actuators
}
