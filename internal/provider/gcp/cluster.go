package gcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"

	"google.golang.org/api/container/v1"

	"github.com/glidepath/glidepath/internal/constants"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/probe"
)

// protectionLabel is the cluster resource label acting as the
// deletion-protection flag. While set, the actuator refuses deletion.
const protectionLabel = "deletion-protection"

const clusterRunning = "RUNNING"

// ErrClusterNotFound reports that the cluster does not exist yet, so no
// API-server connection can be derived from it.
var ErrClusterNotFound = errors.New("cluster not found")

// ConnectInfo is the endpoint and CA certificate needed to talk to the
// cluster's API server directly.
type ConnectInfo struct {
	Endpoint string
	CACert   []byte
}

// ClusterSpec carries the cluster parameters taken from the environment
// configuration. Location is the zone for zonal topology, the region for
// regional; the choice is always explicit configuration.
type ClusterSpec struct {
	Project     string
	Location    string
	Name        string
	Network     string
	Subnetwork  string
	MachineType string
	NodeCount   int64
	Protected   bool
}

// ClusterActuator manages the GKE cluster control plane.
type ClusterActuator struct {
	clients *Clients
	spec    ClusterSpec
}

// NewClusterActuator creates the actuator for the environment's cluster.
func NewClusterActuator(clients *Clients, spec ClusterSpec) *ClusterActuator {
	return &ClusterActuator{clients: clients, spec: spec}
}

func (a *ClusterActuator) clusterName() string {
	return fmt.Sprintf("projects/%s/locations/%s/clusters/%s", a.spec.Project, a.spec.Location, a.spec.Name)
}

func (a *ClusterActuator) get(ctx context.Context) (*container.Cluster, error) {
	return a.clients.Container.Projects.Locations.Clusters.Get(a.clusterName()).Context(ctx).Do()
}

func (a *ClusterActuator) Describe(ctx context.Context) (graph.Description, error) {
	cluster, err := a.get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get cluster %s: %w", a.spec.Name, err)
	}
	return graph.Description{Exists: true, Detail: cluster.Status}, nil
}

func (a *ClusterActuator) Create(ctx context.Context) error {
	labels := map[string]string{}
	if a.spec.Protected {
		labels[protectionLabel] = "enabled"
	}
	req := &container.CreateClusterRequest{
		Cluster: &container.Cluster{
			Name:       a.spec.Name,
			Network:    a.spec.Network,
			Subnetwork: a.spec.Subnetwork,
			// The default pool is replaced by the managed node-pool node; a
			// minimal pool is still required at creation time.
			NodePools: []*container.NodePool{
				{
					Name:             "default-pool",
					InitialNodeCount: 1,
					Config:           &container.NodeConfig{MachineType: a.spec.MachineType},
				},
			},
			ResourceLabels: labels,
		},
	}
	parent := fmt.Sprintf("projects/%s/locations/%s", a.spec.Project, a.spec.Location)
	_, err := a.clients.Container.Projects.Locations.Clusters.Create(parent, req).Context(ctx).Do()
	if err != nil && !IsConflict(err) {
		return fmt.Errorf("create cluster %s: %w", a.spec.Name, err)
	}
	return nil
}

func (a *ClusterActuator) Delete(ctx context.Context) error {
	protected, err := a.DeletionProtected(ctx)
	if err != nil {
		return err
	}
	if protected {
		return fmt.Errorf("cluster %s: %w", a.spec.Name, graph.ErrDeletionProtected)
	}
	_, err = a.clients.Container.Projects.Locations.Clusters.Delete(a.clusterName()).Context(ctx).Do()
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete cluster %s: %w", a.spec.Name, err)
	}
	return nil
}

func (a *ClusterActuator) Ready(ctx context.Context) (probe.Observation, error) {
	cluster, err := a.get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return probe.Observation{Detail: "cluster not yet visible"}, nil
		}
		return probe.Observation{}, err
	}
	switch cluster.Status {
	case clusterRunning:
		return probe.Observation{Ready: true, Detail: "cluster RUNNING"}, nil
	case "ERROR", "DEGRADED":
		return probe.Observation{Failed: true, Detail: fmt.Sprintf("cluster status %s: %s", cluster.Status, cluster.StatusMessage)}, nil
	default:
		return probe.Observation{Detail: fmt.Sprintf("cluster status %s", cluster.Status)}, nil
	}
}

func (a *ClusterActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.LongPollInterval, Timeout: constants.ClusterReadyTimeout}
}

// ConnectInfo reads the API-server endpoint and cluster CA certificate from
// the live cluster. Returns ErrClusterNotFound while the cluster is absent.
func (a *ClusterActuator) ConnectInfo(ctx context.Context) (ConnectInfo, error) {
	cluster, err := a.get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return ConnectInfo{}, fmt.Errorf("cluster %s: %w", a.spec.Name, ErrClusterNotFound)
		}
		return ConnectInfo{}, fmt.Errorf("get cluster %s: %w", a.spec.Name, err)
	}
	if cluster.Endpoint == "" {
		return ConnectInfo{}, fmt.Errorf("cluster %s has no endpoint yet (status %s)", a.spec.Name, cluster.Status)
	}
	var caCert []byte
	if cluster.MasterAuth != nil && cluster.MasterAuth.ClusterCaCertificate != "" {
		caCert, err = base64.StdEncoding.DecodeString(cluster.MasterAuth.ClusterCaCertificate)
		if err != nil {
			return ConnectInfo{}, fmt.Errorf("decode CA certificate for cluster %s: %w", a.spec.Name, err)
		}
	}
	return ConnectInfo{Endpoint: cluster.Endpoint, CACert: caCert}, nil
}

// DeletionProtected reads the protection label from the live cluster.
func (a *ClusterActuator) DeletionProtected(ctx context.Context) (bool, error) {
	cluster, err := a.get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("get cluster %s: %w", a.spec.Name, err)
	}
	return cluster.ResourceLabels[protectionLabel] == "enabled", nil
}

// ClearDeletionProtection removes the protection label via the labels update
// call. The call is idempotent.
func (a *ClusterActuator) ClearDeletionProtection(ctx context.Context) error {
	cluster, err := a.get(ctx)
	if err != nil {
		return fmt.Errorf("get cluster %s: %w", a.spec.Name, err)
	}
	labels := maps.Clone(cluster.ResourceLabels)
	if labels == nil {
		labels = map[string]string{}
	}
	delete(labels, protectionLabel)
	req := &container.SetLabelsRequest{
		ResourceLabels:   labels,
		LabelFingerprint: cluster.LabelFingerprint,
		ForceSendFields:  []string{"ResourceLabels"},
	}
	_, err = a.clients.Container.Projects.Locations.Clusters.SetResourceLabels(a.clusterName(), req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear protection label on cluster %s: %w", a.spec.Name, err)
	}
	return nil
}

// ProtectionRemedy returns the manual command for clearing the flag.
func (a *ClusterActuator) ProtectionRemedy() string {
	return fmt.Sprintf("gcloud container clusters update %s --location %s --update-labels %s=disabled, then re-run destroy",
		a.spec.Name, a.spec.Location, protectionLabel)
}
