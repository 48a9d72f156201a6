package stack

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"cloud.google.com/go/resourcemanager/apiv3/resourcemanagerpb"
	"google.golang.org/api/serviceusage/v1"

	"github.com/glidepath/glidepath/internal/config"
	"github.com/glidepath/glidepath/internal/constants"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/preflight"
	"github.com/glidepath/glidepath/internal/provider/gcp"
)

// RequiredServices are the Google Cloud APIs the rollout depends on. Disabled
// services are enabled automatically during preflight and re-checked after a
// short propagation delay.
var RequiredServices = []string{
	"compute.googleapis.com",
	"container.googleapis.com",
}

// Checker builds the preflight check set for one environment.
type Checker struct {
	clients *gcp.Clients
	env     *config.Environment
	names   Names
}

func NewChecker(clients *gcp.Clients, env *config.Environment, names Names) *Checker {
	return &Checker{clients: clients, env: env, names: names}
}

// InfraChecks gate the infra stage: credentials, API enablement, machine type
// availability, and address space conflicts.
func (c *Checker) InfraChecks() []preflight.Check {
	return []preflight.Check{
		{Name: "project reachable", Phase: preflight.PreStage, Fn: c.projectReachable},
		{Name: "required APIs enabled", Phase: preflight.PreStage, Fn: c.servicesEnabled},
		{Name: "machine type available", Phase: preflight.PreStage, Fn: c.machineTypeAvailable},
		{Name: "network CIDR free", Phase: preflight.PreStage, Fn: c.cidrFree},
	}
}

// AppChecks gate the app stage: the infra stage must have converged, and a
// pre-existing certificate must match the configured domain.
func (c *Checker) AppChecks() []preflight.Check {
	return []preflight.Check{
		{Name: "project reachable", Phase: preflight.PreStage, Fn: c.projectReachable},
		{Name: "cluster running", Phase: preflight.PreStage, Fn: c.clusterRunning},
		{Name: "certificate domain matches", Phase: preflight.PreStage, Fn: c.certificateDomainMatches},
		{Name: "address assigned", Phase: preflight.PostStage, Fn: c.addressAssigned},
	}
}

// ChecksFor returns the check set for the stages being applied. A combined
// invocation gets the infra gate plus the app checks that do not presuppose a
// converged infra stage: the cluster check would fail by definition before
// infra exists, but the certificate and address checks stand on their own.
func (c *Checker) ChecksFor(stages []graph.Stage) []preflight.Check {
	infra := false
	app := false
	for _, s := range stages {
		switch s {
		case graph.StageInfra:
			infra = true
		case graph.StageApp:
			app = true
		}
	}
	switch {
	case infra && app:
		return append(c.InfraChecks(),
			preflight.Check{Name: "certificate domain matches", Phase: preflight.PreStage, Fn: c.certificateDomainMatches},
			preflight.Check{Name: "address assigned", Phase: preflight.PostStage, Fn: c.addressAssigned},
		)
	case infra:
		return c.InfraChecks()
	default:
		return c.AppChecks()
	}
}

func (c *Checker) projectReachable(ctx context.Context) error {
	_, err := c.clients.Projects.GetProject(ctx, &resourcemanagerpb.GetProjectRequest{
		Name: "projects/" + c.env.Project,
	})
	if err != nil {
		return fmt.Errorf("project %s is not reachable with the active credentials: %v; "+
			"run 'gcloud auth application-default login' and verify the project id", c.env.Project, err)
	}
	return nil
}

// servicesEnabled enables any disabled required API and re-checks after a
// propagation delay. Enabling an already-enabled service is a no-op, so the
// check is safe to repeat.
func (c *Checker) servicesEnabled(ctx context.Context) error {
	disabled, err := c.disabledServices(ctx)
	if err != nil {
		return err
	}
	if len(disabled) == 0 {
		return nil
	}

	parent := "projects/" + c.env.Project
	_, err = c.clients.ServiceUsage.Services.BatchEnable(parent, &serviceusage.BatchEnableServicesRequest{
		ServiceIds: disabled,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("enable APIs %s: %v", strings.Join(disabled, ", "), err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(constants.APIEnableRecheckDelay):
	}

	disabled, err = c.disabledServices(ctx)
	if err != nil {
		return err
	}
	if len(disabled) > 0 {
		return fmt.Errorf("APIs still disabled after enabling: %s; enablement can take a few minutes, re-run shortly",
			strings.Join(disabled, ", "))
	}
	return nil
}

func (c *Checker) disabledServices(ctx context.Context) ([]string, error) {
	var disabled []string
	for _, svc := range RequiredServices {
		name := fmt.Sprintf("projects/%s/services/%s", c.env.Project, svc)
		state, err := c.clients.ServiceUsage.Services.Get(name).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("query API state for %s: %v", svc, err)
		}
		if state.State != "ENABLED" {
			disabled = append(disabled, svc)
		}
	}
	return disabled, nil
}

// machineTypeAvailable verifies the configured machine type exists in every
// zone the cluster will use. Regional clusters place nodes across all zones
// of the region, so the type must be available in each.
func (c *Checker) machineTypeAvailable(ctx context.Context) error {
	zones, err := c.clusterZones(ctx)
	if err != nil {
		return err
	}
	var missing []string
	for _, zone := range zones {
		_, err := c.clients.Compute.MachineTypes.Get(c.env.Project, zone, c.env.MachineType).Context(ctx).Do()
		if err != nil {
			if gcp.IsNotFound(err) {
				missing = append(missing, zone)
				continue
			}
			return fmt.Errorf("query machine type %s in %s: %v", c.env.MachineType, zone, err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("machine type %s is not available in %s; pick another type or location",
			c.env.MachineType, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Checker) clusterZones(ctx context.Context) ([]string, error) {
	if c.env.Topology == config.TopologyZonal {
		return []string{c.env.Zone}, nil
	}
	region, err := c.clients.Compute.Regions.Get(c.env.Project, c.env.Region).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("query region %s: %v", c.env.Region, err)
	}
	zones := make([]string, 0, len(region.Zones))
	for _, zoneURL := range region.Zones {
		parts := strings.Split(zoneURL, "/")
		zones = append(zones, parts[len(parts)-1])
	}
	return zones, nil
}

// cidrFree rejects a configured CIDR that overlaps an existing subnetwork in
// the region, except the rollout's own subnet from a previous run.
func (c *Checker) cidrFree(ctx context.Context) error {
	want, err := netip.ParsePrefix(c.env.NetworkCIDR)
	if err != nil {
		return fmt.Errorf("parse configured CIDR %q: %v", c.env.NetworkCIDR, err)
	}
	list, err := c.clients.Compute.Subnetworks.List(c.env.Project, c.env.Region).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("list subnetworks in %s: %v", c.env.Region, err)
	}
	for _, subnet := range list.Items {
		if subnet.Name == c.names.Subnet() {
			continue
		}
		existing, err := netip.ParsePrefix(subnet.IpCidrRange)
		if err != nil {
			continue
		}
		if want.Overlaps(existing) {
			return fmt.Errorf("CIDR %s overlaps subnet %s (%s); choose a free range",
				c.env.NetworkCIDR, subnet.Name, subnet.IpCidrRange)
		}
	}
	return nil
}

// clusterRunning gates the app stage on a converged infra stage.
func (c *Checker) clusterRunning(ctx context.Context) error {
	name := fmt.Sprintf("projects/%s/locations/%s/clusters/%s", c.env.Project, c.env.Location(), c.names.Cluster())
	cluster, err := c.clients.Container.Projects.Locations.Clusters.Get(name).Context(ctx).Do()
	if err != nil {
		if gcp.IsNotFound(err) {
			return fmt.Errorf("cluster %s does not exist; run the infra stage first (deploy %s apply-infra)",
				c.names.Cluster(), c.env.Name)
		}
		return fmt.Errorf("query cluster %s: %v", c.names.Cluster(), err)
	}
	if cluster.Status != "RUNNING" {
		return fmt.Errorf("cluster %s is %s, not RUNNING; wait for the infra stage to converge",
			c.names.Cluster(), cluster.Status)
	}
	return nil
}

// certificateDomainMatches rejects a pre-existing managed certificate whose
// domain set differs from the configured domain. Managed certificates cannot
// be updated in place; a mismatch means a stale or colliding resource.
func (c *Checker) certificateDomainMatches(ctx context.Context) error {
	if c.env.Domain == "" {
		return nil
	}
	cert, err := c.clients.Compute.SslCertificates.Get(c.env.Project, c.names.Certificate()).Context(ctx).Do()
	if err != nil {
		if gcp.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("query certificate %s: %v", c.names.Certificate(), err)
	}
	if cert.Managed == nil {
		return fmt.Errorf("certificate %s exists but is not managed; delete it or rename the environment",
			c.names.Certificate())
	}
	for _, d := range cert.Managed.Domains {
		if d == c.env.Domain {
			return nil
		}
	}
	return fmt.Errorf("certificate %s covers %s, not %s; delete it to reissue for the new domain",
		c.names.Certificate(), strings.Join(cert.Managed.Domains, ", "), c.env.Domain)
}

// addressAssigned is a post-stage advisory: the global address should have an
// IP by the time the app stage finishes.
func (c *Checker) addressAssigned(ctx context.Context) error {
	addr, err := c.clients.Compute.GlobalAddresses.Get(c.env.Project, c.names.Address()).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("query address %s: %v", c.names.Address(), err)
	}
	if addr.Address == "" {
		return fmt.Errorf("address %s has no IP assigned yet", c.names.Address())
	}
	return nil
}
