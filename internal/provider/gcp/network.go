package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/compute/v1"

	"github.com/glidepath/glidepath/internal/constants"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/probe"
)

// NetworkActuator manages the custom-mode VPC network.
type NetworkActuator struct {
	clients *Clients
	project string
	name    string
}

// NewNetworkActuator creates the actuator for the environment's VPC network.
func NewNetworkActuator(clients *Clients, project, name string) *NetworkActuator {
	return &NetworkActuator{clients: clients, project: project, name: name}
}

func (a *NetworkActuator) Describe(ctx context.Context) (graph.Description, error) {
	net, err := a.clients.Compute.Networks.Get(a.project, a.name).Context(ctx).Do()
	if err != nil {
		if IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get network %s: %w", a.name, err)
	}
	return graph.Description{Exists: true, Detail: net.SelfLink}, nil
}

func (a *NetworkActuator) Create(ctx context.Context) error {
	net := &compute.Network{
		Name:                  a.name,
		AutoCreateSubnetworks: false,
		ForceSendFields:       []string{"AutoCreateSubnetworks"},
	}
	_, err := a.clients.Compute.Networks.Insert(a.project, net).Context(ctx).Do()
	if err != nil && !IsConflict(err) {
		return fmt.Errorf("insert network %s: %w", a.name, err)
	}
	return nil
}

func (a *NetworkActuator) Delete(ctx context.Context) error {
	_, err := a.clients.Compute.Networks.Delete(a.project, a.name).Context(ctx).Do()
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete network %s: %w", a.name, err)
	}
	return nil
}

func (a *NetworkActuator) Ready(ctx context.Context) (probe.Observation, error) {
	desc, err := a.Describe(ctx)
	if err != nil {
		return probe.Observation{}, err
	}
	if !desc.Exists {
		return probe.Observation{Detail: "network not yet visible"}, nil
	}
	return probe.Observation{Ready: true, Detail: "network available"}, nil
}

func (a *NetworkActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.NetworkReadyTimeout}
}

// SubnetActuator manages the regional subnetwork carved out of the VPC.
type SubnetActuator struct {
	clients *Clients
	project string
	region  string
	network string
	name    string
	cidr    string
}

// NewSubnetActuator creates the actuator for the environment's subnetwork.
func NewSubnetActuator(clients *Clients, project, region, network, name, cidr string) *SubnetActuator {
	return &SubnetActuator{clients: clients, project: project, region: region, network: network, name: name, cidr: cidr}
}

func (a *SubnetActuator) Describe(ctx context.Context) (graph.Description, error) {
	subnet, err := a.clients.Compute.Subnetworks.Get(a.project, a.region, a.name).Context(ctx).Do()
	if err != nil {
		if IsNotFound(err) {
			return graph.Description{}, nil
		}
		return graph.Description{}, fmt.Errorf("get subnetwork %s: %w", a.name, err)
	}
	return graph.Description{Exists: true, Detail: subnet.IpCidrRange}, nil
}

func (a *SubnetActuator) Create(ctx context.Context) error {
	subnet := &compute.Subnetwork{
		Name:        a.name,
		IpCidrRange: a.cidr,
		Network:     fmt.Sprintf("projects/%s/global/networks/%s", a.project, a.network),
	}
	_, err := a.clients.Compute.Subnetworks.Insert(a.project, a.region, subnet).Context(ctx).Do()
	if err != nil && !IsConflict(err) {
		return fmt.Errorf("insert subnetwork %s: %w", a.name, err)
	}
	return nil
}

func (a *SubnetActuator) Delete(ctx context.Context) error {
	_, err := a.clients.Compute.Subnetworks.Delete(a.project, a.region, a.name).Context(ctx).Do()
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete subnetwork %s: %w", a.name, err)
	}
	return nil
}

func (a *SubnetActuator) Ready(ctx context.Context) (probe.Observation, error) {
	desc, err := a.Describe(ctx)
	if err != nil {
		return probe.Observation{}, err
	}
	if !desc.Exists {
		return probe.Observation{Detail: "subnetwork not yet visible"}, nil
	}
	if desc.Detail != a.cidr {
		return probe.Observation{Failed: true,
			Detail: fmt.Sprintf("subnetwork exists with CIDR %s, expected %s", desc.Detail, a.cidr)}, nil
	}
	return probe.Observation{Ready: true, Detail: "subnetwork available"}, nil
}

func (a *SubnetActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.NetworkReadyTimeout}
}
