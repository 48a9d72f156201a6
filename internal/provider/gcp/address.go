package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/compute/v1"

	"github.com/glidepath/glidepath/internal/constants"
	"github.com/glidepath/glidepath/internal/graph"
	"github.com/glidepath/glidepath/internal/probe"
)

// AddressActuator manages the global static IP the ingress binds to.
type AddressActuator struct {
	clients *Clients
	project string
	name    string
}

// NewAddressActuator creates the actuator for the environment's static IP.
func NewAddressActuator(clients *Clients, project, name string) *AddressActuator {
	return &AddressActuator{clients: clients, project: project, name: name}
}

// Get returns the live address, or nil when absent.
func (a *AddressActuator) Get(ctx context.Context) (*compute.Address, error) {
	addr, err := a.clients.Compute.GlobalAddresses.Get(a.project, a.name).Context(ctx).Do()
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get address %s: %w", a.name, err)
	}
	return addr, nil
}

func (a *AddressActuator) Describe(ctx context.Context) (graph.Description, error) {
	addr, err := a.Get(ctx)
	if err != nil || addr == nil {
		return graph.Description{}, err
	}
	return graph.Description{Exists: true, Detail: addr.Address}, nil
}

func (a *AddressActuator) Create(ctx context.Context) error {
	_, err := a.clients.Compute.GlobalAddresses.Insert(a.project, &compute.Address{Name: a.name}).Context(ctx).Do()
	if err != nil && !IsConflict(err) {
		return fmt.Errorf("insert address %s: %w", a.name, err)
	}
	return nil
}

func (a *AddressActuator) Delete(ctx context.Context) error {
	_, err := a.clients.Compute.GlobalAddresses.Delete(a.project, a.name).Context(ctx).Do()
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete address %s: %w", a.name, err)
	}
	return nil
}

func (a *AddressActuator) Ready(ctx context.Context) (probe.Observation, error) {
	addr, err := a.Get(ctx)
	if err != nil {
		return probe.Observation{}, err
	}
	if addr == nil || addr.Address == "" {
		return probe.Observation{Detail: "address not yet assigned"}, nil
	}
	return probe.Observation{Ready: true, Detail: addr.Address}, nil
}

func (a *AddressActuator) ProbeSpec() probe.Spec {
	return probe.Spec{Interval: constants.ShortPollInterval, Timeout: constants.NetworkReadyTimeout}
}
