// Package gcp implements the cloud-side actuators and preflight probes for
// Google Cloud resources: VPC network, subnetwork, GKE cluster and node pool,
// global address, and managed certificate.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	resourcemanager "cloud.google.com/go/resourcemanager/apiv3"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/container/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/serviceusage/v1"
)

// Clients bundles the Google Cloud service clients used by the actuators and
// preflight checks.
type Clients struct {
	Compute      *compute.Service
	Container    *container.Service
	ServiceUsage *serviceusage.Service
	Projects     *resourcemanager.ProjectsClient
}

// NewClients builds the service clients with application default credentials.
func NewClients(ctx context.Context, opts ...option.ClientOption) (*Clients, error) {
	computeSvc, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create compute service: %w", err)
	}
	containerSvc, err := container.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create container service: %w", err)
	}
	usageSvc, err := serviceusage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create serviceusage service: %w", err)
	}
	projectsClient, err := resourcemanager.NewProjectsClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create projects client: %w", err)
	}
	return &Clients{
		Compute:      computeSvc,
		Container:    containerSvc,
		ServiceUsage: usageSvc,
		Projects:     projectsClient,
	}, nil
}

// Close releases the gRPC-backed clients.
func (c *Clients) Close() error {
	if c.Projects != nil {
		return c.Projects.Close()
	}
	return nil
}

// IsNotFound reports whether err is a 404 from a Google API. A not-found on
// delete means the resource is already gone and the delete is satisfied.
func IsNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from a Google API.
func IsConflict(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}
