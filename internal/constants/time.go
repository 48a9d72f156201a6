package constants

import "time"

// DefaultContextTimeout is the default timeout for short cloud describe calls.
const DefaultContextTimeout = 30 * time.Second

// NetworkReadyTimeout bounds VPC network and subnetwork creation.
const NetworkReadyTimeout = 3 * time.Minute

// ClusterReadyTimeout bounds GKE cluster and node pool convergence.
const ClusterReadyTimeout = 20 * time.Minute

// WorkloadReadyTimeout bounds deployment/statefulset replica convergence.
const WorkloadReadyTimeout = 5 * time.Minute

// IngressReadyTimeout bounds external address assignment on an ingress.
// Address assignment routinely lags stage completion, so hitting this budget
// is a warning rather than a failure.
const IngressReadyTimeout = 8 * time.Minute

// CertificateReadyTimeout bounds managed certificate provisioning. Managed
// certificates can take tens of minutes to reach ACTIVE.
const CertificateReadyTimeout = 40 * time.Minute

// ShortPollInterval is the poll interval for fast-converging resources.
const ShortPollInterval = 5 * time.Second

// LongPollInterval is the poll interval for slow-converging resources
// (clusters, certificates).
const LongPollInterval = 20 * time.Second

// APIEnableRecheckDelay is how long to wait after enabling a cloud API before
// re-running the availability check.
const APIEnableRecheckDelay = 10 * time.Second

// TestContextTimeout is the timeout for test contexts.
const TestContextTimeout = 5 * time.Second
