package health

import (
	"context"
	"time"

	"github.com/monocle-dev/fleetwatch/internal/models"
	"github.com/monocle-dev/fleetwatch/internal/types"
)

// Prober checks network reachability of a host. Unreachable is a normal
// result; only a broken probe subsystem returns an error.
type Prober interface {
	Probe(ctx context.Context, hostname string, timeout time.Duration) (ProbeResult, error)
}

// ServerUpdate is what one evaluation writes back to a server record.
type ServerUpdate struct {
	Status       types.ServerStatus
	LastSeen     time.Time
	ClearMetrics bool
}

// IncidentUpdate mutates the single active incident of a host. A non-nil
// ResolvedAt closes the incident.
type IncidentUpdate struct {
	Status     types.ServerStatus
	ResolvedAt *time.Time
}

type IncidentWriter interface {
	// CreateIncident fails with ErrDataInconsistency when the host already
	// has an active incident.
	CreateIncident(ctx context.Context, incident *models.Incident) error
	// UpdateActiveIncident fails with ErrDataInconsistency unless exactly one
	// active incident exists for hostname.
	UpdateActiveIncident(ctx context.Context, hostname string, update IncidentUpdate) error
}

type HostWriter interface {
	IncidentWriter
	UpdateServer(ctx context.Context, hostname string, update ServerUpdate) error
}

// FleetStore is the durable store the evaluation loop works against.
type FleetStore interface {
	ListServers(ctx context.Context) ([]models.Server, error)
	// WithHost runs fn as one atomic unit of writes for hostname. Nothing
	// written through the HostWriter survives if fn returns an error.
	WithHost(ctx context.Context, hostname string, fn func(w HostWriter) error) error
}

// SweepRecorder is implemented by stores that keep a sweep history.
type SweepRecorder interface {
	RecordSweep(ctx context.Context, summary SweepSummary) error
}
