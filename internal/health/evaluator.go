package health

import (
	"time"

	"github.com/monocle-dev/fleetwatch/internal/models"
	"github.com/monocle-dev/fleetwatch/internal/types"
)

const (
	DefaultMetricsTimeout = 120 * time.Second
	DefaultProbeTimeout   = 5 * time.Second
)

type ProbeResult struct {
	Alive bool
	RTT   time.Duration
}

// Evaluate computes the status of server at now. A failed probe always wins;
// a reachable host whose metrics are older than metricsTimeout is degraded.
func Evaluate(server models.Server, now time.Time, probe ProbeResult, metricsTimeout time.Duration) types.ServerStatus {
	if !probe.Alive {
		return types.StatusDown
	}

	if now.Sub(server.LastMetrics) > metricsTimeout {
		return types.StatusDegraded
	}

	return types.StatusOnline
}
