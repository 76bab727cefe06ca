package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/monocle-dev/fleetwatch/internal/health"
	"github.com/monocle-dev/fleetwatch/internal/models"
	"github.com/monocle-dev/fleetwatch/internal/types"
)

// Store is the full fleet store: the evaluation loop's FleetStore plus the
// heartbeat upsert and the read queries served over HTTP.
type Store interface {
	health.FleetStore
	health.SweepRecorder

	RecordHeartbeat(ctx context.Context, hb types.Heartbeat) error
	ActiveIncidents(ctx context.Context) ([]models.Incident, error)
	IncidentHistory(ctx context.Context, limit int) ([]models.Incident, error)
	HostIncidents(ctx context.Context, hostname string) ([]models.Incident, error)
	RecentSweeps(ctx context.Context, limit int) ([]models.SweepRun, error)
}

func toSweepRun(summary health.SweepSummary) (models.SweepRun, error) {
	hostErrors := summary.Errors
	if hostErrors == nil {
		hostErrors = []health.HostError{}
	}

	raw, err := json.Marshal(hostErrors)
	if err != nil {
		return models.SweepRun{}, errors.Wrap(err, "marshal sweep errors")
	}

	return models.SweepRun{
		ID:         summary.ID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Online:     summary.Online,
		Degraded:   summary.Degraded,
		Down:       summary.Down,
		Failures:   summary.Failures,
		Skipped:    summary.Skipped,
		Errors:     datatypes.JSON(raw),
	}, nil
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
