package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/monocle-dev/fleetwatch/internal/health"
	"github.com/monocle-dev/fleetwatch/internal/models"
	"github.com/monocle-dev/fleetwatch/internal/types"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListServers(ctx context.Context) ([]models.Server, error) {
	var servers []models.Server

	if err := s.db.WithContext(ctx).Order("hostname ASC").Find(&servers).Error; err != nil {
		return nil, &health.StoreReadError{Op: "list servers", Err: err}
	}

	return servers, nil
}

// WithHost runs fn inside a database transaction.
func (s *GormStore) WithHost(ctx context.Context, hostname string, fn func(w health.HostWriter) error) error {
	var fnErr error

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&hostTx{tx: tx})
		return fnErr
	})

	if err != nil && fnErr == nil {
		return &health.StoreWriteError{Op: "commit " + hostname, Err: err}
	}

	return err
}

type hostTx struct {
	tx *gorm.DB
}

func (h *hostTx) countActive(ctx context.Context, hostname string) (int64, error) {
	var active int64

	err := h.tx.WithContext(ctx).
		Model(&models.Incident{}).
		Where("hostname = ? AND is_active = ?", hostname, true).
		Count(&active).Error
	if err != nil {
		return 0, &health.StoreReadError{Op: "count active incidents", Err: err}
	}

	return active, nil
}

func (h *hostTx) CreateIncident(ctx context.Context, incident *models.Incident) error {
	active, err := h.countActive(ctx, incident.Hostname)
	if err != nil {
		return err
	}

	if active > 0 {
		return health.DataInconsistencyError{Hostname: incident.Hostname, Op: "open", Active: active}
	}

	return h.insertIncident(ctx, incident)
}

const openIncidentSavePoint = "open_incident"

// insertIncident inserts under a savepoint so a unique-index conflict leaves
// the surrounding transaction usable for the server write.
func (h *hostTx) insertIncident(ctx context.Context, incident *models.Incident) error {
	tx := h.tx.WithContext(ctx)

	if err := tx.SavePoint(openIncidentSavePoint).Error; err != nil {
		return &health.StoreWriteError{Op: "savepoint", Err: err}
	}

	if err := tx.Create(incident).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return &health.StoreWriteError{Op: "create incident", Err: err}
		}

		if rbErr := tx.RollbackTo(openIncidentSavePoint).Error; rbErr != nil {
			return &health.StoreWriteError{Op: "rollback to savepoint", Err: rbErr}
		}

		return health.DataInconsistencyError{Hostname: incident.Hostname, Op: "open", Active: 1}
	}

	return nil
}

func (h *hostTx) UpdateActiveIncident(ctx context.Context, hostname string, update health.IncidentUpdate) error {
	active, err := h.countActive(ctx, hostname)
	if err != nil {
		return err
	}

	if active != 1 {
		return health.DataInconsistencyError{Hostname: hostname, Op: "update", Active: active}
	}

	updates := map[string]interface{}{}

	if update.Status != "" {
		updates["status"] = string(update.Status)
	}

	if update.ResolvedAt != nil {
		updates["is_active"] = false
		updates["resolved_at"] = *update.ResolvedAt
	}

	if len(updates) == 0 {
		return nil
	}

	err = h.tx.WithContext(ctx).
		Model(&models.Incident{}).
		Where("hostname = ? AND is_active = ?", hostname, true).
		Updates(updates).Error
	if err != nil {
		return &health.StoreWriteError{Op: "update incident", Err: err}
	}

	return nil
}

func (h *hostTx) UpdateServer(ctx context.Context, hostname string, update health.ServerUpdate) error {
	updates := map[string]interface{}{
		"status":    string(update.Status),
		"last_seen": update.LastSeen,
	}

	if update.ClearMetrics {
		updates["cpu"] = nil
		updates["ram"] = nil
	}

	err := h.tx.WithContext(ctx).
		Model(&models.Server{}).
		Where("hostname = ?", hostname).
		Updates(updates).Error
	if err != nil {
		return &health.StoreWriteError{Op: "update server", Err: err}
	}

	return nil
}

// RecordHeartbeat upserts the reported metrics. Status is left alone and
// cpu/ram are only kept while the server is online.
func (s *GormStore) RecordHeartbeat(ctx context.Context, hb types.Heartbeat) error {
	server := models.Server{
		Hostname:    hb.Hostname,
		IP:          hb.IP,
		CPU:         hb.CPU,
		RAM:         hb.RAM,
		Status:      types.StatusOnline,
		LastSeen:    hb.ReceivedAt,
		LastMetrics: hb.LastMetrics,
		CreatedAt:   hb.ReceivedAt,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hostname"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"ip":           hb.IP,
			"last_metrics": hb.LastMetrics,
			"updated_at":   hb.ReceivedAt,
			"cpu":          gorm.Expr("CASE WHEN servers.status = ? THEN excluded.cpu ELSE NULL END", string(types.StatusOnline)),
			"ram":          gorm.Expr("CASE WHEN servers.status = ? THEN excluded.ram ELSE NULL END", string(types.StatusOnline)),
		}),
	}).Create(&server).Error
	if err != nil {
		return &health.StoreWriteError{Op: "upsert server", Err: err}
	}

	return nil
}

func (s *GormStore) ActiveIncidents(ctx context.Context) ([]models.Incident, error) {
	var incidents []models.Incident

	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&incidents).Error
	if err != nil {
		return nil, &health.StoreReadError{Op: "active incidents", Err: err}
	}

	return incidents, nil
}

func (s *GormStore) IncidentHistory(ctx context.Context, limit int) ([]models.Incident, error) {
	var incidents []models.Incident

	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&incidents).Error
	if err != nil {
		return nil, &health.StoreReadError{Op: "incident history", Err: err}
	}

	return incidents, nil
}

func (s *GormStore) HostIncidents(ctx context.Context, hostname string) ([]models.Incident, error) {
	var incidents []models.Incident

	err := s.db.WithContext(ctx).
		Where("hostname = ?", hostname).
		Order("created_at DESC").
		Find(&incidents).Error
	if err != nil {
		return nil, &health.StoreReadError{Op: "host incidents", Err: err}
	}

	return incidents, nil
}

func (s *GormStore) RecordSweep(ctx context.Context, summary health.SweepSummary) error {
	run, err := toSweepRun(summary)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return &health.StoreWriteError{Op: "record sweep", Err: err}
	}

	return nil
}

func (s *GormStore) RecentSweeps(ctx context.Context, limit int) ([]models.SweepRun, error) {
	var runs []models.SweepRun

	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, &health.StoreReadError{Op: "recent sweeps", Err: err}
	}

	return runs, nil
}
