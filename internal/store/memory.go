package store

import (
	"context"
	"sort"
	"sync"

	"github.com/monocle-dev/fleetwatch/internal/health"
	"github.com/monocle-dev/fleetwatch/internal/models"
	"github.com/monocle-dev/fleetwatch/internal/types"
)

// MemoryStore keeps the fleet in process memory. It is used for local runs
// without a database and as the store in tests.
type MemoryStore struct {
	mu sync.Mutex

	servers   map[string]models.Server
	incidents []models.Incident
	sweeps    []models.SweepRun

	nextServerID   uint
	nextIncidentID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		servers: make(map[string]models.Server),
	}
}

func (s *MemoryStore) ListServers(ctx context.Context) ([]models.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	servers := make([]models.Server, 0, len(s.servers))
	for _, server := range s.servers {
		servers = append(servers, server)
	}

	sort.Slice(servers, func(i, j int) bool {
		return servers[i].Hostname < servers[j].Hostname
	})

	return servers, nil
}

// WithHost holds the store lock for the whole of fn and restores the
// previous state of hostname when fn fails.
func (s *MemoryStore) WithHost(ctx context.Context, hostname string, fn func(w health.HostWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, hadServer := s.servers[hostname]
	incidents := make([]models.Incident, len(s.incidents))
	copy(incidents, s.incidents)
	nextIncidentID := s.nextIncidentID

	if err := fn(&memoryTx{s: s}); err != nil {
		if hadServer {
			s.servers[hostname] = server
		}
		s.incidents = incidents
		s.nextIncidentID = nextIncidentID
		return err
	}

	return nil
}

type memoryTx struct {
	s *MemoryStore
}

func (m *memoryTx) countActive(hostname string) int64 {
	var active int64
	for _, incident := range m.s.incidents {
		if incident.Hostname == hostname && incident.IsActive {
			active++
		}
	}
	return active
}

func (m *memoryTx) CreateIncident(ctx context.Context, incident *models.Incident) error {
	if active := m.countActive(incident.Hostname); active > 0 {
		return health.DataInconsistencyError{Hostname: incident.Hostname, Op: "open", Active: active}
	}

	m.s.nextIncidentID++
	incident.ID = m.s.nextIncidentID
	incident.UpdatedAt = incident.CreatedAt
	m.s.incidents = append(m.s.incidents, *incident)

	return nil
}

func (m *memoryTx) UpdateActiveIncident(ctx context.Context, hostname string, update health.IncidentUpdate) error {
	if active := m.countActive(hostname); active != 1 {
		return health.DataInconsistencyError{Hostname: hostname, Op: "update", Active: active}
	}

	for i := range m.s.incidents {
		incident := &m.s.incidents[i]
		if incident.Hostname != hostname || !incident.IsActive {
			continue
		}

		if update.Status != "" {
			incident.Status = update.Status
		}

		if update.ResolvedAt != nil {
			resolvedAt := *update.ResolvedAt
			incident.IsActive = false
			incident.ResolvedAt = &resolvedAt
		}
	}

	return nil
}

func (m *memoryTx) UpdateServer(ctx context.Context, hostname string, update health.ServerUpdate) error {
	server, ok := m.s.servers[hostname]
	if !ok {
		return nil
	}

	server.Status = update.Status
	server.LastSeen = update.LastSeen

	if update.ClearMetrics {
		server.CPU = nil
		server.RAM = nil
	}

	m.s.servers[hostname] = server

	return nil
}

func (s *MemoryStore) RecordHeartbeat(ctx context.Context, hb types.Heartbeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[hb.Hostname]
	if !ok {
		s.nextServerID++
		server = models.Server{
			ID:        s.nextServerID,
			Hostname:  hb.Hostname,
			Status:    types.StatusOnline,
			LastSeen:  hb.ReceivedAt,
			CreatedAt: hb.ReceivedAt,
		}
	}

	server.IP = hb.IP
	server.LastMetrics = hb.LastMetrics
	server.UpdatedAt = hb.ReceivedAt

	if server.Status == types.StatusOnline {
		server.CPU = hb.CPU
		server.RAM = hb.RAM
	} else {
		server.CPU = nil
		server.RAM = nil
	}

	s.servers[hb.Hostname] = server

	return nil
}

// PutServer stores server as is, replacing any record with the same hostname.
func (s *MemoryStore) PutServer(server models.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if server.ID == 0 {
		s.nextServerID++
		server.ID = s.nextServerID
	}

	s.servers[server.Hostname] = server
}

// PutIncident appends incident without checking the active-incident invariant.
func (s *MemoryStore) PutIncident(incident models.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextIncidentID++
	incident.ID = s.nextIncidentID
	s.incidents = append(s.incidents, incident)
}

func (s *MemoryStore) Server(hostname string) (models.Server, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	server, ok := s.servers[hostname]
	return server, ok
}

func (s *MemoryStore) ActiveIncidents(ctx context.Context) ([]models.Incident, error) {
	return s.filterIncidents(0, func(incident models.Incident) bool {
		return incident.IsActive
	}), nil
}

func (s *MemoryStore) IncidentHistory(ctx context.Context, limit int) ([]models.Incident, error) {
	return s.filterIncidents(limit, func(models.Incident) bool { return true }), nil
}

func (s *MemoryStore) HostIncidents(ctx context.Context, hostname string) ([]models.Incident, error) {
	return s.filterIncidents(0, func(incident models.Incident) bool {
		return incident.Hostname == hostname
	}), nil
}

// filterIncidents returns matching incidents newest first, at most limit of
// them when limit > 0.
func (s *MemoryStore) filterIncidents(limit int, keep func(models.Incident) bool) []models.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	incidents := []models.Incident{}
	for _, incident := range s.incidents {
		if keep(incident) {
			incidents = append(incidents, incident)
		}
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		if incidents[i].CreatedAt.Equal(incidents[j].CreatedAt) {
			return incidents[i].ID > incidents[j].ID
		}
		return incidents[i].CreatedAt.After(incidents[j].CreatedAt)
	})

	if limit > 0 && len(incidents) > limit {
		incidents = incidents[:limit]
	}

	return incidents
}

func (s *MemoryStore) RecordSweep(ctx context.Context, summary health.SweepSummary) error {
	run, err := toSweepRun(summary)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run.CreatedAt = summary.FinishedAt
	s.sweeps = append(s.sweeps, run)

	return nil
}

func (s *MemoryStore) RecentSweeps(ctx context.Context, limit int) ([]models.SweepRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := []models.SweepRun{}
	for i := len(s.sweeps) - 1; i >= 0; i-- {
		if limit > 0 && len(runs) == limit {
			break
		}
		runs = append(runs, s.sweeps[i])
	}

	return runs, nil
}
