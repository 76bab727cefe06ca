package health_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monocle-dev/fleetwatch/internal/health"
	"github.com/monocle-dev/fleetwatch/internal/models"
	"github.com/monocle-dev/fleetwatch/internal/store"
	"github.com/monocle-dev/fleetwatch/internal/types"
)

var statuses = []types.ServerStatus{types.StatusOnline, types.StatusDegraded, types.StatusDown}

// recordingWriter counts the incident writes it forwards.
type recordingWriter struct {
	health.IncidentWriter
	creates int
	updates int
	err     error
}

func (r *recordingWriter) CreateIncident(ctx context.Context, incident *models.Incident) error {
	r.creates++
	if r.err != nil {
		return r.err
	}
	return r.IncidentWriter.CreateIncident(ctx, incident)
}

func (r *recordingWriter) UpdateActiveIncident(ctx context.Context, hostname string, update health.IncidentUpdate) error {
	r.updates++
	if r.err != nil {
		return r.err
	}
	return r.IncidentWriter.UpdateActiveIncident(ctx, hostname, update)
}

func reconcile(t *testing.T, st *store.MemoryStore, tracker *health.Tracker, from, to types.ServerStatus, now time.Time) (health.Action, *recordingWriter) {
	t.Helper()

	var (
		action health.Action
		rec    *recordingWriter
	)

	err := st.WithHost(context.Background(), "web-1", func(w health.HostWriter) error {
		rec = &recordingWriter{IncidentWriter: w}
		var err error
		action, err = tracker.Reconcile(context.Background(), rec, "web-1", from, to, now)
		return err
	})
	require.NoError(t, err)

	return action, rec
}

func TestReconcileSameStatusIsNoop(t *testing.T) {
	tracker := health.NewTracker(zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, status := range statuses {
		st := store.NewMemoryStore()
		if status != types.StatusOnline {
			st.PutIncident(models.Incident{Hostname: "web-1", IsActive: true, Status: status, CreatedAt: now})
		}

		action, rec := reconcile(t, st, tracker, status, status, now)

		assert.Equal(t, health.ActionNone, action)
		assert.Zero(t, rec.creates, status)
		assert.Zero(t, rec.updates, status)
	}
}

func TestReconcileLifecycle(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := health.NewTracker(zerolog.Nop())
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	action, _ := reconcile(t, st, tracker, types.StatusOnline, types.StatusDegraded, start)
	require.Equal(t, health.ActionOpened, action)

	action, _ = reconcile(t, st, tracker, types.StatusDegraded, types.StatusDown, start.Add(time.Minute))
	require.Equal(t, health.ActionEscalated, action)

	action, _ = reconcile(t, st, tracker, types.StatusDown, types.StatusDegraded, start.Add(2*time.Minute))
	require.Equal(t, health.ActionDeescalated, action)

	active, err := st.ActiveIncidents(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, types.StatusDegraded, active[0].Status)
	assert.True(t, active[0].CreatedAt.Equal(start))

	resolvedAt := start.Add(3 * time.Minute)
	action, _ = reconcile(t, st, tracker, types.StatusDegraded, types.StatusOnline, resolvedAt)
	require.Equal(t, health.ActionResolved, action)

	incidents, err := st.HostIncidents(context.Background(), "web-1")
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.False(t, incidents[0].IsActive)
	require.NotNil(t, incidents[0].ResolvedAt)
	assert.True(t, incidents[0].ResolvedAt.Equal(resolvedAt))

	// a new episode opens a new record and leaves the closed one alone
	action, _ = reconcile(t, st, tracker, types.StatusOnline, types.StatusDown, start.Add(4*time.Minute))
	require.Equal(t, health.ActionOpened, action)

	incidents, err = st.HostIncidents(context.Background(), "web-1")
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.True(t, incidents[0].IsActive)
	assert.Equal(t, types.StatusDown, incidents[0].Status)
	assert.True(t, incidents[1].ResolvedAt.Equal(resolvedAt))
}

func TestReconcileWithoutActiveIncidentIsNoop(t *testing.T) {
	tracker := health.NewTracker(zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, pair := range [][2]types.ServerStatus{
		{types.StatusDegraded, types.StatusOnline},
		{types.StatusDown, types.StatusOnline},
		{types.StatusDegraded, types.StatusDown},
		{types.StatusDown, types.StatusDegraded},
	} {
		st := store.NewMemoryStore()

		action, rec := reconcile(t, st, tracker, pair[0], pair[1], now)

		assert.Equal(t, health.ActionNone, action)
		assert.Equal(t, 1, rec.updates)

		incidents, err := st.IncidentHistory(context.Background(), 0)
		require.NoError(t, err)
		assert.Empty(t, incidents)
	}
}

func TestReconcileOpenWithExistingActiveIsNoop(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := health.NewTracker(zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st.PutIncident(models.Incident{Hostname: "web-1", IsActive: true, Status: types.StatusDown, CreatedAt: now})

	action, _ := reconcile(t, st, tracker, types.StatusOnline, types.StatusDegraded, now)
	assert.Equal(t, health.ActionNone, action)

	active, err := st.ActiveIncidents(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestReconcileTwoActiveIncidentsIsNoop(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := health.NewTracker(zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st.PutIncident(models.Incident{Hostname: "web-1", IsActive: true, Status: types.StatusDown, CreatedAt: now})
	st.PutIncident(models.Incident{Hostname: "web-1", IsActive: true, Status: types.StatusDown, CreatedAt: now})

	action, _ := reconcile(t, st, tracker, types.StatusDown, types.StatusOnline, now)
	assert.Equal(t, health.ActionNone, action)

	active, err := st.ActiveIncidents(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestReconcileStoreErrorIsReturned(t *testing.T) {
	tracker := health.NewTracker(zerolog.Nop())
	writeErr := &health.StoreWriteError{Op: "create incident", Err: errors.New("connection reset")}

	rec := &recordingWriter{err: writeErr}
	action, err := tracker.Reconcile(context.Background(), rec, "web-1", types.StatusOnline, types.StatusDown, time.Now())

	require.Error(t, err)
	assert.Equal(t, health.ActionNone, action)

	var storeErr *health.StoreWriteError
	assert.True(t, errors.As(err, &storeErr))
}
