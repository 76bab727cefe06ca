package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/monocle-dev/fleetwatch/internal/health"
	"github.com/monocle-dev/fleetwatch/internal/metrics"
	"github.com/monocle-dev/fleetwatch/internal/models"
	"github.com/monocle-dev/fleetwatch/internal/types"
)

const (
	DefaultInterval    = 60 * time.Second
	DefaultConcurrency = 50
)

var (
	ErrSweepInProgress = errors.New("sweep already in progress")
	ErrAlreadyRunning  = errors.New("scheduler already running")
)

type Config struct {
	Interval       time.Duration
	MetricsTimeout time.Duration
	ProbeTimeout   time.Duration
	// Concurrency caps outstanding host evaluations; 0 or less is unbounded.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MetricsTimeout <= 0 {
		c.MetricsTimeout = health.DefaultMetricsTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = health.DefaultProbeTimeout
	}
	return c
}

// SweepListener is notified after every completed sweep.
type SweepListener interface {
	SweepCompleted(summary health.SweepSummary)
}

type SweepListenerFunc func(summary health.SweepSummary)

func (f SweepListenerFunc) SweepCompleted(summary health.SweepSummary) { f(summary) }

type Option func(*Scheduler)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func WithListener(listener SweepListener) Option {
	return func(s *Scheduler) { s.listeners = append(s.listeners, listener) }
}

// Scheduler sweeps the whole fleet on a fixed cadence. At most one sweep
// runs at a time; a tick that arrives during a sweep is dropped.
type Scheduler struct {
	store     health.FleetStore
	prober    health.Prober
	tracker   *health.Tracker
	clock     clockwork.Clock
	cfg       Config
	log       zerolog.Logger
	tracer    trace.Tracer
	listeners []SweepListener

	sweepMu sync.Mutex
	// notifyMu keeps listener calls from overlapping.
	notifyMu sync.Mutex

	mu        sync.Mutex
	cancel    context.CancelFunc
	running   bool
	lastSweep *health.SweepSummary
	wg        sync.WaitGroup
}

// NewScheduler initializes a new Scheduler instance
func NewScheduler(store health.FleetStore, prober health.Prober, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  store,
		prober: prober,
		clock:  clockwork.NewRealClock(),
		cfg:    cfg.withDefaults(),
		log:    zerolog.Nop(),
		tracer: otel.Tracer("github.com/monocle-dev/fleetwatch/internal/scheduler"),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With().Str("component", "scheduler").Logger()
	s.tracker = health.NewTracker(s.log)

	return s
}

// AddListener registers listener for every sweep completed from now on.
func (s *Scheduler) AddListener(listener SweepListener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, listener)
}

// Start runs a sweep immediately and then one every interval until Stop is
// called or parent is cancelled.
func (s *Scheduler) Start(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.running = true

	ticker := s.clock.NewTicker(s.cfg.Interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		s.trigger(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.trigger(ctx)
			}
		}
	}()

	s.log.Info().
		Dur("interval", s.cfg.Interval).
		Dur("metrics_timeout", s.cfg.MetricsTimeout).
		Int("concurrency", s.cfg.Concurrency).
		Msg("scheduler started")

	return nil
}

// Stop cancels the loop and waits for an in-flight sweep. Hosts already being
// evaluated finish; hosts not yet started are skipped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// RunSweep performs one sweep synchronously. It fails with
// ErrSweepInProgress when another sweep is running.
func (s *Scheduler) RunSweep(ctx context.Context) (health.SweepSummary, error) {
	if !s.sweepMu.TryLock() {
		return health.SweepSummary{}, ErrSweepInProgress
	}
	summary, ok := s.sweep(ctx)
	s.sweepMu.Unlock()

	if ok {
		s.notify(summary)
	}

	return summary, nil
}

func (s *Scheduler) trigger(ctx context.Context) {
	if !s.sweepMu.TryLock() {
		metrics.SweepsSkipped.Inc()
		s.log.Warn().Msg("previous sweep still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		summary, ok := s.sweep(ctx)
		s.sweepMu.Unlock()

		if ok {
			s.notify(summary)
		}
	}()
}

// Status returns current scheduler status
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":  s.running,
		"interval": s.cfg.Interval.String(),
	}

	if s.lastSweep != nil {
		status["last_sweep"] = *s.lastSweep
	}

	return status
}

type hostResult struct {
	status types.ServerStatus
	from   types.ServerStatus
	action health.Action
	err    error
	kind   string
}

// sweep evaluates every host once. ok is false when the server list could
// not be read.
func (s *Scheduler) sweep(ctx context.Context) (summary health.SweepSummary, ok bool) {
	ctx, span := s.tracer.Start(ctx, "scheduler.sweep")
	defer span.End()

	summary = health.SweepSummary{
		ID:        uuid.NewString(),
		StartedAt: s.clock.Now(),
	}
	log := s.log.With().Str("sweep_id", summary.ID).Logger()

	servers, err := s.store.ListServers(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list servers")
		metrics.SweepsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("failed to list servers")
		summary.FinishedAt = s.clock.Now()
		return summary, false
	}

	span.SetAttributes(attribute.Int("fleet.servers", len(servers)))
	log.Info().Int("servers", len(servers)).Msg("checking servers")

	limit := s.cfg.Concurrency
	if limit <= 0 {
		limit = -1
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(limit)

	for _, server := range servers {
		if ctx.Err() != nil {
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil
			}

			// A started host runs to completion even if the loop is stopped.
			result := s.checkHost(context.WithoutCancel(ctx), server)

			mu.Lock()
			defer mu.Unlock()

			if result.err != nil {
				summary.Fail(server.Hostname, result.err)
				metrics.HostFailures.WithLabelValues(result.kind).Inc()
				log.Error().Err(result.err).Str("hostname", server.Hostname).Msg("host evaluation failed")
				return nil
			}

			summary.Count(result.status)
			if result.action != health.ActionNone {
				metrics.IncidentTransitions.WithLabelValues(string(result.action)).Inc()
				summary.Transitions = append(summary.Transitions, health.Transition{
					Hostname: server.Hostname,
					From:     result.from,
					To:       result.status,
					Action:   result.action,
				})
			}

			return nil
		})
	}

	_ = g.Wait()

	summary.FinishedAt = s.clock.Now()

	sort.Slice(summary.Transitions, func(i, j int) bool {
		return summary.Transitions[i].Hostname < summary.Transitions[j].Hostname
	})
	sort.Slice(summary.Errors, func(i, j int) bool {
		return summary.Errors[i].Hostname < summary.Errors[j].Hostname
	})

	s.finish(context.WithoutCancel(ctx), log, summary)

	return summary, true
}

func (s *Scheduler) finish(ctx context.Context, log zerolog.Logger, summary health.SweepSummary) {
	duration := summary.FinishedAt.Sub(summary.StartedAt)

	metrics.SweepsTotal.WithLabelValues("ok").Inc()
	metrics.SweepDuration.Observe(duration.Seconds())
	metrics.Hosts.WithLabelValues(string(types.StatusOnline)).Set(float64(summary.Online))
	metrics.Hosts.WithLabelValues(string(types.StatusDegraded)).Set(float64(summary.Degraded))
	metrics.Hosts.WithLabelValues(string(types.StatusDown)).Set(float64(summary.Down))

	log.Info().
		Int("online", summary.Online).
		Int("degraded", summary.Degraded).
		Int("down", summary.Down).
		Int("failures", summary.Failures).
		Int("skipped", summary.Skipped).
		Dur("duration", duration).
		Msg("sweep finished")

	if recorder, ok := s.store.(health.SweepRecorder); ok {
		if err := recorder.RecordSweep(ctx, summary); err != nil {
			log.Error().Err(err).Msg("failed to record sweep")
		}
	}

	s.mu.Lock()
	s.lastSweep = &summary
	s.mu.Unlock()
}

func (s *Scheduler) notify(summary health.SweepSummary) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()

	for _, listener := range listeners {
		listener.SweepCompleted(summary)
	}
}

// checkHost runs probe, evaluation, incident reconciliation and the server
// write for one host, strictly in that order.
func (s *Scheduler) checkHost(ctx context.Context, server models.Server) hostResult {
	ctx, span := s.tracer.Start(ctx, "scheduler.check_host",
		trace.WithAttributes(attribute.String("host.name", server.Hostname)))
	defer span.End()

	from := server.Status
	if !from.Valid() {
		from = types.StatusOnline
	}

	probe, err := s.prober.Probe(ctx, server.Hostname, s.cfg.ProbeTimeout)
	if err != nil {
		var probeErr *health.ProbeError
		if !errors.As(err, &probeErr) {
			err = &health.ProbeError{Hostname: server.Hostname, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe")
		return hostResult{err: err, kind: "probe"}
	}

	now := s.clock.Now()
	status := health.Evaluate(server, now, probe, s.cfg.MetricsTimeout)
	action := health.ActionNone

	span.SetAttributes(
		attribute.Bool("probe.alive", probe.Alive),
		attribute.String("status.from", string(from)),
		attribute.String("status.to", string(status)),
	)

	err = s.store.WithHost(ctx, server.Hostname, func(w health.HostWriter) error {
		if status != from {
			taken, reconcileErr := s.tracker.Reconcile(ctx, w, server.Hostname, from, status, now)
			if reconcileErr != nil {
				return reconcileErr
			}
			action = taken
		}

		return w.UpdateServer(ctx, server.Hostname, health.ServerUpdate{
			Status:       status,
			LastSeen:     now,
			ClearMetrics: status != types.StatusOnline,
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store")
		return hostResult{err: err, kind: "store"}
	}

	return hostResult{status: status, from: from, action: action}
}
