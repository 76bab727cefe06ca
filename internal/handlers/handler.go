package handlers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/monocle-dev/fleetwatch/internal/health"
	"github.com/monocle-dev/fleetwatch/internal/store"
)

// SweepRunner is the part of the scheduler exposed over HTTP.
type SweepRunner interface {
	RunSweep(ctx context.Context) (health.SweepSummary, error)
	Status() map[string]interface{}
}

type Options struct {
	HistoryLimit    int
	HistoryMaxLimit int
	CacheTTL        time.Duration
	Clock           clockwork.Clock
	Logger          zerolog.Logger
}

type Handler struct {
	store     store.Store
	scheduler SweepRunner
	cache     *cache.Cache
	clock     clockwork.Clock
	log       zerolog.Logger

	historyLimit    int
	historyMaxLimit int
}

func NewHandler(st store.Store, scheduler SweepRunner, opts Options) *Handler {
	h := &Handler{
		store:           st,
		scheduler:       scheduler,
		clock:           opts.Clock,
		log:             opts.Logger.With().Str("component", "http").Logger(),
		historyLimit:    opts.HistoryLimit,
		historyMaxLimit: opts.HistoryMaxLimit,
	}

	if h.clock == nil {
		h.clock = clockwork.NewRealClock()
	}

	if h.historyLimit <= 0 {
		h.historyLimit = 100
	}

	if h.historyMaxLimit < h.historyLimit {
		h.historyMaxLimit = h.historyLimit
	}

	if opts.CacheTTL > 0 {
		h.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}

	return h
}

// SweepCompleted drops cached reads so the next request sees the sweep.
func (h *Handler) SweepCompleted(health.SweepSummary) {
	h.invalidate()
}

func (h *Handler) invalidate() {
	if h.cache != nil {
		h.cache.Flush()
	}
}

// cached returns the value stored under key or loads and stores it.
func (h *Handler) cached(key string, load func() (interface{}, error)) (interface{}, error) {
	if h.cache != nil {
		if value, ok := h.cache.Get(key); ok {
			return value, nil
		}
	}

	value, err := load()
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		h.cache.SetDefault(key, value)
	}

	return value, nil
}
