package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Port           string `env:"PORT" envDefault:"3000"`
	DatabaseURL    string `env:"DATABASE_URL"`
	StoreDriver    string `env:"STORE_DRIVER" envDefault:"postgres"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	StaticDir      string `env:"STATIC_DIR"`

	CheckInterval    time.Duration `env:"CHECK_INTERVAL" envDefault:"60s"`
	MetricsTimeout   time.Duration `env:"METRICS_TIMEOUT" envDefault:"120s"`
	ProbeTimeout     time.Duration `env:"PROBE_TIMEOUT" envDefault:"5s"`
	ProbeConcurrency int           `env:"PROBE_CONCURRENCY" envDefault:"50"`
	ProbePrivileged  bool          `env:"PROBE_PRIVILEGED" envDefault:"false"`

	HistoryLimit    int           `env:"HISTORY_LIMIT" envDefault:"100"`
	HistoryMaxLimit int           `env:"HISTORY_MAX_LIMIT" envDefault:"1000"`
	ReadCacheTTL    time.Duration `env:"READ_CACHE_TTL" envDefault:"5s"`

	TraceEndpoint string `env:"TRACE_ENDPOINT"`
	ServiceName   string `env:"SERVICE_NAME" envDefault:"fleetwatch"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return errors.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.CheckInterval <= 0 {
		return errors.New("CHECK_INTERVAL must be positive")
	}

	if c.MetricsTimeout <= 0 {
		return errors.New("METRICS_TIMEOUT must be positive")
	}

	if c.ProbeTimeout <= 0 {
		return errors.New("PROBE_TIMEOUT must be positive")
	}

	if c.ProbeConcurrency < 0 {
		return errors.New("PROBE_CONCURRENCY must not be negative")
	}

	if c.HistoryLimit <= 0 || c.HistoryMaxLimit < c.HistoryLimit {
		return errors.New("HISTORY_LIMIT must be positive and not above HISTORY_MAX_LIMIT")
	}

	return nil
}
