package monitors

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/rs/zerolog"

	"github.com/monocle-dev/fleetwatch/internal/health"
	"github.com/monocle-dev/fleetwatch/internal/metrics"
)

// PingFunc sends a single echo request to addr and waits at most timeout.
type PingFunc func(ctx context.Context, addr *net.IPAddr, timeout time.Duration) (health.ProbeResult, error)

// PingProber implements health.Prober with one ICMP echo per probe.
type PingProber struct {
	resolver Resolver
	ping     PingFunc
	log      zerolog.Logger
}

func NewPingProber(privileged bool, log zerolog.Logger) *PingProber {
	return &PingProber{
		resolver: net.DefaultResolver,
		ping:     ICMPPing(privileged),
		log:      log.With().Str("component", "probe").Logger(),
	}
}

// NewPingProberWith builds a prober from explicit resolver and ping function.
func NewPingProberWith(resolver Resolver, ping PingFunc, log zerolog.Logger) *PingProber {
	return &PingProber{resolver: resolver, ping: ping, log: log.With().Str("component", "probe").Logger()}
}

func (p *PingProber) Probe(ctx context.Context, hostname string, timeout time.Duration) (health.ProbeResult, error) {
	if timeout <= 0 {
		timeout = health.DefaultProbeTimeout
	}

	start := time.Now()
	defer func() {
		metrics.ProbeDuration.Observe(time.Since(start).Seconds())
	}()

	// resolution and the echo share one deadline
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr, ok, err := resolveHost(ctx, p.resolver, hostname)
	if !ok {
		p.log.Debug().Err(err).Str("hostname", hostname).Msg("host did not resolve")
		return health.ProbeResult{Alive: false}, nil
	}

	deadline, _ := ctx.Deadline()
	remaining := time.Until(deadline)
	if remaining <= 0 {
		p.log.Debug().Str("hostname", hostname).Msg("probe timeout spent resolving")
		return health.ProbeResult{Alive: false}, nil
	}

	result, err := p.ping(ctx, addr, remaining)
	if err != nil {
		if unreachable(err) {
			p.log.Debug().Err(err).Str("hostname", hostname).Msg("host unreachable")
			return health.ProbeResult{Alive: false}, nil
		}
		return health.ProbeResult{}, &health.ProbeError{Hostname: hostname, Err: err}
	}

	return result, nil
}

func unreachable(err error) bool {
	return errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTDOWN) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ICMPPing pings with pro-bing. Unprivileged mode uses UDP ping sockets.
func ICMPPing(privileged bool) PingFunc {
	return func(ctx context.Context, addr *net.IPAddr, timeout time.Duration) (health.ProbeResult, error) {
		pinger := probing.New("")
		pinger.SetIPAddr(addr)
		pinger.SetPrivileged(privileged)
		pinger.Count = 1
		pinger.Timeout = timeout

		if err := pinger.RunWithContext(ctx); err != nil {
			return health.ProbeResult{}, err
		}

		stats := pinger.Statistics()

		return health.ProbeResult{
			Alive: stats.PacketsRecv > 0,
			RTT:   stats.AvgRtt,
		}, nil
	}
}
