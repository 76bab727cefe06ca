package monitors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monocle-dev/fleetwatch/internal/health"
)

type fakeResolver map[string][]net.IPAddr

func (f fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	addrs, ok := f[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

var resolver = fakeResolver{
	"web-1": {{IP: net.ParseIP("10.0.0.1")}},
	"dual": {
		{IP: net.ParseIP("2001:db8::1")},
		{IP: net.ParseIP("10.0.0.2")},
	},
	"v6-only": {{IP: net.ParseIP("2001:db8::2")}},
	"empty":   {},
}

func TestResolveHostPrefersIPv4(t *testing.T) {
	addr, ok, err := resolveHost(context.Background(), resolver, "dual")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", addr.IP.String())

	addr, ok, err = resolveHost(context.Background(), resolver, "v6-only")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2001:db8::2", addr.IP.String())
}

func TestResolveHostFailures(t *testing.T) {
	for _, host := range []string{"missing", "empty"} {
		addr, ok, err := resolveHost(context.Background(), resolver, host)
		assert.False(t, ok, host)
		assert.Nil(t, addr, host)
		assert.Error(t, err, host)
	}
}

func TestProbe(t *testing.T) {
	cases := []struct {
		name      string
		hostname  string
		pingErr   error
		alive     bool
		wantAlive bool
		wantErr   bool
	}{
		{name: "reply", hostname: "web-1", alive: true, wantAlive: true},
		{name: "no reply", hostname: "web-1", alive: false, wantAlive: false},
		{name: "does not resolve", hostname: "missing", wantAlive: false},
		{name: "host unreachable", hostname: "web-1", pingErr: fmt.Errorf("write: %w", syscall.EHOSTUNREACH)},
		{name: "network unreachable", hostname: "web-1", pingErr: &net.OpError{Op: "write", Err: syscall.ENETUNREACH}},
		{name: "timed out", hostname: "web-1", pingErr: context.DeadlineExceeded},
		{name: "socket denied", hostname: "web-1", pingErr: errors.New("socket: permission denied"), wantErr: true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pinged := false
			ping := func(ctx context.Context, addr *net.IPAddr, timeout time.Duration) (health.ProbeResult, error) {
				pinged = true
				assert.Equal(t, "10.0.0.1", addr.IP.String())
				if c.pingErr != nil {
					return health.ProbeResult{}, c.pingErr
				}
				return health.ProbeResult{Alive: c.alive, RTT: time.Millisecond}, nil
			}

			prober := NewPingProberWith(resolver, ping, zerolog.Nop())
			result, err := prober.Probe(context.Background(), c.hostname, time.Second)

			if c.wantErr {
				require.Error(t, err)
				var probeErr *health.ProbeError
				require.True(t, errors.As(err, &probeErr))
				assert.Equal(t, c.hostname, probeErr.Hostname)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, c.wantAlive, result.Alive)
			assert.Equal(t, c.hostname != "missing", pinged)
		})
	}
}

// slowResolver answers after delay unless ctx ends first.
type slowResolver struct {
	delay time.Duration
}

func (s slowResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	select {
	case <-time.After(s.delay):
		return []net.IPAddr{{IP: net.ParseIP("10.0.0.9")}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestProbeSharesTimeoutWithResolution(t *testing.T) {
	const timeout = 200 * time.Millisecond

	var pingBudget time.Duration
	ping := func(ctx context.Context, addr *net.IPAddr, budget time.Duration) (health.ProbeResult, error) {
		pingBudget = budget
		select {
		case <-time.After(budget):
			return health.ProbeResult{Alive: false}, nil
		case <-ctx.Done():
			return health.ProbeResult{}, ctx.Err()
		}
	}

	prober := NewPingProberWith(slowResolver{delay: 150 * time.Millisecond}, ping, zerolog.Nop())

	start := time.Now()
	result, err := prober.Probe(context.Background(), "slow-dns", timeout)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, result.Alive)
	assert.Less(t, pingBudget, 60*time.Millisecond)
	assert.Less(t, elapsed, timeout+100*time.Millisecond)
}

func TestProbeResolutionTimeout(t *testing.T) {
	pinged := false
	ping := func(ctx context.Context, addr *net.IPAddr, budget time.Duration) (health.ProbeResult, error) {
		pinged = true
		return health.ProbeResult{Alive: true}, nil
	}

	prober := NewPingProberWith(slowResolver{delay: time.Second}, ping, zerolog.Nop())

	start := time.Now()
	result, err := prober.Probe(context.Background(), "slow-dns", 50*time.Millisecond)

	require.NoError(t, err)
	assert.False(t, result.Alive)
	assert.False(t, pinged)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
