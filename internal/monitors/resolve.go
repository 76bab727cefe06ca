package monitors

import (
	"context"
	"fmt"
	"net"
)

// Resolver is the subset of *net.Resolver used to find a host's address.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// resolveHost returns the address to ping for hostname, preferring IPv4.
// The lookup is bounded by ctx.
// Every lookup failure means the host cannot be reached, so it is reported
// through ok rather than as an error.
func resolveHost(ctx context.Context, resolver Resolver, hostname string) (addr *net.IPAddr, ok bool, err error) {
	ips, err := resolver.LookupIPAddr(ctx, hostname)

	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve %s: %v", hostname, err)
	}

	if len(ips) == 0 {
		return nil, false, fmt.Errorf("no addresses found for %s", hostname)
	}

	for _, ip := range ips {
		if ip.IP.To4() != nil {
			return &net.IPAddr{IP: ip.IP, Zone: ip.Zone}, true, nil
		}
	}

	return &ips[0], true, nil
}
