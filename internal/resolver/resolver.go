// Package resolver turns a host/service pair into an ordered list of
// candidate endpoints.  It performs a single lookup per call — retry
// policy belongs to the caller.
package resolver

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"wirelink/internal/errors"
	"wirelink/util"
)

// Endpoint is one resolved network address.
type Endpoint struct {
	IP   net.IP
	Port int
}

// Addr returns the dialable "ip:port" form.
func (e Endpoint) Addr() string {
	return util.FormatAddr(e.IP.String(), e.Port)
}

func (e Endpoint) String() string { return e.Addr() }

// Resolve looks up host and service and returns every candidate
// endpoint in resolver order.  The service may be a port number or a
// named TCP service ("https").  DNS failure, an unknown service name,
// or an empty answer all surface as *errors.ResolveError.
func Resolve(ctx context.Context, host, service string) ([]Endpoint, error) {
	port, err := lookupPort(ctx, service)
	if err != nil {
		return nil, &errors.ResolveError{Host: host, Service: service, Err: err}
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, &errors.ResolveError{Host: host, Service: service, Err: err}
	}
	if len(ips) == 0 {
		return nil, &errors.ResolveError{Host: host, Service: service,
			Err: fmt.Errorf("lookup returned no addresses")}
	}

	eps := make([]Endpoint, 0, len(ips))
	for _, ip := range ips {
		eps = append(eps, Endpoint{IP: ip.IP, Port: port})
	}
	return eps, nil
}

func lookupPort(ctx context.Context, service string) (int, error) {
	if util.IsNumericService(service) {
		return strconv.Atoi(service)
	}
	port, err := net.DefaultResolver.LookupPort(ctx, "tcp", service)
	if err != nil {
		return 0, fmt.Errorf("service %q: %w", service, err)
	}
	return port, nil
}
