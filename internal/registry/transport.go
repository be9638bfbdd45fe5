// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

const (
	// DefaultTimeout bounds a single request, archive downloads included.
	DefaultTimeout = 60 * time.Second

	dialTimeout = 15 * time.Second
)

// NewHTTPClient returns an http.Client whose transport resolves hosts through
// a process-wide DNS cache. The cache is never refreshed: bp is short-lived
// and talks to a handful of hosts.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	resolver := &dnscache.Resolver{}
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ips, err := resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}
		var errs []error
		for _, ip := range ips {
			conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if dialErr == nil {
				return conn, nil
			}
			errs = append(errs, dialErr)
		}
		return nil, fmt.Errorf("dialing %s: %w", host, errors.Join(errs...))
	}
	transport.MaxIdleConnsPerHost = 8

	return &http.Client{Timeout: timeout, Transport: transport}
}
