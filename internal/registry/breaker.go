// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// DefaultTripThreshold is the number of consecutive upstream failures that
// opens a host's breaker.
const DefaultTripThreshold = 5

// breakerSet holds one circuit breaker per upstream host.
type breakerSet struct {
	mu        sync.RWMutex
	breakers  map[string]*circuit.Breaker
	threshold int64
}

func newBreakerSet(threshold int64) *breakerSet {
	if threshold <= 0 {
		threshold = DefaultTripThreshold
	}
	return &breakerSet{breakers: make(map[string]*circuit.Breaker), threshold: threshold}
}

// get returns or creates the breaker for host.
func (s *breakerSet) get(host string) *circuit.Breaker {
	s.mu.RLock()
	breaker, ok := s.breakers[host]
	s.mu.RUnlock()
	if ok {
		return breaker
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if breaker, ok := s.breakers[host]; ok {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 10 * time.Second
	expBackoff.MaxInterval = 2 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(s.threshold),
	})
	s.breakers[host] = breaker
	return breaker
}

// states reports "open" or "closed" per known host.
func (s *breakerSet) states() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[string]string, len(s.breakers))
	for host, breaker := range s.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// hostOf groups breakers by URL host.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
