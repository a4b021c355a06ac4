// Package rpcpool multiplexes outbound RPC over a weighted set of
// provider endpoints, enforcing per-endpoint quotas and disabling
// endpoints that fail repeatedly. All outbound provider traffic in the
// pipeline goes through a Pool.
package rpcpool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/observability"
	"solana-whale-copy/internal/solana"
)

// Disable policy.
const (
	MaxConsecutiveErrors = 5
	DisableCooldown      = 300 * time.Second
	rateLimitBackoff     = 500 * time.Millisecond
	rateLimitRetries     = 2
)

// ErrNoHealthyEndpoint is returned when no endpoint of the requested
// kind is eligible. Callers treat it as a transient miss.
var ErrNoHealthyEndpoint = errors.New("no healthy endpoint")

// clientFactory builds an RPC client for an endpoint URL. Swappable in
// tests.
type clientFactory func(url string) solana.RPCClient

// Pool is the rate-limited endpoint pool.
type Pool struct {
	mu        sync.Mutex
	endpoints []*domain.ProviderEndpoint
	clients   map[string]solana.RPCClient
	factory   clientFactory
	now       func() time.Time
	metrics   *observability.Metrics
	verbose   bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithClock substitutes the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// WithClientFactory substitutes RPC client construction.
func WithClientFactory(f func(url string) solana.RPCClient) Option {
	return func(p *Pool) { p.factory = f }
}

// WithVerbose enables debug logging.
func WithVerbose(v bool) Option {
	return func(p *Pool) { p.verbose = v }
}

// WithMetrics records per-endpoint errors and the healthy-endpoint
// count on the given collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// New creates a Pool over the given endpoints.
func New(endpoints []*domain.ProviderEndpoint, opts ...Option) *Pool {
	p := &Pool{
		endpoints: endpoints,
		clients:   make(map[string]solana.RPCClient),
		factory: func(url string) solana.RPCClient {
			return solana.NewHTTPClient(url, solana.WithTimeout(5*time.Second))
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.mu.Lock()
	p.refreshHealthyLocked()
	p.mu.Unlock()
	return p
}

// Select returns the best eligible endpoint of the given kind.
//
// Among eligible endpoints, the lowest priority value wins. Ties are
// broken by smooth weighted round-robin: each round every candidate
// gains its configured weight, the largest current weight is chosen,
// and the winner pays back the sum of all candidate weights. Traffic
// converges on the configured weight ratios without batching.
func (p *Pool) Select(kind domain.EndpointKind) (*domain.ProviderEndpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectLocked(kind)
}

func (p *Pool) selectLocked(kind domain.EndpointKind) (*domain.ProviderEndpoint, error) {
	now := p.now()

	var candidates []*domain.ProviderEndpoint
	bestPriority := 0
	for _, e := range p.endpoints {
		if e.Kind != kind || !e.Eligible(now) {
			continue
		}
		if len(candidates) == 0 || e.Priority < bestPriority {
			candidates = candidates[:0]
			candidates = append(candidates, e)
			bestPriority = e.Priority
		} else if e.Priority == bestPriority {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoHealthyEndpoint
	}
	if len(candidates) == 1 {
		candidates[0].LastRequestAt = now
		return candidates[0], nil
	}

	total := 0
	var best *domain.ProviderEndpoint
	for _, e := range candidates {
		e.CurrentWeight += e.Weight
		total += e.Weight
		if best == nil || e.CurrentWeight > best.CurrentWeight {
			best = e
		}
	}
	best.CurrentWeight -= total
	best.LastRequestAt = now
	return best, nil
}

// Call selects an HTTP endpoint, performs a JSON-RPC request through
// it, and updates health counters. A 429 response backs off and retries
// the same endpoint; if rate limiting persists past the backoff budget
// it counts as an error.
func (p *Pool) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	p.mu.Lock()
	endpoint, err := p.selectLocked(domain.EndpointHTTP)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	client, ok := p.clients[endpoint.URL]
	if !ok {
		client = p.factory(endpoint.URL)
		p.clients[endpoint.URL] = client
	}
	p.mu.Unlock()

	var callErr error
	for attempt := 0; attempt <= rateLimitRetries; attempt++ {
		callErr = client.Call(ctx, method, params, result)
		if !errors.Is(callErr, solana.ErrRateLimited) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rateLimitBackoff << attempt):
		}
	}

	if callErr == nil {
		p.ReportSuccess(endpoint)
		return nil
	}

	// Application-level RPC errors are the node answering correctly;
	// they never disable an endpoint.
	var rpcErr *solana.RPCError
	if errors.As(callErr, &rpcErr) {
		return callErr
	}

	p.ReportError(endpoint)
	return fmt.Errorf("call %s via %s: %w", method, endpoint.Name, callErr)
}

// ReportSuccess resets the endpoint's consecutive error counter.
func (p *Pool) ReportSuccess(endpoint *domain.ProviderEndpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	endpoint.ConsecErrors = 0
	endpoint.DisabledUntil = time.Time{}
	p.refreshHealthyLocked()
}

// ReportError counts a failure and disables the endpoint after the
// threshold.
func (p *Pool) ReportError(endpoint *domain.ProviderEndpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	endpoint.ConsecErrors++
	if p.metrics != nil {
		p.metrics.PoolCallErrors.WithLabelValues(endpoint.Name).Inc()
	}
	if endpoint.ConsecErrors >= MaxConsecutiveErrors {
		endpoint.DisabledUntil = p.now().Add(DisableCooldown)
		endpoint.ConsecErrors = 0
		log.Printf("[rpcpool] endpoint %s disabled until %s",
			endpoint.Name, endpoint.DisabledUntil.Format(time.RFC3339))
	} else if p.verbose {
		log.Printf("[rpcpool] endpoint %s error %d/%d",
			endpoint.Name, endpoint.ConsecErrors, MaxConsecutiveErrors)
	}
	p.refreshHealthyLocked()
}

// refreshHealthyLocked republishes the count of endpoints outside their
// disable cooldown. Caller holds p.mu.
func (p *Pool) refreshHealthyLocked() {
	if p.metrics == nil {
		return
	}
	now := p.now()
	healthy := 0
	for _, e := range p.endpoints {
		if !now.Before(e.DisabledUntil) {
			healthy++
		}
	}
	p.metrics.PoolEndpointsHealthy.Set(float64(healthy))
}

// EndpointSnapshot is a point-in-time view of one endpoint for /health.
type EndpointSnapshot struct {
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	Priority     int       `json:"priority"`
	Weight       int       `json:"weight"`
	ConsecErrors int       `json:"consecutive_errors"`
	Disabled     bool      `json:"disabled"`
	DisabledTill time.Time `json:"disabled_until,omitzero"`
}

// Snapshot returns the current state of all endpoints.
func (p *Pool) Snapshot() []EndpointSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]EndpointSnapshot, 0, len(p.endpoints))
	for _, e := range p.endpoints {
		out = append(out, EndpointSnapshot{
			Name:         e.Name,
			Kind:         e.Kind.String(),
			Priority:     e.Priority,
			Weight:       e.Weight,
			ConsecErrors: e.ConsecErrors,
			Disabled:     now.Before(e.DisabledUntil),
			DisabledTill: e.DisabledUntil,
		})
	}
	return out
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}
