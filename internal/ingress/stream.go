package ingress

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/solana"
)

// Stream reconnect policy. A reset-style close reconnects fast because
// latency is the product; every other failure backs off exponentially.
const (
	FastReconnectDelay   = 500 * time.Millisecond
	InitialBackoff       = 1 * time.Second
	MaxBackoff           = 30 * time.Second
	subscribeCallTimeout = 30 * time.Second
)

// StreamIngress is the primary ingress variant: a long-lived stream
// subscription for transactions mentioning any tracked whale wallet.
// Two instances against independent providers run in parallel; the
// supervisor deduplicates across them.
type StreamIngress struct {
	channelID string
	url       string
	dialer    solana.StreamDialer
	mentions  func() []string
	verbose   bool

	mu     sync.Mutex
	health domain.ChannelHealth

	// sleep indirection so tests can compress reconnect waits
	sleep func(ctx context.Context, d time.Duration) bool
}

// StreamOptions configures a StreamIngress.
type StreamOptions struct {
	ChannelID string
	URL       string
	Dialer    solana.StreamDialer
	// Mentions supplies the wallet filter at (re)subscribe time, so an
	// admin wallet reload takes effect on the next reconnect.
	Mentions func() []string
	Verbose  bool
}

// NewStream creates a StreamIngress.
func NewStream(opts StreamOptions) *StreamIngress {
	return &StreamIngress{
		channelID: opts.ChannelID,
		url:       opts.URL,
		dialer:    opts.Dialer,
		mentions:  opts.Mentions,
		verbose:   opts.Verbose,
		health: domain.ChannelHealth{
			ChannelID: opts.ChannelID,
			State:     domain.ChannelConnecting,
		},
		sleep: sleepCtx,
	}
}

// Start runs the connect/subscribe/read loop until ctx is cancelled.
func (s *StreamIngress) Start(ctx context.Context, sink chan<- domain.Candidate) error {
	backoff := InitialBackoff

	for {
		if ctx.Err() != nil {
			s.setState(domain.ChannelDisabled)
			return ctx.Err()
		}

		err := s.runConnection(ctx, sink)
		if ctx.Err() != nil {
			s.setState(domain.ChannelDisabled)
			return ctx.Err()
		}

		s.mu.Lock()
		s.health.ReconnectCount++
		s.health.State = domain.ChannelDegraded
		s.mu.Unlock()

		if solana.IsResetError(err) {
			s.mu.Lock()
			s.health.FastCloseCount++
			s.mu.Unlock()
			if s.verbose {
				log.Printf("[stream:%s] reset, fast reconnect in %s: %v", s.channelID, FastReconnectDelay, err)
			}
			if !s.sleep(ctx, FastReconnectDelay) {
				return ctx.Err()
			}
			backoff = InitialBackoff
			continue
		}

		log.Printf("[stream:%s] connection error, reconnect in %s: %v", s.channelID, backoff, err)
		if !s.sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
		if backoff > MaxBackoff {
			backoff = MaxBackoff
		}
	}
}

// runConnection dials, subscribes, and pumps notifications until the
// connection dies or ctx is cancelled.
func (s *StreamIngress) runConnection(ctx context.Context, sink chan<- domain.Candidate) error {
	s.setState(domain.ChannelConnecting)

	conn, err := s.dialer.Dial(ctx, s.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	subCtx, cancel := context.WithTimeout(ctx, subscribeCallTimeout)
	subID, err := conn.SubscribeTransactions(subCtx, s.mentions())
	cancel()
	if err != nil {
		return err
	}
	if s.verbose {
		log.Printf("[stream:%s] subscribed (id=%d)", s.channelID, subID)
	}

	s.setState(domain.ChannelActive)

	for {
		payload, err := conn.Next(ctx)
		if err != nil {
			return err
		}

		delivered := offer(sink, domain.Candidate{
			Raw:       payload,
			ArrivedAt: time.Now(),
			ChannelID: s.channelID,
		})

		s.mu.Lock()
		s.health.LastMessageAt = time.Now()
		if !delivered {
			s.health.Dropped++
		}
		s.mu.Unlock()
	}
}

// Health returns the channel's health record.
func (s *StreamIngress) Health() domain.ChannelHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

func (s *StreamIngress) setState(state domain.ChannelState) {
	s.mu.Lock()
	s.health.State = state
	s.mu.Unlock()
}

// sleepCtx waits for d or until ctx is cancelled. Returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
