// Package supervisor fans the ingress channels into one bounded queue
// and drives each surviving candidate through decode, dedup,
// classification, platform resolution, and emission. It is the only
// consumer of the queue; per-channel arrival order is preserved, and
// no ordering is promised across channels.
package supervisor

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-whale-copy/internal/classify"
	"solana-whale-copy/internal/decode"
	"solana-whale-copy/internal/dedup"
	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/emit"
	"solana-whale-copy/internal/ingress"
	"solana-whale-copy/internal/observability"
	"solana-whale-copy/internal/platform"
	"solana-whale-copy/internal/registry"
	"solana-whale-copy/internal/rpcpool"
)

const (
	// QueueCapacity bounds the ingress-to-supervisor queue. On overflow
	// the producing ingress drops the candidate.
	QueueCapacity = 1024

	// DrainTimeout bounds how long shutdown spends processing queued
	// candidates before abandoning them.
	DrainTimeout = 5 * time.Second
)

// Supervisor owns the candidate queue and the processing loop.
type Supervisor struct {
	ingresses  []ingress.Ingress
	decoder    *decode.Decoder
	deduper    dedup.Deduper
	classifier *classify.Classifier
	resolver   *platform.Resolver
	emitter    *emit.Emitter
	registry   *registry.Registry
	pool       *rpcpool.Pool
	metrics    *observability.Metrics
	verbose    bool

	sink chan domain.Candidate
	now  func() time.Time
}

// Options configures a Supervisor.
type Options struct {
	Ingresses  []ingress.Ingress
	Decoder    *decode.Decoder
	Deduper    dedup.Deduper
	Classifier *classify.Classifier
	Resolver   *platform.Resolver
	Emitter    *emit.Emitter
	Registry   *registry.Registry
	// Pool is optional; it only feeds the health snapshot.
	Pool *rpcpool.Pool
	// Metrics is optional.
	Metrics *observability.Metrics
	Verbose bool
}

// Option mutates a Supervisor during construction.
type Option func(*Supervisor)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// New creates a Supervisor.
func New(opts Options, options ...Option) *Supervisor {
	s := &Supervisor{
		ingresses:  opts.Ingresses,
		decoder:    opts.Decoder,
		deduper:    opts.Deduper,
		classifier: opts.Classifier,
		resolver:   opts.Resolver,
		emitter:    opts.Emitter,
		registry:   opts.Registry,
		pool:       opts.Pool,
		metrics:    opts.Metrics,
		verbose:    opts.Verbose,
		sink:       make(chan domain.Candidate, QueueCapacity),
		now:        time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Sink exposes the candidate queue for tests that feed it directly.
func (s *Supervisor) Sink() chan<- domain.Candidate {
	return s.sink
}

// Run starts every ingress and the processing loop, and blocks until
// ctx is cancelled and the queue has drained or the drain timeout
// expired. The returned error is ctx's cause; ingress failures other
// than cancellation also surface here.
func (s *Supervisor) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, ing := range s.ingresses {
		ing := ing
		group.Go(func() error {
			err := ing.Start(groupCtx, s.sink)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	group.Go(func() error {
		s.loop(groupCtx)
		return nil
	})

	return group.Wait()
}

// loop consumes the queue until ctx is cancelled, then drains.
func (s *Supervisor) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case candidate := <-s.sink:
			s.process(ctx, candidate)
		}
	}
}

// drain processes what is already queued, bounded by DrainTimeout.
// Emission during drain runs under the drain deadline, not the dead
// parent context.
func (s *Supervisor) drain() {
	drainCtx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
	defer cancel()

	var processed int
	for {
		select {
		case <-drainCtx.Done():
			log.Printf("[supervisor] drain timeout after %d candidates, %d abandoned", processed, len(s.sink))
			return
		case candidate := <-s.sink:
			s.process(drainCtx, candidate)
			processed++
		default:
			if processed > 0 {
				log.Printf("[supervisor] drained %d queued candidates", processed)
			}
			return
		}
	}
}

// process runs one candidate through the full pipeline.
func (s *Supervisor) process(ctx context.Context, candidate domain.Candidate) {
	if s.metrics != nil {
		s.metrics.CandidatesReceived.WithLabelValues(candidate.ChannelID).Inc()
		s.metrics.QueueDepth.Set(float64(len(s.sink)))
	}

	parsed, err := s.decodeCandidate(candidate)
	if err != nil {
		s.countDecode(decodeOutcome(err))
		if errors.Is(err, decode.ErrMalformedTx) && s.verbose {
			log.Printf("[supervisor] malformed candidate from %s: %v", candidate.ChannelID, err)
		}
		return
	}
	s.countDecode("decoded")

	if !s.deduper.TryReserve(parsed.Signature, parsed.ReceivedMint) {
		if s.metrics != nil {
			s.metrics.DedupDuplicates.Inc()
		}
		if s.verbose {
			log.Printf("[supervisor] duplicate %s via %s", shortSig(parsed.Signature), candidate.ChannelID)
		}
		return
	}

	buy, reason := s.classifier.Evaluate(parsed)
	if reason != classify.ReasonNone {
		s.countDrop(reason)
		return
	}

	intent := s.resolver.Resolve(buy, parsed)

	if reason := s.classifier.Approve(&intent); reason != classify.ReasonNone {
		s.countDrop(reason)
		return
	}

	outcome, err := s.emitter.Emit(ctx, intent, candidate.ArrivedAt)
	if err != nil {
		log.Printf("[supervisor] emission error for %s: %v", intent.TokenMint, err)
		if s.metrics != nil {
			s.metrics.EmissionsTotal.WithLabelValues(intent.Platform.String(), "error").Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.EmissionsTotal.WithLabelValues(intent.Platform.String(), string(outcome.Status)).Inc()
		s.metrics.EmittedTokens.Set(float64(s.registry.EmittedCount()))
	}
}

func (s *Supervisor) decodeCandidate(candidate domain.Candidate) (*domain.ParsedTx, error) {
	if candidate.Enriched != nil {
		return decode.FromEnriched(candidate.Enriched, s.registry.Blacklist())
	}
	return s.decoder.Decode(candidate.Raw)
}

func (s *Supervisor) countDecode(outcome string) {
	if s.metrics != nil {
		s.metrics.DecodeOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (s *Supervisor) countDrop(reason classify.Reason) {
	if s.metrics != nil {
		s.metrics.ClassifierDrops.WithLabelValues(string(reason)).Inc()
	}
}

func decodeOutcome(err error) string {
	switch {
	case errors.Is(err, decode.ErrFailedTx):
		return "failed"
	case errors.Is(err, decode.ErrUninteresting):
		return "uninteresting"
	default:
		return "malformed"
	}
}

// ChannelStatus is one channel's entry in the health snapshot.
type ChannelStatus struct {
	domain.ChannelHealth
	SilenceSeconds float64 `json:"silence_seconds"`
}

// HealthSnapshot is the aggregated pipeline status served by /health.
type HealthSnapshot struct {
	Channels       []ChannelStatus `json:"channels"`
	QueueDepth     int             `json:"queue_depth"`
	DedupProcessed int             `json:"dedup_processed"`
	PoolEndpoints  int             `json:"pool_endpoints"`
	EmittedTokens  int             `json:"emitted_tokens"`
	Whales         int             `json:"whales"`
	Decode         decode.Stats    `json:"decode"`
}

// Snapshot aggregates the current pipeline status. Wired into the
// webhook's /health endpoint and read by the watchdog.
func (s *Supervisor) Snapshot() HealthSnapshot {
	now := s.now()
	snapshot := HealthSnapshot{
		QueueDepth:     len(s.sink),
		DedupProcessed: s.deduper.ProcessedCount(),
		EmittedTokens:  s.registry.EmittedCount(),
		Whales:         s.registry.WhaleCount(),
		Decode:         s.decoder.Stats(),
	}
	if s.pool != nil {
		snapshot.PoolEndpoints = s.pool.Size()
	}
	for _, ing := range s.ingresses {
		health := ing.Health()
		status := ChannelStatus{ChannelHealth: health}
		if !health.LastMessageAt.IsZero() {
			status.SilenceSeconds = now.Sub(health.LastMessageAt).Seconds()
		}
		if s.metrics != nil {
			s.metrics.ChannelSilence.WithLabelValues(health.ChannelID).Set(status.SilenceSeconds)
			s.metrics.ChannelReconnects.WithLabelValues(health.ChannelID).Set(float64(health.ReconnectCount))
			s.metrics.CandidatesDropped.WithLabelValues(health.ChannelID).Set(float64(health.Dropped))
		}
		snapshot.Channels = append(snapshot.Channels, status)
	}
	return snapshot
}

func shortSig(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12] + "..."
}
