// Package emit is the pipeline terminus: it hands a reserved BuyIntent
// to the trade executor exactly once and settles the registry
// reservation according to the outcome.
package emit

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/registry"
)

// LatencyAlarm is the signal-to-emission budget. Crossing it is logged
// and counted, never enforced; a late signal is still worth more than
// no signal.
const LatencyAlarm = 2 * time.Second

// Status classifies an executor outcome.
type Status string

const (
	StatusBought Status = "BOUGHT"
	StatusFailed Status = "FAILED"
)

// Outcome is the executor's verdict on a BuyIntent.
type Outcome struct {
	Status Status
	// PositionHandle identifies the position the executor opened.
	// Set only on StatusBought.
	PositionHandle string
	// Reason explains a StatusFailed outcome.
	Reason string
}

// Executor is the downstream trade executor. It signs and submits the
// buy; this package never sees a private key.
type Executor interface {
	Emit(ctx context.Context, intent domain.BuyIntent) (Outcome, error)
}

// Emitter settles emissions against the registry. The caller must hold
// the buying-in-progress reservation for intent.TokenMint before
// calling Emit; the emitter releases or confirms it.
type Emitter struct {
	registry  *registry.Registry
	executor  Executor
	verbose   bool
	now       func() time.Time
	onLatency func(time.Duration)
}

// Options configures an Emitter.
type Options struct {
	Registry *registry.Registry
	Executor Executor
	Verbose  bool
	// OnLatency, when non-nil, receives the signal-to-emission latency
	// of every attempt.
	OnLatency func(time.Duration)
}

// Option mutates an Emitter during construction.
type Option func(*Emitter)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) { e.now = now }
}

// New creates an Emitter.
func New(opts Options, options ...Option) *Emitter {
	e := &Emitter{
		registry:  opts.Registry,
		executor:  opts.Executor,
		verbose:   opts.Verbose,
		now:       time.Now,
		onLatency: opts.OnLatency,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Emit hands the intent to the executor and settles the reservation.
// arrivedAt is the candidate's ingress timestamp, used for the latency
// alarm. A Bought outcome confirms the mint into the persistent
// emitted set and appends a history record; anything else releases the
// reservation so future signals for the mint stay eligible.
func (e *Emitter) Emit(ctx context.Context, intent domain.BuyIntent, arrivedAt time.Time) (Outcome, error) {
	latency := e.now().Sub(arrivedAt)
	if e.onLatency != nil {
		e.onLatency(latency)
	}
	if latency > LatencyAlarm {
		log.Printf("[emit] WARNING: signal-to-emission latency %s exceeds %s (sig=%s)",
			latency.Round(time.Millisecond), LatencyAlarm, intent.Signature)
	}

	outcome, err := e.executor.Emit(ctx, intent)
	if err != nil {
		e.registry.ReleaseBuying(intent.TokenMint)
		return Outcome{}, fmt.Errorf("executor: %w", err)
	}

	switch outcome.Status {
	case StatusBought:
		if err := e.registry.ConfirmEmission(intent.TokenMint); err != nil {
			log.Printf("[emit] CRITICAL: persist emitted set for %s: %v", intent.TokenMint, err)
		}
		if err := e.registry.AppendHistory(registry.HistoryRecord{
			Mint:       intent.TokenMint,
			Timestamp:  e.now().Unix(),
			WhaleLabel: intent.WhaleLabel,
			AmountSOL:  intent.AmountSOL,
			Signature:  intent.Signature,
		}); err != nil {
			log.Printf("[emit] append history for %s: %v", intent.TokenMint, err)
		}
		log.Printf("[emit] BOUGHT %s (%.3f SOL, whale=%s, platform=%s, latency=%s)",
			intent.TokenMint, intent.AmountSOL, intent.WhaleLabel, intent.Platform,
			latency.Round(time.Millisecond))
	case StatusFailed:
		e.registry.ReleaseBuying(intent.TokenMint)
		log.Printf("[emit] buy failed for %s: %s", intent.TokenMint, outcome.Reason)
	default:
		e.registry.ReleaseBuying(intent.TokenMint)
		return Outcome{}, fmt.Errorf("executor returned unknown status %q", outcome.Status)
	}

	return outcome, nil
}
