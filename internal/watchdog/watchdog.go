// Package watchdog observes per-channel silence and raises log alerts.
// It never restarts a channel; the ingress reconnect loops own
// recovery, the watchdog only makes silence visible.
package watchdog

import (
	"context"
	"log"
	"time"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/ingress"
)

const (
	// TickInterval is how often channel health is sampled.
	TickInterval = 30 * time.Second

	// SilenceThreshold is how long a channel may go without a message
	// before it counts as silent.
	SilenceThreshold = 5 * time.Minute

	// AlertInterval throttles repeated alerts for the same condition.
	AlertInterval = 60 * time.Second

	// StartupGrace suppresses alerts after Start so reconnect churn at
	// boot does not page anyone.
	StartupGrace = 5 * time.Minute
)

// Watchdog samples the ingress channels on a fixed tick.
type Watchdog struct {
	channels []ingress.Ingress
	now      func() time.Time
	tick     time.Duration

	startedAt     time.Time
	lastAllAlert  time.Time
	lastChanAlert map[string]time.Time
}

// Option mutates a Watchdog during construction.
type Option func(*Watchdog)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(w *Watchdog) { w.now = now }
}

// WithTickInterval overrides the sampling interval.
func WithTickInterval(d time.Duration) Option {
	return func(w *Watchdog) { w.tick = d }
}

// New creates a Watchdog over the given channels.
func New(channels []ingress.Ingress, opts ...Option) *Watchdog {
	w := &Watchdog{
		channels:      channels,
		now:           time.Now,
		tick:          TickInterval,
		lastChanAlert: make(map[string]time.Time),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start runs the sampling loop until ctx is cancelled.
func (w *Watchdog) Start(ctx context.Context) error {
	w.startedAt = w.now()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check samples every channel once. Exported so tests can drive it
// without the ticker.
func (w *Watchdog) Check() {
	now := w.now()
	if now.Sub(w.startedAt) < StartupGrace {
		return
	}

	var silent []domain.ChannelHealth
	for _, ch := range w.channels {
		health := ch.Health()
		if w.isSilent(health, now) {
			silent = append(silent, health)
		}
	}

	if len(silent) == 0 {
		return
	}

	if len(silent) == len(w.channels) {
		if now.Sub(w.lastAllAlert) >= AlertInterval {
			w.lastAllAlert = now
			log.Printf("[watchdog] ERROR: ALL %d ingress channels silent for over %s; no whale activity is being observed", len(w.channels), SilenceThreshold)
		}
		return
	}

	for _, health := range silent {
		if now.Sub(w.lastChanAlert[health.ChannelID]) < AlertInterval {
			continue
		}
		w.lastChanAlert[health.ChannelID] = now
		log.Printf("[watchdog] WARNING: channel %s silent for %s (state=%s, reconnects=%d)",
			health.ChannelID, now.Sub(health.LastMessageAt).Round(time.Second), health.State, health.ReconnectCount)
	}
}

// isSilent treats a channel that never produced a message as silent
// once the threshold has passed since startup.
func (w *Watchdog) isSilent(health domain.ChannelHealth, now time.Time) bool {
	last := health.LastMessageAt
	if last.IsZero() {
		last = w.startedAt
	}
	return now.Sub(last) > SilenceThreshold
}
