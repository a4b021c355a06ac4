package watchdog

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/ingress"
)

type stubChannel struct {
	health domain.ChannelHealth
}

func (s *stubChannel) Start(ctx context.Context, _ chan<- domain.Candidate) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubChannel) Health() domain.ChannelHealth { return s.health }

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func newWatchdogAt(channels []ingress.Ingress, started time.Time, now *time.Time) *Watchdog {
	w := New(channels, WithClock(func() time.Time { return *now }))
	w.startedAt = started
	return w
}

func TestCheck_StartupGraceSuppressesAlerts(t *testing.T) {
	buf := captureLog(t)
	started := time.Unix(1_700_000_000, 0)
	now := started.Add(StartupGrace - time.Second)

	// Channel has never produced a message.
	ch := &stubChannel{health: domain.ChannelHealth{ChannelID: "stream-1"}}
	w := newWatchdogAt([]ingress.Ingress{ch}, started, &now)

	w.Check()
	assert.Empty(t, buf.String())

	now = started.Add(StartupGrace + SilenceThreshold + time.Second)
	w.Check()
	assert.Contains(t, buf.String(), "ALL 1 ingress channels silent")
}

func TestCheck_HealthyChannelsStayQuiet(t *testing.T) {
	buf := captureLog(t)
	started := time.Unix(1_700_000_000, 0)
	now := started.Add(time.Hour)

	ch := &stubChannel{health: domain.ChannelHealth{
		ChannelID:     "stream-1",
		LastMessageAt: now.Add(-time.Minute),
	}}
	w := newWatchdogAt([]ingress.Ingress{ch}, started, &now)

	w.Check()
	assert.Empty(t, buf.String())
}

func TestCheck_SingleSilentChannelWarns(t *testing.T) {
	buf := captureLog(t)
	started := time.Unix(1_700_000_000, 0)
	now := started.Add(time.Hour)

	silent := &stubChannel{health: domain.ChannelHealth{
		ChannelID:     "stream-1",
		State:         domain.ChannelDegraded,
		LastMessageAt: now.Add(-10 * time.Minute),
	}}
	healthy := &stubChannel{health: domain.ChannelHealth{
		ChannelID:     "webhook",
		LastMessageAt: now.Add(-time.Second),
	}}
	w := newWatchdogAt([]ingress.Ingress{silent, healthy}, started, &now)

	w.Check()
	out := buf.String()
	assert.Contains(t, out, "WARNING: channel stream-1 silent")
	assert.NotContains(t, out, "webhook")
	assert.NotContains(t, out, "ALL")
}

func TestCheck_AllSilentEscalates(t *testing.T) {
	buf := captureLog(t)
	started := time.Unix(1_700_000_000, 0)
	now := started.Add(time.Hour)

	old := now.Add(-20 * time.Minute)
	a := &stubChannel{health: domain.ChannelHealth{ChannelID: "stream-1", LastMessageAt: old}}
	b := &stubChannel{health: domain.ChannelHealth{ChannelID: "stream-2", LastMessageAt: old}}
	w := newWatchdogAt([]ingress.Ingress{a, b}, started, &now)

	w.Check()
	out := buf.String()
	assert.Contains(t, out, "ERROR: ALL 2 ingress channels silent")
	// Escalation replaces the per-channel warnings.
	assert.NotContains(t, out, "WARNING")
}

func TestCheck_AlertsAreThrottled(t *testing.T) {
	buf := captureLog(t)
	started := time.Unix(1_700_000_000, 0)
	now := started.Add(time.Hour)

	ch := &stubChannel{health: domain.ChannelHealth{
		ChannelID:     "stream-1",
		LastMessageAt: now.Add(-10 * time.Minute),
	}}
	healthy := &stubChannel{health: domain.ChannelHealth{
		ChannelID:     "webhook",
		LastMessageAt: now,
	}}
	w := newWatchdogAt([]ingress.Ingress{ch, healthy}, started, &now)

	w.Check()
	first := buf.Len()
	require.Positive(t, first)

	// Within the throttle interval nothing new is logged.
	now = now.Add(AlertInterval / 2)
	w.Check()
	assert.Equal(t, first, buf.Len())

	now = now.Add(AlertInterval)
	w.Check()
	assert.Greater(t, buf.Len(), first)
}

func TestCheck_RecoveredChannelStopsAlerting(t *testing.T) {
	buf := captureLog(t)
	started := time.Unix(1_700_000_000, 0)
	now := started.Add(time.Hour)

	ch := &stubChannel{health: domain.ChannelHealth{
		ChannelID:     "stream-1",
		LastMessageAt: now.Add(-10 * time.Minute),
	}}
	healthy := &stubChannel{health: domain.ChannelHealth{ChannelID: "webhook", LastMessageAt: now}}
	w := newWatchdogAt([]ingress.Ingress{ch, healthy}, started, &now)

	w.Check()
	require.Positive(t, buf.Len())

	ch.health.LastMessageAt = now
	buf.Reset()
	now = now.Add(2 * AlertInterval)
	w.Check()
	assert.Empty(t, buf.String())
}

func TestStart_TicksUntilCancelled(t *testing.T) {
	captureLog(t)
	ch := &stubChannel{health: domain.ChannelHealth{ChannelID: "stream-1"}}
	w := New([]ingress.Ingress{ch}, WithTickInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	time.Sleep(25 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
