// Package ingress provides the concurrent candidate sources: two
// redundant stream channels and one HTTP webhook. All variants deliver
// into the supervisor's bounded sink and never block their network
// read path on it.
package ingress

import (
	"context"

	"solana-whale-copy/internal/domain"
)

// Ingress is one concurrent source of candidate transactions.
type Ingress interface {
	// Start begins streaming and delivers candidates into sink until
	// ctx is cancelled. It returns only after cleanup.
	Start(ctx context.Context, sink chan<- domain.Candidate) error

	// Health returns the channel's current health record.
	Health() domain.ChannelHealth
}

// offer performs the non-blocking sink send shared by all variants.
// A full sink drops the candidate; the network read loop never waits.
func offer(sink chan<- domain.Candidate, c domain.Candidate) bool {
	select {
	case sink <- c:
		return true
	default:
		return false
	}
}
