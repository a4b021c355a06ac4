package emit

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"solana-whale-copy/internal/domain"
)

// PaperExecutor accepts every intent without submitting anything on
// chain. It stands in for the real trade executor in dry runs and in
// the replay tool.
type PaperExecutor struct {
	seq atomic.Int64
}

// NewPaperExecutor creates a PaperExecutor.
func NewPaperExecutor() *PaperExecutor {
	return &PaperExecutor{}
}

// Emit logs the intent and reports a successful buy with a synthetic
// position handle.
func (p *PaperExecutor) Emit(ctx context.Context, intent domain.BuyIntent) (Outcome, error) {
	handle := fmt.Sprintf("paper-%d", p.seq.Add(1))
	log.Printf("[executor] PAPER BUY %s (%.3f SOL, whale=%s, platform=%s) -> %s",
		intent.TokenMint, intent.AmountSOL, intent.WhaleLabel, intent.Platform, handle)
	return Outcome{Status: StatusBought, PositionHandle: handle}, nil
}
