package decode

import (
	"fmt"

	"solana-whale-copy/internal/domain"
)

// FromEnriched converts a webhook-delivered pre-parsed transaction into
// a ParsedTx. The webhook provider already resolved balances into
// transfer lists, so the conversion reconstructs the fields the
// classifier reads instead of re-decoding bytes.
func FromEnriched(tx *domain.EnrichedTx, blacklist map[string]struct{}) (*domain.ParsedTx, error) {
	if tx.Signature == "" {
		return nil, fmt.Errorf("%w: no signature", ErrMalformedTx)
	}
	if tx.FeePayer == "" {
		return nil, fmt.Errorf("%w: no fee payer", ErrMalformedTx)
	}

	parsed := &domain.ParsedTx{
		Signature:         tx.Signature,
		FeePayer:          tx.FeePayer,
		Succeeded:         true,
		InvokedProgramIDs: make(map[string]struct{}),
	}
	if tx.Timestamp > 0 {
		bt := tx.Timestamp
		parsed.BlockTime = &bt
	}

	// Gross spend: lamports leaving the fee payer across native
	// transfers. The enrichment provider reports fee-inclusive amounts.
	var spentLamports int64
	for _, nt := range tx.NativeTransfers {
		if nt.FromUserAccount == tx.FeePayer {
			spentLamports += nt.Amount
		}
	}
	if spentLamports > 0 {
		parsed.AmountSOL = float64(spentLamports) / lamportsPerSOL
	}

	for _, tt := range tx.TokenTransfers {
		parsed.TokenPostBalances = append(parsed.TokenPostBalances, domain.TokenBalance{
			Owner:    tt.ToUserAccount,
			Mint:     tt.Mint,
			UIAmount: tt.TokenAmount,
		})
		if tt.ToUserAccount == tx.FeePayer && parsed.ReceivedMint == "" {
			parsed.ReceivedMint = tt.Mint
		}
	}

	if parsed.ReceivedMint != "" {
		if _, banned := blacklist[parsed.ReceivedMint]; banned {
			return nil, ErrUninteresting
		}
	}

	// Enrichment type hints stand in for log lines on this channel.
	switch tx.Type {
	case "SWAP", "BUY", "TOKEN_MINT":
		parsed.IsBuy = true
		parsed.LogMessages = []string{"Program log: Instruction: Buy"}
	}
	if src, ok := tx.Events["source"].(string); ok && src != "" {
		if id := programForSource(src); id != "" {
			parsed.InvokedProgramIDs[id] = struct{}{}
		}
	}

	return parsed, nil
}

// programForSource maps enrichment source hints onto program IDs so
// platform detection works on the webhook channel too.
func programForSource(source string) string {
	switch source {
	case "PUMP_FUN":
		return domain.ProgramPumpFun
	case "PUMP_AMM", "PUMP_SWAP":
		return domain.ProgramPumpSwap
	case "RAYDIUM":
		return domain.ProgramRaydiumAMM
	case "JUPITER":
		return domain.ProgramJupiterV6
	default:
		return ""
	}
}
