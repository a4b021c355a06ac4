package decode

import (
	"fmt"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/solana"
)

// FromTransaction converts a node-fetched transaction into a ParsedTx.
// Hydrated transactions carry no instruction payloads, so the received
// mint comes from the token balance diff and program IDs from the log
// lines only.
func FromTransaction(tx *solana.Transaction, blacklist map[string]struct{}) (*domain.ParsedTx, error) {
	if tx == nil || tx.Signature == "" {
		return nil, fmt.Errorf("%w: no signature", ErrMalformedTx)
	}
	if tx.Meta == nil || tx.Message == nil || len(tx.Message.AccountKeys) == 0 {
		return nil, fmt.Errorf("%w: missing meta or account keys", ErrMalformedTx)
	}
	if tx.Meta.Err != nil {
		return nil, ErrFailedTx
	}
	keys := tx.Message.AccountKeys
	if len(tx.Meta.PreBalances) != len(keys) || len(tx.Meta.PostBalances) != len(keys) {
		return nil, fmt.Errorf("%w: balances misaligned: %d keys, %d pre, %d post",
			ErrMalformedTx, len(keys), len(tx.Meta.PreBalances), len(tx.Meta.PostBalances))
	}

	feePayer := keys[0]
	parsed := &domain.ParsedTx{
		Signature:         tx.Signature,
		BlockTime:         tx.BlockTime,
		FeePayer:          feePayer,
		AccountKeys:       keys,
		PreBalances:       tx.Meta.PreBalances,
		PostBalances:      tx.Meta.PostBalances,
		LogMessages:       tx.Meta.LogMessages,
		Succeeded:         true,
		InvokedProgramIDs: make(map[string]struct{}),
	}
	for _, line := range tx.Meta.LogMessages {
		if id, ok := programFromInvokeLog(line); ok {
			parsed.InvokedProgramIDs[id] = struct{}{}
		}
	}
	for _, tb := range tx.Meta.PostTokenBalances {
		parsed.TokenPostBalances = append(parsed.TokenPostBalances, domain.TokenBalance{
			Owner:    tb.Owner,
			Mint:     tb.Mint,
			UIAmount: tb.UIAmount,
		})
	}

	if tx.Meta.PreBalances[0] >= tx.Meta.PostBalances[0] {
		parsed.AmountSOL = float64(tx.Meta.PreBalances[0]-tx.Meta.PostBalances[0]) / lamportsPerSOL
	}

	preAmounts := make(map[string]float64)
	for _, tb := range tx.Meta.PreTokenBalances {
		if tb.Owner == feePayer {
			preAmounts[tb.Mint] = tb.UIAmount
		}
	}
	for _, tb := range tx.Meta.PostTokenBalances {
		if tb.Owner != feePayer || tb.UIAmount <= 0 {
			continue
		}
		if pre, had := preAmounts[tb.Mint]; !had || pre == 0 {
			parsed.ReceivedMint = tb.Mint
			break
		}
	}

	if parsed.ReceivedMint != "" {
		if _, banned := blacklist[parsed.ReceivedMint]; banned {
			return nil, ErrUninteresting
		}
	}
	return parsed, nil
}
