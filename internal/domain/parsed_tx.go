package domain

// TokenBalance represents a post-transaction token account balance.
type TokenBalance struct {
	Owner    string  // owner wallet address
	Mint     string  // token mint address
	UIAmount float64 // balance in UI units
}

// ParsedTx is the neutral view of a decoded transaction. It carries
// everything classification and platform detection need, with no
// provider-specific structure left.
type ParsedTx struct {
	Signature         string         // base58 transaction signature
	BlockTime         *int64         // unix seconds (nullable)
	FeePayer          string         // first account key
	AccountKeys       []string       // static keys plus lookup-table expansion
	PreBalances       []uint64       // lamports, aligned with AccountKeys
	PostBalances      []uint64       // lamports, aligned with AccountKeys
	TokenPostBalances []TokenBalance // post token balances
	LogMessages       []string       // program log lines
	Succeeded         bool           // false when the meta error field is set
	InvokedProgramIDs map[string]struct{}

	// Decoder extraction results. Empty/zero when the decoder could not
	// attribute a received token to the fee payer.
	ReceivedMint string  // token mint received by the fee payer
	AmountSOL    float64 // gross SOL spent by the fee payer, fee included
	IsBuy        bool    // set when a buy/swap instruction was recognized
}

// BalancesAligned reports whether the balance arrays line up with the
// account key list. Indices into misaligned arrays attribute lamports
// to the wrong wallet.
func (p *ParsedTx) BalancesAligned() bool {
	return len(p.PreBalances) == len(p.AccountKeys) && len(p.PostBalances) == len(p.AccountKeys)
}

// InvokedProgram reports whether the transaction invoked the given program.
func (p *ParsedTx) InvokedProgram(programID string) bool {
	_, ok := p.InvokedProgramIDs[programID]
	return ok
}
