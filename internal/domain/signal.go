package domain

// WhaleBuy is the raw qualifying signal produced by the classifier.
type WhaleBuy struct {
	WhaleWallet string   // fee payer, member of the whale registry
	WhaleLabel  string   // operator label from the registry
	TokenMint   string   // received token mint
	AmountSOL   float64  // gross SOL spent, fee included
	Signature   string   // transaction signature
	BlockTime   *int64   // unix seconds (nullable)
	AgeSeconds  float64  // now minus block time; 0 when block time absent
	Platform    Platform // detected platform tag
}

// PlatformAccounts holds the program-derived addresses the executor
// needs to trade on a given platform. Which fields are populated
// depends on the platform tag; AMM and unknown platforms leave all
// fields empty and the executor falls back to an aggregator.
type PlatformAccounts struct {
	BondingCurve           string
	AssociatedBondingCurve string
	CreatorVault           string
	GlobalConfig           string
	PoolState              string
	BaseVault              string
	QuoteVault             string
}

// BuyIntent is the platform-enriched signal handed to the trade executor.
type BuyIntent struct {
	WhaleBuy
	Accounts PlatformAccounts
}
