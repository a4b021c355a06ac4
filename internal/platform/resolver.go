// Package platform tags a whale buy with the DEX or launchpad it went
// through and derives the program-derived accounts the executor needs
// to trade there. Detection and derivation are pure computation; no
// network calls.
package platform

import (
	"log"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/solana"
)

// PDA seeds per program. These are the on-chain conventions of each
// launchpad; changing them silently breaks address derivation.
var (
	seedBondingCurve = []byte("bonding-curve")
	seedGlobal       = []byte("global")
	seedPool         = []byte("pool")
	seedGlobalConfig = []byte("global_config")
	seedConfig       = []byte("config")
)

// Resolver detects the platform of a parsed transaction and builds the
// BuyIntent for it.
type Resolver struct {
	verbose bool
}

// New creates a Resolver.
func New(verbose bool) *Resolver {
	return &Resolver{verbose: verbose}
}

// Detect scans the invoked program IDs and returns the platform tag.
// Launchpad matches win over AMM matches; no match means unknown.
func Detect(parsed *domain.ParsedTx) domain.Platform {
	best := domain.PlatformUnknown
	for programID, platform := range domain.ProgramPlatforms {
		if !parsed.InvokedProgram(programID) {
			continue
		}
		if platform.IsLaunchpad() {
			return platform
		}
		if best == domain.PlatformUnknown {
			best = platform
		}
	}
	return best
}

// Resolve tags the buy and derives the platform accounts. Derivation
// failures leave the affected fields empty; the executor falls back to
// an aggregator route when it finds them missing.
func (r *Resolver) Resolve(buy domain.WhaleBuy, parsed *domain.ParsedTx) domain.BuyIntent {
	buy.Platform = Detect(parsed)

	intent := domain.BuyIntent{WhaleBuy: buy}
	switch buy.Platform {
	case domain.PlatformPumpFun:
		intent.Accounts = r.derivePumpFun(buy.TokenMint)
	case domain.PlatformLetsBonk:
		intent.Accounts = r.deriveLetsBonk(buy.TokenMint)
	case domain.PlatformBags:
		intent.Accounts = r.deriveBags(buy.TokenMint)
	}
	// AMM and unknown intents carry no derived accounts.

	if r.verbose {
		log.Printf("[platform] %s tagged %s mint=%s", shortSig(buy.Signature), buy.Platform, buy.TokenMint)
	}
	return intent
}

// derivePumpFun derives the bonding-curve account, its associated
// token account, and the global config.
func (r *Resolver) derivePumpFun(mint string) domain.PlatformAccounts {
	var accounts domain.PlatformAccounts

	mintBytes, err := solana.DecodeAddress(mint)
	if err != nil {
		r.deriveFailed(domain.PlatformPumpFun, mint, err)
		return accounts
	}

	curve, _, err := solana.FindProgramAddress(
		[][]byte{seedBondingCurve, mintBytes}, domain.ProgramPumpFun)
	if err != nil {
		r.deriveFailed(domain.PlatformPumpFun, mint, err)
		return accounts
	}
	accounts.BondingCurve = curve

	if ata, err := solana.AssociatedTokenAddress(curve, mint); err == nil {
		accounts.AssociatedBondingCurve = ata
	} else {
		r.deriveFailed(domain.PlatformPumpFun, mint, err)
	}

	if global, _, err := solana.FindProgramAddress(
		[][]byte{seedGlobal}, domain.ProgramPumpFun); err == nil {
		accounts.GlobalConfig = global
	} else {
		r.deriveFailed(domain.PlatformPumpFun, mint, err)
	}

	return accounts
}

// deriveLetsBonk derives the pool state, its base and quote vaults,
// and the global config.
func (r *Resolver) deriveLetsBonk(mint string) domain.PlatformAccounts {
	var accounts domain.PlatformAccounts

	mintBytes, err := solana.DecodeAddress(mint)
	if err != nil {
		r.deriveFailed(domain.PlatformLetsBonk, mint, err)
		return accounts
	}

	pool, _, err := solana.FindProgramAddress(
		[][]byte{seedPool, mintBytes}, domain.ProgramLetsBonk)
	if err != nil {
		r.deriveFailed(domain.PlatformLetsBonk, mint, err)
		return accounts
	}
	accounts.PoolState = pool

	if base, err := solana.AssociatedTokenAddress(pool, mint); err == nil {
		accounts.BaseVault = base
	} else {
		r.deriveFailed(domain.PlatformLetsBonk, mint, err)
	}
	if quote, err := solana.AssociatedTokenAddress(pool, solana.WrappedSOL); err == nil {
		accounts.QuoteVault = quote
	} else {
		r.deriveFailed(domain.PlatformLetsBonk, mint, err)
	}

	if config, _, err := solana.FindProgramAddress(
		[][]byte{seedGlobalConfig}, domain.ProgramLetsBonk); err == nil {
		accounts.GlobalConfig = config
	} else {
		r.deriveFailed(domain.PlatformLetsBonk, mint, err)
	}

	return accounts
}

// deriveBags derives the pool state and platform config.
func (r *Resolver) deriveBags(mint string) domain.PlatformAccounts {
	var accounts domain.PlatformAccounts

	mintBytes, err := solana.DecodeAddress(mint)
	if err != nil {
		r.deriveFailed(domain.PlatformBags, mint, err)
		return accounts
	}

	pool, _, err := solana.FindProgramAddress(
		[][]byte{seedPool, mintBytes}, domain.ProgramBags)
	if err != nil {
		r.deriveFailed(domain.PlatformBags, mint, err)
		return accounts
	}
	accounts.PoolState = pool

	if config, _, err := solana.FindProgramAddress(
		[][]byte{seedConfig}, domain.ProgramBags); err == nil {
		accounts.GlobalConfig = config
	} else {
		r.deriveFailed(domain.PlatformBags, mint, err)
	}

	return accounts
}

func (r *Resolver) deriveFailed(platform domain.Platform, mint string, err error) {
	log.Printf("[platform] %s derivation incomplete for mint %s: %v", platform, mint, err)
}

func shortSig(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12] + "..."
}
