package domain

// Platform identifies the DEX or launchpad a buy went through.
type Platform string

const (
	PlatformPumpFun    Platform = "pump_fun"
	PlatformLetsBonk   Platform = "lets_bonk"
	PlatformBags       Platform = "bags"
	PlatformPumpSwap   Platform = "pumpswap"
	PlatformRaydiumAMM Platform = "raydium_amm"
	PlatformJupiter    Platform = "jupiter"
	PlatformUnknown    Platform = "unknown"
)

// String returns the string representation of Platform.
func (p Platform) String() string {
	return string(p)
}

// IsLaunchpad reports whether the platform is a bonding-curve launchpad.
// Launchpad signals carry richer structure and usually represent
// first-buys, so detection prefers them over AMM matches.
func (p Platform) IsLaunchpad() bool {
	return p == PlatformPumpFun || p == PlatformLetsBonk || p == PlatformBags
}

// Canonical program IDs (mainnet).
const (
	ProgramPumpFun    = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	ProgramLetsBonk   = "LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj"
	ProgramBags       = "dbcij3LWUppWqq96dh6gJWwBifmcGfLSB5D4DuSMaqN"
	ProgramPumpSwap   = "PSwapMdSai8tjrEXcxFeQth87xC4rRsa4VA5mhGhXkP"
	ProgramRaydiumAMM = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	ProgramJupiterV6  = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
)

// ProgramPlatforms maps canonical program IDs to platform tags.
var ProgramPlatforms = map[string]Platform{
	ProgramPumpFun:    PlatformPumpFun,
	ProgramLetsBonk:   PlatformLetsBonk,
	ProgramBags:       PlatformBags,
	ProgramPumpSwap:   PlatformPumpSwap,
	ProgramRaydiumAMM: PlatformRaydiumAMM,
	ProgramJupiterV6:  PlatformJupiter,
}
