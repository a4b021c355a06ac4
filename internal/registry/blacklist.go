package registry

// Built-in stablecoin and staked-SOL mints. Buys of these are never
// signals. User configuration may extend this set but never shrink it.
var builtinBlacklist = []string{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", // USDT
	"So11111111111111111111111111111111111111112",  // wrapped SOL
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So",  // mSOL
	"7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj", // stSOL
	"J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn", // jitoSOL
	"bSo13r4TkiE4KumL71LsHTPpL2euBYLFx6h9HP3piy1",  // bSOL
	"USD1ttGY1N17NEEHLmELoaybftRBUSErhqYiQzvEmuB",  // USD1
	"USDH1SM1ojwWUga67PGrgFWUHibbjqMvuMaDkRJTgkX",  // USDH
}

// BuildBlacklist combines the built-in set with extra mints from
// configuration.
func BuildBlacklist(extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(builtinBlacklist)+len(extra))
	for _, mint := range builtinBlacklist {
		out[mint] = struct{}{}
	}
	for _, mint := range extra {
		if mint != "" {
			out[mint] = struct{}{}
		}
	}
	return out
}
