// Package classify decides whether a decoded transaction is a
// qualifying whale buy. The decision procedure is a strictly ordered
// rule chain; the first failing rule drops the candidate with a typed
// reason, and nothing in this package ever raises.
package classify

import (
	"log"
	"strings"
	"time"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/registry"
)

// Reason names the rule that dropped a candidate. Exposed so the
// supervisor can label its drop counter per rule.
type Reason string

// Drop reasons, one per rule in evaluation order.
const (
	ReasonNone           Reason = ""
	ReasonFailedTx       Reason = "failed_tx"
	ReasonNotWhale       Reason = "not_whale"
	ReasonNotBuy         Reason = "not_buy"
	ReasonNoMint         Reason = "no_mint"
	ReasonBlacklisted    Reason = "blacklisted"
	ReasonBelowThreshold Reason = "below_threshold"
	ReasonStale          Reason = "stale"
	ReasonWrongPlatform  Reason = "wrong_platform"
	ReasonAlreadyEmitted Reason = "already_emitted"
)

// Classifier applies the whale-buy rule chain against the shared
// registry. Safe for concurrent use; it holds no mutable state of its
// own.
type Classifier struct {
	registry       *registry.Registry
	minBuySOL      float64
	windowSeconds  float64
	targetPlatform domain.Platform
	allPlatforms   bool
	verbose        bool

	now    func() time.Time
	onDrop func(Reason)
}

// Options configures a Classifier.
type Options struct {
	Registry      *registry.Registry
	MinBuySOL     float64
	WindowSeconds float64
	// TargetPlatform restricts emissions to one platform tag unless
	// AllPlatforms is set.
	TargetPlatform domain.Platform
	AllPlatforms   bool
	Verbose        bool
	// OnDrop, when non-nil, is invoked once per dropped candidate with
	// the rule that fired.
	OnDrop func(Reason)
}

// Option mutates a Classifier during construction.
type Option func(*Classifier)

// WithClock overrides the wall clock for age checks.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// New creates a Classifier.
func New(opts Options, options ...Option) *Classifier {
	c := &Classifier{
		registry:       opts.Registry,
		minBuySOL:      opts.MinBuySOL,
		windowSeconds:  opts.WindowSeconds,
		targetPlatform: opts.TargetPlatform,
		allPlatforms:   opts.AllPlatforms,
		verbose:        opts.Verbose,
		now:            time.Now,
		onDrop:         opts.OnDrop,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Evaluate runs rules one through six. On pass it returns the raw
// WhaleBuy for platform resolution; the emission reservation happens
// later in Approve, after the platform tag is known.
func (c *Classifier) Evaluate(parsed *domain.ParsedTx) (domain.WhaleBuy, Reason) {
	if !parsed.Succeeded {
		return domain.WhaleBuy{}, c.drop(parsed, ReasonFailedTx, "transaction failed")
	}

	whale, ok := c.registry.Whale(parsed.FeePayer)
	if !ok {
		return domain.WhaleBuy{}, c.drop(parsed, ReasonNotWhale, "fee payer not tracked")
	}

	if !isBuy(parsed) {
		return domain.WhaleBuy{}, c.drop(parsed, ReasonNotBuy, "no buy pattern")
	}

	if parsed.ReceivedMint == "" {
		return domain.WhaleBuy{}, c.drop(parsed, ReasonNoMint, "no received mint")
	}
	if c.registry.Blacklisted(parsed.ReceivedMint) {
		return domain.WhaleBuy{}, c.drop(parsed, ReasonBlacklisted, "stablecoin mint")
	}

	if parsed.AmountSOL < c.minBuySOL {
		return domain.WhaleBuy{}, c.drop(parsed, ReasonBelowThreshold, "below threshold")
	}

	var age float64
	if parsed.BlockTime != nil {
		age = c.now().Sub(time.Unix(*parsed.BlockTime, 0)).Seconds()
		if age > c.windowSeconds {
			return domain.WhaleBuy{}, c.drop(parsed, ReasonStale, "outside time window")
		}
	}

	return domain.WhaleBuy{
		WhaleWallet: parsed.FeePayer,
		WhaleLabel:  whale.Label,
		TokenMint:   parsed.ReceivedMint,
		AmountSOL:   parsed.AmountSOL,
		Signature:   parsed.Signature,
		BlockTime:   parsed.BlockTime,
		AgeSeconds:  age,
	}, ReasonNone
}

// Approve runs the final gates on a platform-tagged intent: the
// configured platform restriction, then the emission reservation.
// Returning ReasonNone means the mint is reserved in the
// buying-in-progress set and the caller owns the reservation.
func (c *Classifier) Approve(intent *domain.BuyIntent) Reason {
	if !c.allPlatforms && c.targetPlatform != "" && intent.Platform != c.targetPlatform {
		return c.dropIntent(intent, ReasonWrongPlatform, "platform "+intent.Platform.String())
	}
	if !c.registry.ReserveEmission(intent.TokenMint) {
		return c.dropIntent(intent, ReasonAlreadyEmitted, "mint already handled")
	}
	return ReasonNone
}

func (c *Classifier) drop(parsed *domain.ParsedTx, reason Reason, detail string) Reason {
	if c.onDrop != nil {
		c.onDrop(reason)
	}
	if c.verbose {
		log.Printf("[classify] drop %s sig=%s: %s", reason, short(parsed.Signature), detail)
	}
	return reason
}

func (c *Classifier) dropIntent(intent *domain.BuyIntent, reason Reason, detail string) Reason {
	if c.onDrop != nil {
		c.onDrop(reason)
	}
	if c.verbose {
		log.Printf("[classify] drop %s sig=%s mint=%s: %s", reason, short(intent.Signature), short(intent.TokenMint), detail)
	}
	return reason
}

// isBuy reports whether the transaction looks like a buy. The decoder
// settles the question for discriminator and trade-event matches; log
// heuristics cover everything else. Pure transfers and close-account
// transactions match none of these.
func isBuy(parsed *domain.ParsedTx) bool {
	if parsed.IsBuy {
		return true
	}
	for _, line := range parsed.LogMessages {
		lower := strings.ToLower(line)
		if strings.HasPrefix(line, "Program log: ") && strings.Contains(lower, "instruction: buy") {
			return true
		}
		if strings.Contains(lower, "instruction: swap") || strings.Contains(line, "ray_log") {
			return true
		}
		if mentionsAMMTrade(line, lower) {
			return true
		}
	}
	return false
}

// mentionsAMMTrade matches a log line naming a known AMM program ID
// alongside swap or buy wording.
func mentionsAMMTrade(line, lower string) bool {
	if !strings.Contains(line, domain.ProgramRaydiumAMM) &&
		!strings.Contains(line, domain.ProgramPumpSwap) &&
		!strings.Contains(line, domain.ProgramJupiterV6) {
		return false
	}
	return strings.Contains(lower, "swap") || strings.Contains(lower, "buy")
}

func short(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12] + "..."
}
