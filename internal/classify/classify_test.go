package classify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/registry"
)

const (
	whaleWallet = "WhaLe1111111111111111111111111111111111111"
	memeMint    = "Mint11111111111111111111111111111111111111"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	doc := domain.WalletsDocument{Whales: []domain.Whale{
		{Wallet: whaleWallet, Label: "alpha", WinRate: 0.7},
	}}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, "wallets.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r, err := registry.New(registry.Options{
		WalletsFile: path,
		StateDir:    filepath.Join(dir, "state"),
	})
	require.NoError(t, err)
	return r
}

func newClassifier(t *testing.T, opts Options, options ...Option) *Classifier {
	t.Helper()
	if opts.Registry == nil {
		opts.Registry = newRegistry(t)
	}
	if opts.MinBuySOL == 0 {
		opts.MinBuySOL = 0.4
	}
	if opts.WindowSeconds == 0 {
		opts.WindowSeconds = 300
	}
	return New(opts, options...)
}

func qualifyingTx() *domain.ParsedTx {
	blockTime := int64(1_700_000_000)
	return &domain.ParsedTx{
		Signature:    "sig1",
		BlockTime:    &blockTime,
		FeePayer:     whaleWallet,
		Succeeded:    true,
		ReceivedMint: memeMint,
		AmountSOL:    1.5,
		IsBuy:        true,
	}
}

func frozenClock(offset time.Duration) func() time.Time {
	return func() time.Time { return time.Unix(1_700_000_000, 0).Add(offset) }
}

func TestEvaluate_QualifyingBuyPasses(t *testing.T) {
	c := newClassifier(t, Options{}, WithClock(frozenClock(10*time.Second)))

	buy, reason := c.Evaluate(qualifyingTx())
	require.Equal(t, ReasonNone, reason)
	assert.Equal(t, whaleWallet, buy.WhaleWallet)
	assert.Equal(t, "alpha", buy.WhaleLabel)
	assert.Equal(t, memeMint, buy.TokenMint)
	assert.InDelta(t, 1.5, buy.AmountSOL, 1e-9)
	assert.InDelta(t, 10, buy.AgeSeconds, 1e-9)
}

func TestEvaluate_RuleOrder(t *testing.T) {
	c := newClassifier(t, Options{}, WithClock(frozenClock(0)))

	cases := map[Reason]func(tx *domain.ParsedTx){
		ReasonFailedTx: func(tx *domain.ParsedTx) { tx.Succeeded = false },
		ReasonNotWhale: func(tx *domain.ParsedTx) { tx.FeePayer = "SomeoneElse" },
		ReasonNotBuy:   func(tx *domain.ParsedTx) { tx.IsBuy = false },
		ReasonNoMint:   func(tx *domain.ParsedTx) { tx.ReceivedMint = "" },
		ReasonBlacklisted: func(tx *domain.ParsedTx) {
			tx.ReceivedMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
		},
		ReasonBelowThreshold: func(tx *domain.ParsedTx) { tx.AmountSOL = 0.39 },
	}
	for want, mutate := range cases {
		tx := qualifyingTx()
		mutate(tx)
		_, reason := c.Evaluate(tx)
		assert.Equal(t, want, reason)
	}
}

func TestEvaluate_FailedTxWinsOverEverything(t *testing.T) {
	// A failed transaction from an untracked wallet reports failed_tx,
	// not not_whale.
	c := newClassifier(t, Options{}, WithClock(frozenClock(0)))
	tx := qualifyingTx()
	tx.Succeeded = false
	tx.FeePayer = "SomeoneElse"

	_, reason := c.Evaluate(tx)
	assert.Equal(t, ReasonFailedTx, reason)
}

func TestEvaluate_ThresholdEqualityPasses(t *testing.T) {
	c := newClassifier(t, Options{}, WithClock(frozenClock(0)))
	tx := qualifyingTx()
	tx.AmountSOL = 0.4

	_, reason := c.Evaluate(tx)
	assert.Equal(t, ReasonNone, reason)
}

func TestEvaluate_AgeWindow(t *testing.T) {
	c := newClassifier(t, Options{}, WithClock(frozenClock(300*time.Second)))
	// Exactly at the window edge passes.
	_, reason := c.Evaluate(qualifyingTx())
	assert.Equal(t, ReasonNone, reason)

	c = newClassifier(t, Options{}, WithClock(frozenClock(301*time.Second)))
	_, reason = c.Evaluate(qualifyingTx())
	assert.Equal(t, ReasonStale, reason)
}

func TestEvaluate_NilBlockTimePassesAgeCheck(t *testing.T) {
	c := newClassifier(t, Options{}, WithClock(frozenClock(time.Hour)))
	tx := qualifyingTx()
	tx.BlockTime = nil

	buy, reason := c.Evaluate(tx)
	require.Equal(t, ReasonNone, reason)
	assert.Nil(t, buy.BlockTime)
	assert.Zero(t, buy.AgeSeconds)
}

func TestEvaluate_LogHeuristicsRecognizeBuys(t *testing.T) {
	c := newClassifier(t, Options{}, WithClock(frozenClock(0)))

	cases := map[string][]string{
		"program log buy":  {"Program log: Instruction: Buy"},
		"swap instruction": {"Program XYZ invoke [1]", "Program log: Instruction: Swap"},
		"ray_log":          {"Program log: ray_log: A1B2"},
		"amm program with swap wording": {
			"Program " + domain.ProgramRaydiumAMM + " invoke [1] swap",
		},
	}
	for name, logs := range cases {
		tx := qualifyingTx()
		tx.IsBuy = false
		tx.LogMessages = logs
		_, reason := c.Evaluate(tx)
		assert.Equal(t, ReasonNone, reason, name)
	}
}

func TestEvaluate_AMMProgramWithoutTradeWordingIsNotABuy(t *testing.T) {
	c := newClassifier(t, Options{}, WithClock(frozenClock(0)))
	tx := qualifyingTx()
	tx.IsBuy = false
	tx.LogMessages = []string{"Program " + domain.ProgramRaydiumAMM + " invoke [1]"}

	_, reason := c.Evaluate(tx)
	assert.Equal(t, ReasonNotBuy, reason)
}

func TestEvaluate_SellWordingInUserLogIsNotABuy(t *testing.T) {
	c := newClassifier(t, Options{}, WithClock(frozenClock(0)))
	tx := qualifyingTx()
	tx.IsBuy = false
	tx.LogMessages = []string{"Program log: Instruction: Sell"}

	_, reason := c.Evaluate(tx)
	assert.Equal(t, ReasonNotBuy, reason)
}

func TestApprove_PlatformRestriction(t *testing.T) {
	reg := newRegistry(t)
	c := newClassifier(t, Options{
		Registry:       reg,
		TargetPlatform: domain.PlatformPumpFun,
	})

	wrong := &domain.BuyIntent{WhaleBuy: domain.WhaleBuy{
		TokenMint: memeMint, Platform: domain.PlatformRaydiumAMM,
	}}
	assert.Equal(t, ReasonWrongPlatform, c.Approve(wrong))

	right := &domain.BuyIntent{WhaleBuy: domain.WhaleBuy{
		TokenMint: memeMint, Platform: domain.PlatformPumpFun,
	}}
	assert.Equal(t, ReasonNone, c.Approve(right))
}

func TestApprove_AllPlatformsOverridesTarget(t *testing.T) {
	c := newClassifier(t, Options{
		TargetPlatform: domain.PlatformPumpFun,
		AllPlatforms:   true,
	})

	intent := &domain.BuyIntent{WhaleBuy: domain.WhaleBuy{
		TokenMint: memeMint, Platform: domain.PlatformRaydiumAMM,
	}}
	assert.Equal(t, ReasonNone, c.Approve(intent))
}

func TestApprove_ReservesExactlyOnce(t *testing.T) {
	reg := newRegistry(t)
	c := newClassifier(t, Options{Registry: reg, AllPlatforms: true})

	intent := &domain.BuyIntent{WhaleBuy: domain.WhaleBuy{TokenMint: memeMint}}
	require.Equal(t, ReasonNone, c.Approve(intent))
	// The reservation is held until the emitter settles it.
	assert.Equal(t, ReasonAlreadyEmitted, c.Approve(intent))

	reg.ReleaseBuying(memeMint)
	assert.Equal(t, ReasonNone, c.Approve(intent))
}

func TestOnDropCallback(t *testing.T) {
	var dropped []Reason
	c := newClassifier(t, Options{
		OnDrop: func(r Reason) { dropped = append(dropped, r) },
	}, WithClock(frozenClock(0)))

	tx := qualifyingTx()
	tx.Succeeded = false
	c.Evaluate(tx)

	tx = qualifyingTx()
	tx.AmountSOL = 0.1
	c.Evaluate(tx)

	assert.Equal(t, []Reason{ReasonFailedTx, ReasonBelowThreshold}, dropped)
}
