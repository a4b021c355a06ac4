// Package decode turns raw provider transaction payloads into neutral
// ParsedTx values with no network calls. This is the latency-critical
// replacement for the enrichment-API round trip.
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/mr-tron/base58"

	"solana-whale-copy/internal/domain"
)

// Pump.fun instruction discriminators (first 8 bytes of instruction data).
var (
	pumpFunBuyDiscriminator  = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	pumpFunSellDiscriminator = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// Anchor CPI event framing: self-CPI tag followed by the TradeEvent
// discriminator, then the event body.
var (
	anchorEventTag        = []byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}
	tradeEventDiscriminator = []byte{0xbd, 0xdb, 0x7f, 0xd3, 0x4e, 0xe6, 0x61, 0xee}
)

// TradeEvent reserve sanity bounds. Values outside these ranges mean
// the event bytes are not a real pump.fun trade; fall through to the
// balance-diff method instead of trusting them.
const (
	maxVirtualSolReserves   = 200e9
	maxVirtualTokenReserves = 2e15
	tradeEventBodyLen       = 32 + 8 + 8 + 1 + 32 + 8 + 8 + 8
	lamportsPerSOL          = 1e9
	baseFeeLamports         = 5000
)

// Pump.fun buy instruction account positions.
const (
	pumpFunBuyAccMint = 2
	pumpFunBuyAccUser = 6
)

// Stats counts decoder outcomes since startup.
type Stats struct {
	Decoded             int64 `json:"decoded"`
	Malformed           int64 `json:"malformed"`
	Failed              int64 `json:"failed"`
	Uninteresting       int64 `json:"uninteresting"`
	DiscriminatorHits   int64 `json:"discriminator_hits"`
	TradeEventHits      int64 `json:"trade_event_hits"`
	BalanceDiffHits     int64 `json:"balance_diff_hits"`
	SellsRecognized     int64 `json:"sells_recognized"`
}

// Decoder parses raw stream payloads into ParsedTx values. Decoding is
// deterministic: identical input bytes produce identical output. The
// only mutable state is the outcome counters.
type Decoder struct {
	blacklist map[string]struct{}

	statsMu sync.Mutex
	stats   Stats
}

// New creates a Decoder. The blacklist short-circuits transactions
// whose received mint is a stablecoin before any downstream work.
func New(blacklist map[string]struct{}) *Decoder {
	if blacklist == nil {
		blacklist = make(map[string]struct{})
	}
	return &Decoder{blacklist: blacklist}
}

// Stats returns a copy of the outcome counters.
func (d *Decoder) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

func (d *Decoder) count(f func(*Stats)) {
	d.statsMu.Lock()
	f(&d.stats)
	d.statsMu.Unlock()
}

// Decode parses one raw notification payload.
//
// Two extraction methods run in order: the instruction-discriminator
// method for known launchpad programs, then the universal balance-diff
// method. A recognized sell or a blacklisted received mint returns
// ErrUninteresting.
func (d *Decoder) Decode(raw []byte) (*domain.ParsedTx, error) {
	env, err := unmarshalTx(raw)
	if err != nil {
		d.count(func(s *Stats) { s.Malformed++ })
		return nil, fmt.Errorf("%w: %v", ErrMalformedTx, err)
	}
	if env.Transaction == nil || env.Transaction.Transaction == nil ||
		env.Transaction.Transaction.Message == nil || env.Transaction.Meta == nil {
		d.count(func(s *Stats) { s.Malformed++ })
		return nil, fmt.Errorf("%w: missing transaction or meta", ErrMalformedTx)
	}

	signed := env.Transaction.Transaction
	meta := env.Transaction.Meta
	msg := signed.Message

	signature := env.Signature
	if signature == "" && len(signed.Signatures) > 0 {
		signature = signed.Signatures[0]
	}
	if signature == "" {
		d.count(func(s *Stats) { s.Malformed++ })
		return nil, fmt.Errorf("%w: no signature", ErrMalformedTx)
	}

	if meta.Err != nil {
		d.count(func(s *Stats) { s.Failed++ })
		return nil, ErrFailedTx
	}

	accountKeys := expandAccountKeys(msg, meta)
	if len(accountKeys) == 0 {
		d.count(func(s *Stats) { s.Malformed++ })
		return nil, fmt.Errorf("%w: no account keys", ErrMalformedTx)
	}
	if len(meta.PreBalances) != len(accountKeys) || len(meta.PostBalances) != len(accountKeys) {
		d.count(func(s *Stats) { s.Malformed++ })
		return nil, fmt.Errorf("%w: balances misaligned: %d keys, %d pre, %d post",
			ErrMalformedTx, len(accountKeys), len(meta.PreBalances), len(meta.PostBalances))
	}

	feePayer := accountKeys[0]
	parsed := &domain.ParsedTx{
		Signature:         signature,
		BlockTime:         env.BlockTime,
		FeePayer:          feePayer,
		AccountKeys:       accountKeys,
		PreBalances:       meta.PreBalances,
		PostBalances:      meta.PostBalances,
		LogMessages:       meta.LogMessages,
		Succeeded:         true,
		InvokedProgramIDs: invokedPrograms(msg, meta, accountKeys),
	}
	for _, tb := range meta.PostTokenBalances {
		bal := domain.TokenBalance{Owner: tb.Owner, Mint: tb.Mint}
		if tb.UITokenAmount != nil && tb.UITokenAmount.UIAmount != nil {
			bal.UIAmount = *tb.UITokenAmount.UIAmount
		}
		parsed.TokenPostBalances = append(parsed.TokenPostBalances, bal)
	}

	// Gross lamports spent by the fee payer, fee included. The buy
	// threshold compares against this figure; the base fee correction is
	// reporting-only.
	if meta.PreBalances[0] >= meta.PostBalances[0] {
		parsed.AmountSOL = float64(meta.PreBalances[0]-meta.PostBalances[0]) / lamportsPerSOL
	}

	// Method 1: instruction discriminator on known launchpad programs.
	if mint, isBuy, ok := d.extractByDiscriminator(msg, meta, accountKeys, feePayer); ok {
		if !isBuy {
			d.count(func(s *Stats) { s.SellsRecognized++ })
			return nil, ErrUninteresting
		}
		d.count(func(s *Stats) { s.DiscriminatorHits++ })
		parsed.ReceivedMint = mint
		parsed.IsBuy = true
	} else {
		// Method 2: universal balance diff.
		mint := receivedMintByBalanceDiff(meta, feePayer)
		if mint != "" {
			d.count(func(s *Stats) { s.BalanceDiffHits++ })
		}
		parsed.ReceivedMint = mint
	}

	if parsed.ReceivedMint != "" {
		if _, banned := d.blacklist[parsed.ReceivedMint]; banned {
			d.count(func(s *Stats) { s.Uninteresting++ })
			return nil, ErrUninteresting
		}
	}

	d.count(func(s *Stats) { s.Decoded++ })
	return parsed, nil
}

// NetAmountSOL returns the fee payer's spend with the base transaction
// fee removed. Reporting only; thresholds use the gross figure.
func NetAmountSOL(tx *domain.ParsedTx, numSignatures int) float64 {
	if numSignatures < 1 {
		numSignatures = 1
	}
	net := tx.AmountSOL - float64(baseFeeLamports*numSignatures)/lamportsPerSOL
	if net < 0 {
		return 0
	}
	return net
}

// expandAccountKeys builds the full ordered key list: static message
// keys, then lookup-table writable, then lookup-table readonly.
func expandAccountKeys(msg *txMessage, meta *txMeta) []string {
	keys := make([]string, 0, len(msg.AccountKeys))
	keys = append(keys, msg.AccountKeys...)
	if meta.LoadedAddresses != nil {
		keys = append(keys, meta.LoadedAddresses.Writable...)
		keys = append(keys, meta.LoadedAddresses.Readonly...)
	}
	return keys
}

// invokedPrograms collects program IDs from instruction indices and
// from "Program <id> invoke" log lines.
func invokedPrograms(msg *txMessage, meta *txMeta, accountKeys []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, ins := range msg.Instructions {
		if ins.ProgramIDIndex >= 0 && ins.ProgramIDIndex < len(accountKeys) {
			out[accountKeys[ins.ProgramIDIndex]] = struct{}{}
		}
	}
	for _, inner := range meta.InnerInstructions {
		for _, ins := range inner.Instructions {
			if ins.ProgramIDIndex >= 0 && ins.ProgramIDIndex < len(accountKeys) {
				out[accountKeys[ins.ProgramIDIndex]] = struct{}{}
			}
		}
	}
	for _, line := range meta.LogMessages {
		if id, ok := programFromInvokeLog(line); ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// programFromInvokeLog parses "Program <id> invoke [n]" lines.
func programFromInvokeLog(line string) (string, bool) {
	const prefix = "Program "
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	rest := line[len(prefix):]
	idx := strings.Index(rest, " invoke")
	if idx <= 0 {
		return "", false
	}
	id := rest[:idx]
	if strings.ContainsRune(id, ' ') {
		return "", false
	}
	return id, true
}

// extractByDiscriminator applies the instruction-discriminator method.
// Returns (mint, isBuy, matched).
func (d *Decoder) extractByDiscriminator(msg *txMessage, meta *txMeta, accountKeys []string, feePayer string) (string, bool, bool) {
	for _, ins := range msg.Instructions {
		if ins.ProgramIDIndex < 0 || ins.ProgramIDIndex >= len(accountKeys) {
			continue
		}
		if accountKeys[ins.ProgramIDIndex] != domain.ProgramPumpFun {
			continue
		}
		data, err := base58.Decode(ins.Data)
		if err != nil || len(data) < 8 {
			continue
		}
		switch {
		case bytes.Equal(data[:8], pumpFunBuyDiscriminator):
			if mint, ok := accountAt(ins.Accounts, pumpFunBuyAccMint, accountKeys); ok {
				return mint, true, true
			}
		case bytes.Equal(data[:8], pumpFunSellDiscriminator):
			if mint, ok := accountAt(ins.Accounts, pumpFunBuyAccMint, accountKeys); ok {
				return mint, false, true
			}
		}
	}

	// The self-CPI TradeEvent carries the authoritative trade fields
	// when the top-level instruction went through an aggregator.
	if ev := d.findTradeEvent(meta, accountKeys); ev != nil {
		if ev.User == feePayer || feePayer == "" {
			return ev.Mint, ev.IsBuy, true
		}
	}
	return "", false, false
}

func accountAt(accounts []int, pos int, accountKeys []string) (string, bool) {
	if pos >= len(accounts) {
		return "", false
	}
	idx := accounts[pos]
	if idx < 0 || idx >= len(accountKeys) {
		return "", false
	}
	return accountKeys[idx], true
}

// tradeEvent is the decoded pump.fun TradeEvent body.
type tradeEvent struct {
	Mint                  string
	SolAmount             uint64
	TokenAmount           uint64
	IsBuy                 bool
	User                  string
	Timestamp             int64
	VirtualSolReserves    uint64
	VirtualTokenReserves  uint64
}

// findTradeEvent scans inner instructions for an Anchor self-CPI event
// frame and decodes the TradeEvent when the reserve bounds hold.
func (d *Decoder) findTradeEvent(meta *txMeta, accountKeys []string) *tradeEvent {
	for _, inner := range meta.InnerInstructions {
		for _, ins := range inner.Instructions {
			if ins.ProgramIDIndex < 0 || ins.ProgramIDIndex >= len(accountKeys) {
				continue
			}
			if accountKeys[ins.ProgramIDIndex] != domain.ProgramPumpFun {
				continue
			}
			data, err := base58.Decode(ins.Data)
			if err != nil {
				continue
			}
			ev := parseTradeEvent(data)
			if ev == nil {
				continue
			}
			if ev.VirtualSolReserves == 0 || float64(ev.VirtualSolReserves) >= maxVirtualSolReserves {
				continue
			}
			if ev.VirtualTokenReserves == 0 || float64(ev.VirtualTokenReserves) >= maxVirtualTokenReserves {
				continue
			}
			d.count(func(s *Stats) { s.TradeEventHits++ })
			return ev
		}
	}
	return nil
}

// parseTradeEvent decodes the event frame:
// tag[8] discriminator[8] mint[32] solAmount[8] tokenAmount[8] isBuy[1]
// user[32] timestamp[8] vSolReserves[8] vTokenReserves[8].
func parseTradeEvent(data []byte) *tradeEvent {
	if len(data) < 16+tradeEventBodyLen {
		return nil
	}
	if !bytes.Equal(data[:8], anchorEventTag) || !bytes.Equal(data[8:16], tradeEventDiscriminator) {
		return nil
	}
	body := data[16:]
	ev := &tradeEvent{
		Mint:        base58.Encode(body[0:32]),
		SolAmount:   binary.LittleEndian.Uint64(body[32:40]),
		TokenAmount: binary.LittleEndian.Uint64(body[40:48]),
		IsBuy:       body[48] == 1,
		User:        base58.Encode(body[49:81]),
		Timestamp:   int64(binary.LittleEndian.Uint64(body[81:89])),
	}
	ev.VirtualSolReserves = binary.LittleEndian.Uint64(body[89:97])
	ev.VirtualTokenReserves = binary.LittleEndian.Uint64(body[97:105])
	return ev
}

// receivedMintByBalanceDiff finds the token the fee payer received:
// a post token balance owned by the fee payer that was absent or zero
// before the transaction.
func receivedMintByBalanceDiff(meta *txMeta, feePayer string) string {
	preAmounts := make(map[string]float64)
	for _, tb := range meta.PreTokenBalances {
		if tb.Owner != feePayer {
			continue
		}
		if tb.UITokenAmount != nil && tb.UITokenAmount.UIAmount != nil {
			preAmounts[tb.Mint] = *tb.UITokenAmount.UIAmount
		} else {
			preAmounts[tb.Mint] = 0
		}
	}
	for _, tb := range meta.PostTokenBalances {
		if tb.Owner != feePayer {
			continue
		}
		var post float64
		if tb.UITokenAmount != nil && tb.UITokenAmount.UIAmount != nil {
			post = *tb.UITokenAmount.UIAmount
		}
		if post <= 0 {
			continue
		}
		if pre, had := preAmounts[tb.Mint]; !had || pre == 0 {
			return tb.Mint
		}
	}
	return ""
}
