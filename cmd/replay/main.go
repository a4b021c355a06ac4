// Package main replays captured transaction payloads through the
// decode and classification stages offline, printing the verdict for
// each. Input lines are either raw payload JSON or bare signatures,
// which are hydrated from a node when --rpc is set. Useful for tuning
// thresholds against recorded whale activity without touching a live
// stream.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"solana-whale-copy/internal/classify"
	"solana-whale-copy/internal/decode"
	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/platform"
	"solana-whale-copy/internal/registry"
	"solana-whale-copy/internal/solana"
)

// verdict is one replayed transaction's outcome.
type verdict struct {
	Line      int             `json:"line"`
	Signature string          `json:"signature,omitempty"`
	Outcome   string          `json:"outcome"`
	Reason    string          `json:"reason,omitempty"`
	Platform  domain.Platform `json:"platform,omitempty"`
	Mint      string          `json:"mint,omitempty"`
	AmountSOL float64         `json:"amount_sol,omitempty"`
}

func main() {
	inputPath := flag.String("input", "", "File of captured payloads or bare signatures, one per line (required)")
	walletsFile := flag.String("wallets", "wallets.json", "Whale wallets document")
	rpcURL := flag.String("rpc", "", "HTTP JSON-RPC endpoint used to hydrate bare signature lines")
	minBuy := flag.Float64("min-buy", 0.4, "Minimum gross SOL amount")
	windowMinutes := flag.Int("window", 5, "Signal age window in minutes")
	ignoreAge := flag.Bool("ignore-age", false, "Skip the age check (recorded payloads are always stale)")
	outputJSON := flag.Bool("json", false, "Output verdicts as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *inputPath == "" {
		logger.Fatal("--input is required")
	}

	reg, err := registry.New(registry.Options{WalletsFile: *walletsFile})
	if err != nil {
		logger.Fatalf("load wallets: %v", err)
	}

	classifierOpts := classify.Options{
		Registry:      reg,
		MinBuySOL:     *minBuy,
		WindowSeconds: float64(*windowMinutes) * 60,
		AllPlatforms:  true,
	}
	var clockOpts []classify.Option
	if *ignoreAge {
		// A clock pinned to the epoch makes every recorded payload look
		// fresh relative to its block time.
		clockOpts = append(clockOpts, classify.WithClock(func() time.Time { return time.Unix(0, 0) }))
	}
	classifier := classify.New(classifierOpts, clockOpts...)

	decoder := decode.New(reg.Blacklist())
	resolver := platform.New(false)

	var rpc *solana.HTTPClient
	if *rpcURL != "" {
		rpc = solana.NewHTTPClient(*rpcURL)
	}

	file, err := os.Open(*inputPath)
	if err != nil {
		logger.Fatalf("open input: %v", err)
	}
	defer file.Close()

	var verdicts []verdict
	var emitted, dropped, undecodable int

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1<<20), 16<<20)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var v verdict
		if raw[0] == '{' || raw[0] == '[' {
			v = replayOne(lineNo, raw, decoder, classifier, resolver)
		} else {
			v = replaySignature(lineNo, string(raw), rpc, reg, classifier, resolver)
		}
		switch v.Outcome {
		case "emit":
			emitted++
		case "drop":
			dropped++
		default:
			undecodable++
		}
		verdicts = append(verdicts, v)
	}
	if err := scanner.Err(); err != nil {
		logger.Fatalf("read input: %v", err)
	}

	if *outputJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(verdicts); err != nil {
			logger.Fatalf("encode output: %v", err)
		}
	} else {
		for _, v := range verdicts {
			printVerdict(v)
		}
	}

	fmt.Fprintf(os.Stderr, "replayed %d payloads: %d would emit, %d dropped, %d undecodable\n",
		len(verdicts), emitted, dropped, undecodable)
}

func replayOne(lineNo int, raw []byte, decoder *decode.Decoder, classifier *classify.Classifier, resolver *platform.Resolver) verdict {
	parsed, err := decoder.Decode(raw)
	if err != nil {
		return verdict{Line: lineNo, Outcome: "undecodable", Reason: err.Error()}
	}
	return classifyParsed(lineNo, parsed, classifier, resolver)
}

// replaySignature fetches the transaction from a node and runs it
// through the same classification stages as a captured payload.
func replaySignature(lineNo int, sig string, rpc *solana.HTTPClient, reg *registry.Registry, classifier *classify.Classifier, resolver *platform.Resolver) verdict {
	if rpc == nil {
		return verdict{Line: lineNo, Signature: sig, Outcome: "undecodable", Reason: "bare signature line needs --rpc"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tx, err := rpc.GetTransaction(ctx, sig)
	if err != nil {
		return verdict{Line: lineNo, Signature: sig, Outcome: "undecodable", Reason: err.Error()}
	}
	if tx == nil {
		return verdict{Line: lineNo, Signature: sig, Outcome: "undecodable", Reason: "signature not found"}
	}

	parsed, err := decode.FromTransaction(tx, reg.Blacklist())
	if err != nil {
		return verdict{Line: lineNo, Signature: sig, Outcome: "undecodable", Reason: err.Error()}
	}
	return classifyParsed(lineNo, parsed, classifier, resolver)
}

func classifyParsed(lineNo int, parsed *domain.ParsedTx, classifier *classify.Classifier, resolver *platform.Resolver) verdict {
	buy, reason := classifier.Evaluate(parsed)
	if reason != classify.ReasonNone {
		return verdict{
			Line:      lineNo,
			Signature: parsed.Signature,
			Outcome:   "drop",
			Reason:    string(reason),
			Mint:      parsed.ReceivedMint,
			AmountSOL: parsed.AmountSOL,
		}
	}

	intent := resolver.Resolve(buy, parsed)
	if reason := classifier.Approve(&intent); reason != classify.ReasonNone {
		return verdict{
			Line:      lineNo,
			Signature: parsed.Signature,
			Outcome:   "drop",
			Reason:    string(reason),
			Platform:  intent.Platform,
			Mint:      intent.TokenMint,
			AmountSOL: intent.AmountSOL,
		}
	}

	return verdict{
		Line:      lineNo,
		Signature: intent.Signature,
		Outcome:   "emit",
		Platform:  intent.Platform,
		Mint:      intent.TokenMint,
		AmountSOL: intent.AmountSOL,
	}
}

func printVerdict(v verdict) {
	switch v.Outcome {
	case "emit":
		fmt.Printf("line %4d  EMIT  %s  %.3f SOL  %s  %s\n", v.Line, v.Mint, v.AmountSOL, v.Platform, v.Signature)
	case "drop":
		fmt.Printf("line %4d  drop  %-16s %s\n", v.Line, v.Reason, v.Signature)
	default:
		fmt.Printf("line %4d  skip  %s\n", v.Line, v.Reason)
	}
}
