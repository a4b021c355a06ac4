// Package main runs the whale-copy signal pipeline: three ingress
// channels feeding a supervisor that decodes, deduplicates, classifies,
// resolves platforms, and emits buy intents.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"solana-whale-copy/internal/classify"
	"solana-whale-copy/internal/config"
	"solana-whale-copy/internal/decode"
	"solana-whale-copy/internal/dedup"
	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/emit"
	"solana-whale-copy/internal/ingress"
	"solana-whale-copy/internal/observability"
	"solana-whale-copy/internal/platform"
	"solana-whale-copy/internal/registry"
	"solana-whale-copy/internal/rpcpool"
	"solana-whale-copy/internal/solana"
	"solana-whale-copy/internal/supervisor"
	"solana-whale-copy/internal/watchdog"
)

// Exit codes: 1 for configuration and wallet-file errors, 2 for
// unrecoverable persistent-state corruption.
const (
	exitConfigError = 1
	exitStateError  = 2
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to TOML configuration file")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(exitConfigError)
	}
	if *verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(exitConfigError)
	}
	if !cfg.WhaleCopy.Enabled {
		fmt.Println("whale_copy.enabled is false; nothing to do")
		return
	}

	reg, err := registry.New(registry.Options{
		WalletsFile:     cfg.WhaleCopy.WalletsFile,
		StateDir:        cfg.State.Dir,
		EmittedCapacity: cfg.Dedup.EmittedTokenCapacity,
		ExtraBlacklist:  cfg.StablecoinFilter,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Registry error: %v\n", err)
		if errors.Is(err, registry.ErrStateCorrupt) {
			os.Exit(exitStateError)
		}
		os.Exit(exitConfigError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("")
	pool := rpcpool.New(cfg.Endpoints(), rpcpool.WithVerbose(cfg.Verbose), rpcpool.WithMetrics(metrics))

	var deduper dedup.Deduper
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		deduper = dedup.NewRedis(client, cfg.Dedup.SignatureCapacity, dedup.DefaultRedisTTL)
	} else {
		deduper = dedup.NewMemory(cfg.Dedup.SignatureCapacity)
	}

	decoder := decode.New(reg.Blacklist())
	classifier := classify.New(classify.Options{
		Registry:       reg,
		MinBuySOL:      cfg.WhaleCopy.MinBuyAmount,
		WindowSeconds:  cfg.TimeWindowSeconds(),
		TargetPlatform: domain.Platform(cfg.WhaleCopy.TargetPlatform),
		AllPlatforms:   cfg.WhaleAllPlatforms,
		Verbose:        cfg.Verbose,
	})
	resolver := platform.New(cfg.Verbose)
	emitter := emit.New(emit.Options{
		Registry: reg,
		Executor: emit.NewPaperExecutor(),
		Verbose:  cfg.Verbose,
		OnLatency: func(d time.Duration) {
			metrics.EmissionLatency.Observe(d.Seconds())
		},
	})

	// The webhook serves /health from the supervisor, which in turn is
	// built over the full ingress list. Late-bind the snapshot source
	// to break the cycle.
	var sup *supervisor.Supervisor
	healthSource := func() interface{} {
		if sup == nil {
			return map[string]string{"status": "starting"}
		}
		return sup.Snapshot()
	}

	ingresses := buildIngresses(cfg, reg, healthSource, metrics)
	if len(ingresses) == 0 {
		fmt.Fprintln(os.Stderr, "Config error: no usable ingress channels configured")
		os.Exit(exitConfigError)
	}

	sup = supervisor.New(supervisor.Options{
		Ingresses:  ingresses,
		Decoder:    decoder,
		Deduper:    deduper,
		Classifier: classifier,
		Resolver:   resolver,
		Emitter:    emitter,
		Registry:   reg,
		Pool:       pool,
		Metrics:    metrics,
		Verbose:    cfg.Verbose,
	})

	dog := watchdog.New(ingresses)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return sup.Run(groupCtx) })
	group.Go(func() error {
		err := dog.Start(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	fmt.Printf("whale-copy pipeline started: %d whales, %d channels, %d endpoints\n",
		reg.WhaleCount(), len(ingresses), pool.Size())

	runErr := group.Wait()

	if err := reg.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Flush state: %v\n", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", runErr)
		os.Exit(exitConfigError)
	}
	fmt.Println("whale-copy pipeline stopped")
}

// buildIngresses assembles the channel set: one stream per WEBSOCKET
// provider endpoint plus the webhook server.
func buildIngresses(cfg *config.Config, reg *registry.Registry, healthSource ingress.HealthSource, metrics *observability.Metrics) []ingress.Ingress {
	var ingresses []ingress.Ingress

	streamIndex := 0
	for _, provider := range cfg.Providers {
		if domain.EndpointKind(provider.Kind) != domain.EndpointWebSocket {
			continue
		}
		streamIndex++
		ingresses = append(ingresses, ingress.NewStream(ingress.StreamOptions{
			ChannelID: fmt.Sprintf("stream-%d:%s", streamIndex, provider.Name),
			URL:       provider.URL,
			Dialer:    &solana.WSStreamDialer{},
			Mentions:  reg.WhaleWallets,
			Verbose:   cfg.Verbose,
		}))
	}

	ingresses = append(ingresses, ingress.NewWebhook(ingress.WebhookOptions{
		ChannelID:    "webhook",
		Port:         cfg.Webhook.Port,
		HealthSource: healthSource,
		Metrics:      metrics.Handler(),
		Verbose:      cfg.Verbose,
	}))

	return ingresses
}
