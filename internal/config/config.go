// Package config loads the pipeline configuration from a TOML file,
// merges built-in defaults, and applies WHALECOPY_* environment
// overrides for secrets.
package config

import (
	"fmt"

	"solana-whale-copy/internal/domain"
)

// ProviderConfig describes one RPC/stream provider endpoint.
type ProviderConfig struct {
	Name      string  `toml:"name"`
	URL       string  `toml:"url"`
	Kind      string  `toml:"kind"` // HTTP | WEBSOCKET | GRPC
	Weight    int     `toml:"weight"`
	RateLimit float64 `toml:"rate_limit"`
	Priority  int     `toml:"priority"`
}

// WhaleCopyConfig holds the classifier and registry knobs.
type WhaleCopyConfig struct {
	Enabled           bool    `toml:"enabled"`
	WalletsFile       string  `toml:"wallets_file"`
	MinBuyAmount      float64 `toml:"min_buy_amount"`
	TimeWindowMinutes int     `toml:"time_window_minutes"`
	TargetPlatform    string  `toml:"target_platform"`
}

// DedupConfig holds dedup set capacities.
type DedupConfig struct {
	SignatureCapacity    int `toml:"signature_capacity"`
	EmittedTokenCapacity int `toml:"emitted_token_capacity"`
}

// WebhookConfig holds the HTTP ingress settings.
type WebhookConfig struct {
	Port int `toml:"port"`
}

// RedisConfig holds the optional shared dedup backend settings.
// When Addr is empty the pipeline uses the in-process dedup set only.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// StateConfig holds persistent state file locations.
type StateConfig struct {
	Dir string `toml:"dir"` // directory for emitted_tokens.json and purchased_history.json
}

// Config is the root configuration.
type Config struct {
	WhaleCopy         WhaleCopyConfig  `toml:"whale_copy"`
	StablecoinFilter  []string         `toml:"stablecoin_filter"`
	WhaleAllPlatforms bool             `toml:"whale_all_platforms"`
	Providers         []ProviderConfig `toml:"rpc_providers"`
	Webhook           WebhookConfig    `toml:"webhook"`
	Dedup             DedupConfig      `toml:"dedup"`
	Redis             RedisConfig      `toml:"redis"`
	State             StateConfig      `toml:"state"`
	Verbose           bool             `toml:"verbose"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		WhaleCopy: WhaleCopyConfig{
			Enabled:           true,
			WalletsFile:       "wallets.json",
			MinBuyAmount:      0.4,
			TimeWindowMinutes: 5,
		},
		Webhook: WebhookConfig{Port: 8081},
		Dedup: DedupConfig{
			SignatureCapacity:    5000,
			EmittedTokenCapacity: 500,
		},
		State: StateConfig{Dir: "state"},
	}
}

// Validate checks the configuration for startup-fatal problems.
func (c *Config) Validate() error {
	if c.WhaleCopy.WalletsFile == "" {
		return fmt.Errorf("whale_copy.wallets_file is required")
	}
	if c.WhaleCopy.MinBuyAmount < 0 {
		return fmt.Errorf("whale_copy.min_buy_amount must be >= 0, got %v", c.WhaleCopy.MinBuyAmount)
	}
	if c.WhaleCopy.TimeWindowMinutes <= 0 {
		return fmt.Errorf("whale_copy.time_window_minutes must be > 0, got %d", c.WhaleCopy.TimeWindowMinutes)
	}
	if c.Dedup.SignatureCapacity <= 0 {
		return fmt.Errorf("dedup.signature_capacity must be > 0, got %d", c.Dedup.SignatureCapacity)
	}
	if c.Dedup.EmittedTokenCapacity <= 0 {
		return fmt.Errorf("dedup.emitted_token_capacity must be > 0, got %d", c.Dedup.EmittedTokenCapacity)
	}
	if c.Webhook.Port <= 0 || c.Webhook.Port > 65535 {
		return fmt.Errorf("webhook.port out of range: %d", c.Webhook.Port)
	}
	for i, p := range c.Providers {
		if p.URL == "" {
			return fmt.Errorf("rpc_providers[%d]: url is required", i)
		}
		if !domain.EndpointKind(p.Kind).IsValid() {
			return fmt.Errorf("rpc_providers[%d]: unknown kind %q", i, p.Kind)
		}
		if p.Weight <= 0 {
			return fmt.Errorf("rpc_providers[%d]: weight must be > 0, got %d", i, p.Weight)
		}
	}
	return nil
}

// Endpoints converts the provider list to domain endpoints.
func (c *Config) Endpoints() []*domain.ProviderEndpoint {
	out := make([]*domain.ProviderEndpoint, 0, len(c.Providers))
	for _, p := range c.Providers {
		name := p.Name
		if name == "" {
			name = p.URL
		}
		out = append(out, &domain.ProviderEndpoint{
			Name:      name,
			URL:       p.URL,
			Kind:      domain.EndpointKind(p.Kind),
			Weight:    p.Weight,
			RateLimit: p.RateLimit,
			Priority:  p.Priority,
		})
	}
	return out
}

// TimeWindowSeconds returns the signal age window in seconds.
func (c *Config) TimeWindowSeconds() float64 {
	return float64(c.WhaleCopy.TimeWindowMinutes) * 60
}
