package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-whale-copy/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.WhaleCopy.Enabled)
	assert.Equal(t, "wallets.json", cfg.WhaleCopy.WalletsFile)
	assert.InDelta(t, 0.4, cfg.WhaleCopy.MinBuyAmount, 1e-9)
	assert.Equal(t, 5, cfg.WhaleCopy.TimeWindowMinutes)
	assert.Equal(t, 8081, cfg.Webhook.Port)
	assert.Equal(t, 5000, cfg.Dedup.SignatureCapacity)
	assert.Equal(t, 500, cfg.Dedup.EmittedTokenCapacity)
	assert.Equal(t, "state", cfg.State.Dir)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
whale_all_platforms = true
stablecoin_filter = ["MintX"]

[whale_copy]
wallets_file = "custom/wallets.json"
min_buy_amount = 1.0
time_window_minutes = 10
target_platform = "pump_fun"

[webhook]
port = 9000

[redis]
addr = "localhost:6379"
db = 2

[[rpc_providers]]
name = "helius"
url = "wss://stream.example"
kind = "WEBSOCKET"
weight = 3
rate_limit = 10.0

[[rpc_providers]]
url = "https://rpc.example"
kind = "HTTP"
weight = 1
priority = 1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.WhaleAllPlatforms)
	assert.Equal(t, []string{"MintX"}, cfg.StablecoinFilter)
	assert.Equal(t, "custom/wallets.json", cfg.WhaleCopy.WalletsFile)
	assert.Equal(t, "pump_fun", cfg.WhaleCopy.TargetPlatform)
	assert.Equal(t, 9000, cfg.Webhook.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5000, cfg.Dedup.SignatureCapacity)

	assert.InDelta(t, 600, cfg.TimeWindowSeconds(), 1e-9)

	endpoints := cfg.Endpoints()
	require.Len(t, endpoints, 2)
	assert.Equal(t, "helius", endpoints[0].Name)
	assert.Equal(t, domain.EndpointWebSocket, endpoints[0].Kind)
	assert.InDelta(t, 10.0, endpoints[0].RateLimit, 1e-9)
	// A nameless provider falls back to its URL.
	assert.Equal(t, "https://rpc.example", endpoints[1].Name)
	assert.Equal(t, 1, endpoints[1].Priority)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[whale_copy]
min_buy_amount = 1.0

[redis]
addr = "from-file:6379"
`)
	t.Setenv("WHALECOPY_MIN_BUY_AMOUNT", "2.5")
	t.Setenv("WHALECOPY_REDIS_ADDR", "from-env:6379")
	t.Setenv("WHALECOPY_REDIS_PASSWORD", "hunter2")
	t.Setenv("WHALECOPY_VERBOSE", "true")
	t.Setenv("WHALECOPY_WEBHOOK_PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, cfg.WhaleCopy.MinBuyAmount, 1e-9)
	assert.Equal(t, "from-env:6379", cfg.Redis.Addr)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 9999, cfg.Webhook.Port)
}

func TestLoad_UnparsableEnvValueIsIgnored(t *testing.T) {
	t.Setenv("WHALECOPY_MIN_BUY_AMOUNT", "lots")
	t.Setenv("WHALECOPY_WEBHOOK_PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, cfg.WhaleCopy.MinBuyAmount, 1e-9)
	assert.Equal(t, 8081, cfg.Webhook.Port)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing wallets file", func(c *Config) { c.WhaleCopy.WalletsFile = "" }},
		{"negative min buy", func(c *Config) { c.WhaleCopy.MinBuyAmount = -0.1 }},
		{"zero time window", func(c *Config) { c.WhaleCopy.TimeWindowMinutes = 0 }},
		{"zero signature capacity", func(c *Config) { c.Dedup.SignatureCapacity = 0 }},
		{"zero emitted capacity", func(c *Config) { c.Dedup.EmittedTokenCapacity = 0 }},
		{"port out of range", func(c *Config) { c.Webhook.Port = 70000 }},
		{"provider without url", func(c *Config) {
			c.Providers = []ProviderConfig{{Kind: "HTTP", Weight: 1}}
		}},
		{"provider with unknown kind", func(c *Config) {
			c.Providers = []ProviderConfig{{URL: "x", Kind: "CARRIER_PIGEON", Weight: 1}}
		}},
		{"provider with zero weight", func(c *Config) {
			c.Providers = []ProviderConfig{{URL: "x", Kind: "HTTP"}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	good := Defaults()
	require.NoError(t, good.Validate())
}
