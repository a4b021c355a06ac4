package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WHALECOPY_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
// An empty path skips the file and uses defaults plus env overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WHALECOPY_* environment variables
// and overwrites the corresponding Config fields when a variable is set.
// This lets operators inject secrets at deploy time without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	setBool(&cfg.WhaleCopy.Enabled, "WHALECOPY_ENABLED")
	setStr(&cfg.WhaleCopy.WalletsFile, "WHALECOPY_WALLETS_FILE")
	setFloat64(&cfg.WhaleCopy.MinBuyAmount, "WHALECOPY_MIN_BUY_AMOUNT")
	setInt(&cfg.WhaleCopy.TimeWindowMinutes, "WHALECOPY_TIME_WINDOW_MINUTES")
	setStr(&cfg.WhaleCopy.TargetPlatform, "WHALECOPY_TARGET_PLATFORM")
	setBool(&cfg.WhaleAllPlatforms, "WHALECOPY_ALL_PLATFORMS")

	setInt(&cfg.Webhook.Port, "WHALECOPY_WEBHOOK_PORT")

	setInt(&cfg.Dedup.SignatureCapacity, "WHALECOPY_DEDUP_SIGNATURE_CAPACITY")
	setInt(&cfg.Dedup.EmittedTokenCapacity, "WHALECOPY_DEDUP_EMITTED_TOKEN_CAPACITY")

	setStr(&cfg.Redis.Addr, "WHALECOPY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WHALECOPY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WHALECOPY_REDIS_DB")

	setStr(&cfg.State.Dir, "WHALECOPY_STATE_DIR")
	setBool(&cfg.Verbose, "WHALECOPY_VERBOSE")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
