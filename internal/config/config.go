package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"berrydex/internal/market"
)

type APIConfig struct {
	Addr          string
	DatabaseURL   string
	DevMode       bool // in-memory store, no database required
	SeedCatalog   bool
	SnapshotEvery time.Duration
	RatePerSecond float64
	RateBurst     int
	Market        market.MarketConfig
}

type CLIConfig struct {
	APIBaseURL string
}

// LoadAPIFromEnv reads the server configuration from the environment. The
// market defaults can be overridden by a YAML file named in
// BERRYDEX_CONFIG.
func LoadAPIFromEnv() (APIConfig, error) {
	addr := strings.TrimSpace(os.Getenv("PORT"))
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("BERRYDEX_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:          addr,
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DevMode:       envBoolDefault("BERRYDEX_DEV_MODE", false),
		SeedCatalog:   envBoolDefault("BERRYDEX_SEED_CATALOG", true),
		SnapshotEvery: envDurationDefault("BERRYDEX_SNAPSHOT_EVERY", 5*time.Minute),
		RatePerSecond: envFloatDefault("BERRYDEX_RATE_PER_SECOND", 10),
		RateBurst:     envIntDefault("BERRYDEX_RATE_BURST", 20),
		Market:        market.DefaultMarketConfig(),
	}
	if path := strings.TrimSpace(os.Getenv("BERRYDEX_CONFIG")); path != "" {
		if err := applyMarketFile(&cfg.Market, path); err != nil {
			return cfg, err
		}
	}
	if cfg.DatabaseURL == "" && !cfg.DevMode {
		return cfg, fmt.Errorf("DATABASE_URL is required (or set BERRYDEX_DEV_MODE=true)")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("BDX_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

// marketFile mirrors the MarketConfig fields in their documented units.
type marketFile struct {
	MinTradeShares       *int64   `yaml:"min_trade_shares"`
	MaxTradeShares       *int64   `yaml:"max_trade_shares"`
	TradeCooldownSeconds *int64   `yaml:"trade_cooldown_seconds"`
	StartingBerries      *float64 `yaml:"starting_berries_balance"`
	PriceImpactPerShare  *float64 `yaml:"price_impact_per_share"`
}

func applyMarketFile(cfg *market.MarketConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read market config: %w", err)
	}
	var file marketFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse market config: %w", err)
	}
	if file.MinTradeShares != nil {
		cfg.MinTradeShares = *file.MinTradeShares
	}
	if file.MaxTradeShares != nil {
		cfg.MaxTradeShares = *file.MaxTradeShares
	}
	if file.TradeCooldownSeconds != nil {
		cfg.TradeCooldown = time.Duration(*file.TradeCooldownSeconds) * time.Second
	}
	if file.StartingBerries != nil {
		cfg.StartingBalanceCents = market.BerriesToCents(*file.StartingBerries)
	}
	if file.PriceImpactPerShare != nil {
		cfg.PriceImpactPerShare = *file.PriceImpactPerShare
	}
	if cfg.MinTradeShares < 1 || cfg.MaxTradeShares < cfg.MinTradeShares {
		return fmt.Errorf("market config: invalid share limits (min %d, max %d)", cfg.MinTradeShares, cfg.MaxTradeShares)
	}
	if cfg.PriceImpactPerShare < 0 {
		return fmt.Errorf("market config: price impact must be non-negative")
	}
	return nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
