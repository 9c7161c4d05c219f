package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// FromEnv starts from Default(), optionally overlays a .env file (loaded
// with godotenv), then overlays recognized environment variables. It is
// intended for the demo driver only — library consumers always use New or
// Default directly and call submit/run_until through the in-process API.
func FromEnv(envPath string) (Config, error) {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()

	if v := os.Getenv("TICK_SIZE"); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil || i <= 0 {
			return Config{}, fmt.Errorf("config: TICK_SIZE must be a positive integer, got %q", v)
		}
		cfg.TickSize = i
	}
	if v := os.Getenv("SELF_TRADE_POLICY"); v != "" {
		policy, err := parsePolicy(v)
		if err != nil {
			return Config{}, err
		}
		cfg.SelfTradePolicy = policy
	}
	if v := os.Getenv("ALLOW_MARKET_ORDERS"); v != "" {
		cfg.AllowMarketOrders = v == "true" || v == "1"
	}
	if v := os.Getenv("MAX_STOP_CASCADE_DEPTH"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			return Config{}, fmt.Errorf("config: MAX_STOP_CASCADE_DEPTH must be a non-negative integer, got %q", v)
		}
		cfg.MaxStopCascadeDepth = i
	}
	if v := os.Getenv("ICEBERG_REFRESH_DELAY"); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil || i < 0 {
			return Config{}, fmt.Errorf("config: ICEBERG_REFRESH_DELAY must be a non-negative integer, got %q", v)
		}
		cfg.IcebergRefreshDelay = i
	}
	if v := os.Getenv("IMPACT_ETA"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: IMPACT_ETA must be a number, got %q", v)
		}
		cfg.ImpactEta = f
	}
	if v := os.Getenv("IMPACT_GAMMA"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: IMPACT_GAMMA must be a number, got %q", v)
		}
		cfg.ImpactGamma = f
	}
	if v := os.Getenv("IMPACT_ADV"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: IMPACT_ADV must be a number, got %q", v)
		}
		cfg.ImpactADV = f
	}
	if v := os.Getenv("IMPACT_DECAY_HALF_LIFE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: IMPACT_DECAY_HALF_LIFE must be a number, got %q", v)
		}
		cfg.ImpactDecayHalfLife = f
	}

	return cfg, nil
}
