// Package config defines the simulator's single configuration object, with
// strict recognized-key validation: unknown keys are rejected at
// construction rather than silently ignored.
package config

import (
	"fmt"

	"github.com/jrajath94/orderbook-simulator/book"
)

// Config is the complete set of knobs the simulator accepts. Library
// consumers build one directly (it has sane zero-adjacent defaults via
// Default()) or through New(map[string]any) when the source is untyped
// data such as a parsed file.
type Config struct {
	TickSize            int64
	SelfTradePolicy     book.SelfTradePolicy
	AllowMarketOrders   bool
	MaxStopCascadeDepth int

	// IcebergRefreshDelay is the number of logical-time units to wait after
	// a displayed iceberg slice is consumed before scheduling the next
	// slice's refresh event.
	IcebergRefreshDelay int64

	// Impact parameters feed the Almgren-Chriss decomposition in the
	// impact package.
	ImpactEta           float64
	ImpactGamma         float64
	ImpactADV           float64
	ImpactDecayHalfLife float64
}

// Default returns a Config with reasonable baseline values: one-tick
// granularity, CANCEL_OLDEST self-trade prevention, market orders allowed,
// and a shallow stop cascade guard.
func Default() Config {
	return Config{
		TickSize:            1,
		SelfTradePolicy:     book.STPCancelOldest,
		AllowMarketOrders:   true,
		MaxStopCascadeDepth: 5,
		IcebergRefreshDelay: 1,
		ImpactEta:           0.1,
		ImpactGamma:         0.1,
		ImpactADV:           1_000_000,
		ImpactDecayHalfLife: 10,
	}
}

// recognizedKeys is the complete set of top-level keys New accepts. Any key
// in the input map that is not here causes New to fail: unknown keys are
// rejected at construction rather than silently ignored.
var recognizedKeys = map[string]struct{}{
	"tick_size":              {},
	"self_trade_policy":      {},
	"allow_market_orders":    {},
	"max_stop_cascade_depth": {},
	"iceberg_refresh_delay":  {},
	"impact_eta":             {},
	"impact_gamma":           {},
	"impact_adv":             {},
	"impact_decay_half_life": {},
}

// UnknownKeyError names the offending key from a rejected New call.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("config: unknown key %q", e.Key)
}

// New builds a Config from an untyped map, starting from Default() and
// overriding only the keys present. It rejects any key not in
// recognizedKeys instead of ignoring it.
func New(raw map[string]any) (Config, error) {
	for k := range raw {
		if _, ok := recognizedKeys[k]; !ok {
			return Config{}, &UnknownKeyError{Key: k}
		}
	}

	cfg := Default()

	if v, ok := raw["tick_size"]; ok {
		i, err := asInt64(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: tick_size: %w", err)
		}
		if i <= 0 {
			return Config{}, fmt.Errorf("config: tick_size must be positive, got %d", i)
		}
		cfg.TickSize = i
	}
	if v, ok := raw["self_trade_policy"]; ok {
		policy, err := parsePolicy(v)
		if err != nil {
			return Config{}, err
		}
		cfg.SelfTradePolicy = policy
	}
	if v, ok := raw["allow_market_orders"]; ok {
		b, ok := v.(bool)
		if !ok {
			return Config{}, fmt.Errorf("config: allow_market_orders must be a bool")
		}
		cfg.AllowMarketOrders = b
	}
	if v, ok := raw["max_stop_cascade_depth"]; ok {
		i, err := asInt64(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: max_stop_cascade_depth: %w", err)
		}
		if i < 0 {
			return Config{}, fmt.Errorf("config: max_stop_cascade_depth must be >= 0, got %d", i)
		}
		cfg.MaxStopCascadeDepth = int(i)
	}
	if v, ok := raw["iceberg_refresh_delay"]; ok {
		i, err := asInt64(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: iceberg_refresh_delay: %w", err)
		}
		if i < 0 {
			return Config{}, fmt.Errorf("config: iceberg_refresh_delay must be >= 0, got %d", i)
		}
		cfg.IcebergRefreshDelay = i
	}
	if v, ok := raw["impact_eta"]; ok {
		f, err := asFloat64(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: impact_eta: %w", err)
		}
		cfg.ImpactEta = f
	}
	if v, ok := raw["impact_gamma"]; ok {
		f, err := asFloat64(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: impact_gamma: %w", err)
		}
		cfg.ImpactGamma = f
	}
	if v, ok := raw["impact_adv"]; ok {
		f, err := asFloat64(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: impact_adv: %w", err)
		}
		cfg.ImpactADV = f
	}
	if v, ok := raw["impact_decay_half_life"]; ok {
		f, err := asFloat64(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: impact_decay_half_life: %w", err)
		}
		cfg.ImpactDecayHalfLife = f
	}

	return cfg, nil
}

func parsePolicy(v any) (book.SelfTradePolicy, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("config: self_trade_policy must be a string")
	}
	switch s {
	case "CANCEL_OLDEST":
		return book.STPCancelOldest, nil
	case "CANCEL_NEWEST":
		return book.STPCancelNewest, nil
	case "REJECT_TAKER":
		return book.STPRejectTaker, nil
	default:
		return 0, fmt.Errorf("config: self_trade_policy: unrecognized value %q", s)
	}
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
