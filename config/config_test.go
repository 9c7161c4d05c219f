package config

import (
	"testing"

	"github.com/jrajath94/orderbook-simulator/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownKey(t *testing.T) {
	_, err := New(map[string]any{"tick_size": 5, "bogus_key": true})
	require.Error(t, err)
	var uke *UnknownKeyError
	require.ErrorAs(t, err, &uke)
	assert.Equal(t, "bogus_key", uke.Key)
}

func TestNewOverridesOnlyGivenKeys(t *testing.T) {
	cfg, err := New(map[string]any{"tick_size": 5, "self_trade_policy": "REJECT_TAKER"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), cfg.TickSize)
	assert.Equal(t, book.STPRejectTaker, cfg.SelfTradePolicy)
	assert.True(t, cfg.AllowMarketOrders, "unspecified keys should keep Default()'s value")
}

func TestNewRejectsNonPositiveTickSize(t *testing.T) {
	_, err := New(map[string]any{"tick_size": 0})
	require.Error(t, err)
}

func TestNewRejectsUnrecognizedPolicy(t *testing.T) {
	_, err := New(map[string]any{"self_trade_policy": "CANCEL_EVERYTHING"})
	require.Error(t, err)
}

func TestDefaultIsInternallyConsistent(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.TickSize, int64(0))
	assert.GreaterOrEqual(t, cfg.MaxStopCascadeDepth, 0)
}
