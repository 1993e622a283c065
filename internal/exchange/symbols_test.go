package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skalibog/cryptopulse/pkg/models"
)

func TestBaseAsset(t *testing.T) {
	tests := map[string]string{
		"BTC/USDT":  "BTC",
		"eth/usdt":  "ETH",
		"SOLUSDT":   "SOL",
		"DOGEUSDC":  "DOGE",
		"BTCUSD":    "BTC",
		"USDT":      "USDT",
		" XRP/BTC ": "XRP",
	}
	for in, want := range tests {
		assert.Equal(t, want, BaseAsset(in), in)
	}
}

func TestExchangeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", ExchangeSymbol("BTC/USDT"))
	assert.Equal(t, "ETHUSDT", ExchangeSymbol("eth/usdt"))
	assert.Equal(t, "SOLUSDT", ExchangeSymbol("SOLUSDT"))
}

func TestValidateSymbol(t *testing.T) {
	for _, ok := range []string{"BTC/USDT", "BTCUSDT"} {
		assert.NoError(t, ValidateSymbol(ok), ok)
	}
	for _, bad := range []string{"", "  ", "BTC/", "/USDT", "A/B/C"} {
		assert.ErrorIs(t, ValidateSymbol(bad), models.ErrInvalidParameter, bad)
	}
}

func TestValidateTimeframe(t *testing.T) {
	assert.NoError(t, ValidateTimeframe("4h"))
	assert.ErrorIs(t, ValidateTimeframe("2h"), models.ErrInvalidParameter)
}
