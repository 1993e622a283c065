package exchange

import (
	"fmt"
	"strings"

	"github.com/skalibog/cryptopulse/pkg/models"
)

const Binance = "BINANCE"

var supportedTimeframes = map[string]struct{}{
	"1m": {}, "5m": {}, "15m": {}, "30m": {}, "1h": {}, "4h": {}, "1d": {},
}

var quoteAssets = []string{"USDT", "USDC", "BUSD", "FDUSD", "USD"}

// ValidateTimeframe отклоняет таймфреймы, которые движок не анализирует
func ValidateTimeframe(timeframe string) error {
	if _, ok := supportedTimeframes[timeframe]; !ok {
		return fmt.Errorf("%w: unsupported timeframe %q", models.ErrInvalidParameter, timeframe)
	}
	return nil
}

// NormalizeExchange приводит имя биржи к верхнему регистру
func NormalizeExchange(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// ValidateSymbol принимает BASE/QUOTE или слитный символ биржи
func ValidateSymbol(symbol string) error {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return fmt.Errorf("%w: empty symbol", models.ErrInvalidParameter)
	}
	if strings.Count(s, "/") > 1 {
		return fmt.Errorf("%w: malformed symbol %q", models.ErrInvalidParameter, symbol)
	}
	if base, quote, ok := strings.Cut(s, "/"); ok && (base == "" || quote == "") {
		return fmt.Errorf("%w: malformed symbol %q", models.ErrInvalidParameter, symbol)
	}
	return nil
}

// ExchangeSymbol превращает BTC/USDT в слитный вид, который ждут биржи
func ExchangeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", ""))
}

// BaseAsset возвращает базовый актив пары: BTC для BTC/USDT и для BTCUSDT
func BaseAsset(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if base, _, ok := strings.Cut(s, "/"); ok {
		return base
	}
	for _, quote := range quoteAssets {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}
