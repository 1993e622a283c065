package whale

import (
	"fmt"
	"math"
	"strings"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// patternRatio — доля чистого потока от оборота, после которой картина считается направленной.
const patternRatio = 0.3

var explorers = map[string]string{
	Bitcoin:               "https://blockchain.com/btc/tx/",
	Ethereum:              "https://etherscan.io/tx/",
	"binance-smart-chain": "https://bscscan.com/tx/",
	"solana":              "https://solscan.io/tx/",
}

// Classify определяет направление перевода по типам известных кошельков. nil — неизвестный адрес.
func Classify(from, to *models.WhaleWallet) models.WhaleTxType {
	fromExchange := from != nil && from.OwnerType == models.WalletExchange
	toExchange := to != nil && to.OwnerType == models.WalletExchange

	switch {
	case !fromExchange && toExchange:
		return models.WhaleExchangeInflow
	case fromExchange && !toExchange:
		return models.WhaleExchangeOutflow
	case fromExchange && toExchange:
		return models.WhaleExchangeToExchange
	}
	return models.WhaleMovement
}

func SignificanceOf(cfg config.WhaleConfig, amountUSD float64) models.Significance {
	switch {
	case amountUSD >= cfg.CriticalUSD:
		return models.SignificanceCritical
	case amountUSD >= cfg.HighUSD:
		return models.SignificanceHigh
	case amountUSD >= cfg.MediumUSD:
		return models.SignificanceMedium
	}
	return models.SignificanceLow
}

// Alertable — уведомляем только о high и critical.
func Alertable(s models.Significance) bool {
	return s == models.SignificanceHigh || s == models.SignificanceCritical
}

func Interpret(tx *models.WhaleTransaction) string {
	amount := fmt.Sprintf("$%.1fM", tx.AmountUSD/1_000_000)

	switch tx.TransactionType {
	case models.WhaleExchangeInflow:
		return fmt.Sprintf("%s %s moved TO %s - potential sell pressure", amount, tx.Symbol, orDefault(tx.ToOwner, "exchange"))
	case models.WhaleExchangeOutflow:
		return fmt.Sprintf("%s %s moved FROM %s - accumulation signal", amount, tx.Symbol, orDefault(tx.FromOwner, "exchange"))
	case models.WhaleExchangeToExchange:
		return fmt.Sprintf("%s %s transferred between exchanges - arbitrage or liquidity management", amount, tx.Symbol)
	}
	return fmt.Sprintf("%s %s whale movement detected", amount, tx.Symbol)
}

// ExplorerURL пустой для неизвестной сети. BlockCypher отдаёт ETH-хэши без 0x.
func ExplorerURL(blockchain, txHash string) string {
	prefix, ok := explorers[blockchain]
	if !ok {
		return ""
	}
	if blockchain == Ethereum && !strings.HasPrefix(txHash, "0x") {
		txHash = "0x" + txHash
	}
	return prefix + txHash
}

// Alerts отбирает значимые переводы и оформляет их для рассылки.
func Alerts(txs []*models.WhaleTransaction) []models.WhaleAlert {
	var out []models.WhaleAlert
	for _, tx := range txs {
		if !Alertable(tx.Significance) {
			continue
		}
		out = append(out, models.WhaleAlert{
			TxHash:     tx.TxHash,
			Symbol:     tx.Symbol,
			Blockchain: tx.Blockchain,
			Amount:     tx.Amount,
			AmountUSD:  tx.AmountUSD,
			From: models.WhaleParty{
				Address: tx.FromAddress,
				Owner:   orDefault(tx.FromOwner, "Unknown"),
				Type:    orDefault(tx.FromType, "unknown"),
			},
			To: models.WhaleParty{
				Address: tx.ToAddress,
				Owner:   orDefault(tx.ToOwner, "Unknown"),
				Type:    orDefault(tx.ToType, "unknown"),
			},
			TransactionType: tx.TransactionType,
			Significance:    tx.Significance,
			Interpretation:  Interpret(tx),
			Timestamp:       tx.Timestamp.UnixMilli(),
			ExplorerURL:     ExplorerURL(tx.Blockchain, tx.TxHash),
		})
	}
	return out
}

// DetectPattern сравнивает отток с бирж с притоком. Отток — накопление, приток — распределение.
func DetectPattern(symbol string, txs []*models.WhaleTransaction) models.WhalePattern {
	p := models.WhalePattern{Symbol: symbol, Pattern: models.PatternNeutral, Transactions: len(txs)}

	for _, tx := range txs {
		switch tx.TransactionType {
		case models.WhaleExchangeInflow:
			p.Inflow += tx.AmountUSD
		case models.WhaleExchangeOutflow:
			p.Outflow += tx.AmountUSD
		}
	}

	p.NetFlow = p.Outflow - p.Inflow
	var ratio float64
	if total := p.Inflow + p.Outflow; total > 0 {
		ratio = p.NetFlow / total
	}

	switch {
	case ratio > patternRatio:
		p.Pattern = models.PatternAccumulation
		p.Confidence = math.Min(ratio*100, 100)
		p.Reasoning = []string{
			fmt.Sprintf("Strong outflow from exchanges ($%.1fM)", p.Outflow/1_000_000),
			"Whales withdrawing to cold storage - bullish accumulation",
		}
	case ratio < -patternRatio:
		p.Pattern = models.PatternDistribution
		p.Confidence = math.Min(-ratio*100, 100)
		p.Reasoning = []string{
			fmt.Sprintf("Strong inflow to exchanges ($%.1fM)", p.Inflow/1_000_000),
			"Whales moving to exchanges - potential sell pressure",
		}
	default:
		p.Reasoning = []string{"Balanced whale activity - no clear directional bias"}
	}
	return p
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
