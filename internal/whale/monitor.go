package whale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/internal/storage"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// Source помечает переводы, найденные через публичные эксплореры.
const Source = "blockchain-api"

// PriceSource оценивает переводы в долларах.
type PriceSource interface {
	Price(ctx context.Context, exchange, symbol string) (float64, error)
}

type Publisher interface {
	PublishWhale(ctx context.Context, event models.WhaleEvent)
}

// Monitor опрашивает сети, сохраняет новые крупные переводы и рассылает значимые.
type Monitor struct {
	config    config.WhaleConfig
	chains    []Chain
	store     storage.WhaleStore
	prices    PriceSource
	publisher Publisher
	now       func() time.Time
}

// NewMonitor собирает монитор. publisher может быть nil.
func NewMonitor(cfg config.WhaleConfig, store storage.WhaleStore, prices PriceSource, publisher Publisher, chains ...Chain) *Monitor {
	return &Monitor{
		config:    cfg,
		chains:    chains,
		store:     store,
		prices:    prices,
		publisher: publisher,
		now:       time.Now,
	}
}

// SeedWallets заносит известные кошельки из конфига в справочник.
func (m *Monitor) SeedWallets(ctx context.Context) error {
	for _, w := range m.config.Wallets {
		wallet := models.WhaleWallet{
			Address:    normalizeAddress(w.Blockchain, w.Address),
			Blockchain: w.Blockchain,
			OwnerName:  w.Owner,
			OwnerType:  w.Type,
		}
		if err := m.store.UpsertWallet(ctx, wallet); err != nil {
			return fmt.Errorf("seed wallet %s: %w", w.Address, err)
		}
	}
	return nil
}

// Run — точка входа для планировщика.
func (m *Monitor) Run(ctx context.Context) error {
	txs, err := m.Poll(ctx)
	if err != nil {
		return err
	}

	if alerts := Alerts(txs); len(alerts) > 0 && m.publisher != nil {
		m.publisher.PublishWhale(ctx, models.WhaleEvent{Alerts: alerts, Timestamp: m.now()})
	}

	for _, chain := range m.chains {
		p, err := m.Pattern(ctx, chain.Symbol())
		if err != nil {
			logger.Warn("failed to detect whale pattern", zap.String("symbol", chain.Symbol()), zap.Error(err))
			continue
		}
		logger.Info("whale flow",
			zap.String("symbol", p.Symbol),
			zap.String("pattern", string(p.Pattern)),
			zap.Float64("confidence", p.Confidence),
			zap.Float64("net_flow_usd", p.NetFlow),
			zap.Int("transactions", p.Transactions))
	}
	return nil
}

// Poll проходит по всем сетям и возвращает только впервые увиденные переводы.
// Упавшая сеть пропускается; ошибка возвращается, только если упали все.
func (m *Monitor) Poll(ctx context.Context) ([]*models.WhaleTransaction, error) {
	var (
		fresh  []*models.WhaleTransaction
		failed int
	)

	for _, chain := range m.chains {
		if err := ctx.Err(); err != nil {
			return fresh, err
		}

		txs, err := m.pollChain(ctx, chain)
		if err != nil {
			failed++
			logger.Warn("whale poll failed", zap.String("chain", chain.Name()), zap.Error(err))
			continue
		}
		fresh = append(fresh, txs...)
	}

	if len(m.chains) > 0 && failed == len(m.chains) {
		return nil, fmt.Errorf("%w: every blockchain source failed", models.ErrDataUnavailable)
	}

	logger.Debug("whale poll finished", zap.Int("new", len(fresh)), zap.Int("failed_chains", failed))
	return fresh, nil
}

func (m *Monitor) pollChain(ctx context.Context, chain Chain) ([]*models.WhaleTransaction, error) {
	transfers, err := chain.LargeTransfers(ctx)
	if err != nil {
		return nil, err
	}
	if len(transfers) == 0 {
		return nil, nil
	}

	pair := chain.Symbol() + "/" + m.config.QuoteAsset
	price, err := m.prices.Price(ctx, m.config.PriceExchange, pair)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", pair, err)
	}

	var out []*models.WhaleTransaction
	for _, t := range transfers {
		t.AmountUSD = t.Amount * price
		if t.AmountUSD < m.config.MinTransactionUSD {
			continue
		}

		exists, err := m.store.WhaleTransactionExists(ctx, t.Hash)
		if err != nil {
			logger.Error("failed to check whale transaction", zap.String("hash", t.Hash), zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		tx := m.classify(ctx, t)
		created, err := m.store.SaveWhaleTransaction(ctx, tx)
		if err != nil {
			logger.Error("failed to save whale transaction", zap.String("hash", t.Hash), zap.Error(err))
			continue
		}
		if !created {
			continue
		}

		logger.Info("whale transaction detected",
			zap.String("symbol", tx.Symbol),
			zap.Float64("amount_usd", tx.AmountUSD),
			zap.String("type", string(tx.TransactionType)),
			zap.String("significance", string(tx.Significance)))
		out = append(out, tx)
	}
	return out, nil
}

func (m *Monitor) classify(ctx context.Context, t models.WhaleTransfer) *models.WhaleTransaction {
	from := m.identify(ctx, t.From, t.Blockchain)
	to := m.identify(ctx, t.To, t.Blockchain)

	timestamp := t.Timestamp
	if timestamp.IsZero() {
		timestamp = m.now()
	}

	tx := &models.WhaleTransaction{
		TxHash:          t.Hash,
		Blockchain:      t.Blockchain,
		Symbol:          t.Symbol,
		Amount:          t.Amount,
		AmountUSD:       t.AmountUSD,
		FromAddress:     t.From,
		ToAddress:       t.To,
		Timestamp:       timestamp,
		BlockNumber:     t.BlockNumber,
		Confirmations:   t.Confirmations,
		TransactionType: Classify(from, to),
		Significance:    SignificanceOf(m.config, t.AmountUSD),
		Source:          Source,
	}
	if from != nil {
		tx.FromOwner, tx.FromType = from.OwnerName, from.OwnerType
	}
	if to != nil {
		tx.ToOwner, tx.ToType = to.OwnerName, to.OwnerType
	}
	return tx
}

// identify ищет владельца адреса и отмечает активность кошелька. Ошибки хранилища не фатальны.
func (m *Monitor) identify(ctx context.Context, address, blockchain string) *models.WhaleWallet {
	if address == "" || address == unknownAddress {
		return nil
	}

	address = normalizeAddress(blockchain, address)
	wallet, err := m.store.FindWallet(ctx, address, blockchain)
	if err != nil {
		logger.Warn("wallet lookup failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	if wallet == nil {
		return nil
	}

	if err := m.store.TouchWallet(ctx, address, blockchain, m.now()); err != nil {
		logger.Warn("failed to update wallet activity", zap.String("address", address), zap.Error(err))
	}
	return wallet
}

// normalizeAddress приводит ETH-адреса к виду BlockCypher: нижний регистр без 0x.
func normalizeAddress(blockchain, address string) string {
	if blockchain != Ethereum {
		return address
	}
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X"))
}

// Pattern считает картину потоков за pattern_hours.
func (m *Monitor) Pattern(ctx context.Context, symbol string) (models.WhalePattern, error) {
	since := m.now().Add(-time.Duration(m.config.PatternHours) * time.Hour)
	txs, err := m.store.RecentWhaleTransactions(ctx, symbol, since)
	if err != nil {
		return models.WhalePattern{}, fmt.Errorf("recent whale transactions: %w", err)
	}
	return DetectPattern(symbol, txs), nil
}
