package whale

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

const (
	Bitcoin  = "bitcoin"
	Ethereum = "ethereum"

	unknownAddress = "Unknown"
	satoshi        = 1e8
	wei            = 1e18
)

// Chain отдаёт крупные переводы из последних блоков. AmountUSD не заполняется.
type Chain interface {
	Name() string
	Symbol() string
	LargeTransfers(ctx context.Context) ([]models.WhaleTransfer, error)
}

// getJSON выполняет GET и декодирует тело. Не-2xx ответ считается ошибкой.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cryptopulse/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return sonic.Unmarshal(body, out)
}

// BitcoinClient читает блоки через API blockchain.info.
type BitcoinClient struct {
	http      *http.Client
	baseURL   string
	minAmount float64
	blocks    int
}

func NewBitcoinClient(cfg config.ChainConfig, timeout time.Duration) *BitcoinClient {
	return &BitcoinClient{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.APIURL, "/"),
		minAmount: cfg.MinAmount,
		blocks:    cfg.Blocks,
	}
}

func (c *BitcoinClient) Name() string   { return Bitcoin }
func (c *BitcoinClient) Symbol() string { return "BTC" }

type btcBlockRef struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
}

type btcRawBlock struct {
	Tx []struct {
		Hash   string `json:"hash"`
		Time   int64  `json:"time"`
		Inputs []struct {
			PrevOut *struct {
				Addr string `json:"addr"`
			} `json:"prev_out"`
		} `json:"inputs"`
		Out []struct {
			Value int64  `json:"value"`
			Addr  string `json:"addr"`
		} `json:"out"`
	} `json:"tx"`
}

// LargeTransfers суммирует выходы каждой транзакции и оставляет те, что не меньше min_amount BTC.
// Ошибка одного блока логируется и не прерывает обход.
func (c *BitcoinClient) LargeTransfers(ctx context.Context) ([]models.WhaleTransfer, error) {
	var refs []btcBlockRef
	if err := getJSON(ctx, c.http, c.baseURL+"/blocks?format=json", &refs); err != nil {
		return nil, fmt.Errorf("%w: bitcoin latest blocks: %v", models.ErrDataUnavailable, err)
	}
	if len(refs) > c.blocks {
		refs = refs[:c.blocks]
	}

	var out []models.WhaleTransfer
	for _, ref := range refs {
		var block btcRawBlock
		if err := getJSON(ctx, c.http, c.baseURL+"/rawblock/"+ref.Hash+"?format=json", &block); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			logger.Warn("failed to fetch bitcoin block", zap.String("hash", ref.Hash), zap.Error(err))
			continue
		}

		for _, tx := range block.Tx {
			var total int64
			for _, o := range tx.Out {
				total += o.Value
			}
			amount := float64(total) / satoshi
			if amount < c.minAmount {
				continue
			}

			from, to := unknownAddress, unknownAddress
			if len(tx.Inputs) > 0 && tx.Inputs[0].PrevOut != nil && tx.Inputs[0].PrevOut.Addr != "" {
				from = tx.Inputs[0].PrevOut.Addr
			}
			if len(tx.Out) > 0 && tx.Out[0].Addr != "" {
				to = tx.Out[0].Addr
			}

			out = append(out, models.WhaleTransfer{
				Hash:        tx.Hash,
				Blockchain:  Bitcoin,
				Symbol:      c.Symbol(),
				From:        from,
				To:          to,
				Amount:      amount,
				Timestamp:   time.Unix(tx.Time, 0).UTC(),
				BlockNumber: ref.Height,
			})
		}
	}
	return out, nil
}

// EthereumClient читает блоки через API BlockCypher.
type EthereumClient struct {
	http      *http.Client
	baseURL   string
	minAmount float64
	blocks    int
}

func NewEthereumClient(cfg config.ChainConfig, timeout time.Duration) *EthereumClient {
	return &EthereumClient{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.APIURL, "/") + "/v1/eth/main",
		minAmount: cfg.MinAmount,
		blocks:    cfg.Blocks,
	}
}

func (c *EthereumClient) Name() string   { return Ethereum }
func (c *EthereumClient) Symbol() string { return "ETH" }

type ethChainInfo struct {
	Height int64 `json:"height"`
}

type ethAddresses struct {
	Addresses []string `json:"addresses"`
}

type ethBlock struct {
	Height int64 `json:"height"`
	Txs    []struct {
		Hash          string         `json:"hash"`
		Total         float64        `json:"total"`
		Confirmed     time.Time      `json:"confirmed"`
		Confirmations int64          `json:"confirmations"`
		Inputs        []ethAddresses `json:"inputs"`
		Outputs       []ethAddresses `json:"outputs"`
	} `json:"txs"`
}

// LargeTransfers берёт последние blocks блоков от текущей высоты; total приходит в wei.
func (c *EthereumClient) LargeTransfers(ctx context.Context) ([]models.WhaleTransfer, error) {
	var info ethChainInfo
	if err := getJSON(ctx, c.http, c.baseURL, &info); err != nil {
		return nil, fmt.Errorf("%w: ethereum chain height: %v", models.ErrDataUnavailable, err)
	}

	var out []models.WhaleTransfer
	for i := 0; i < c.blocks; i++ {
		height := info.Height - int64(i)
		url := fmt.Sprintf("%s/blocks/%d?txstart=0&limit=50", c.baseURL, height)

		var block ethBlock
		if err := getJSON(ctx, c.http, url, &block); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			logger.Warn("failed to fetch ethereum block", zap.Int64("height", height), zap.Error(err))
			continue
		}

		for _, tx := range block.Txs {
			amount := tx.Total / wei
			if amount < c.minAmount {
				continue
			}

			out = append(out, models.WhaleTransfer{
				Hash:          tx.Hash,
				Blockchain:    Ethereum,
				Symbol:        c.Symbol(),
				From:          firstAddress(tx.Inputs),
				To:            firstAddress(tx.Outputs),
				Amount:        amount,
				Timestamp:     tx.Confirmed.UTC(),
				BlockNumber:   height,
				Confirmations: tx.Confirmations,
			})
		}
	}
	return out, nil
}

func firstAddress(parts []ethAddresses) string {
	if len(parts) == 0 || len(parts[0].Addresses) == 0 || parts[0].Addresses[0] == "" {
		return unknownAddress
	}
	return parts[0].Addresses[0]
}

// Chains собирает включённые в конфиге клиенты.
func Chains(cfg config.WhaleConfig) []Chain {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	var chains []Chain
	if cfg.Bitcoin.Enabled {
		chains = append(chains, NewBitcoinClient(cfg.Bitcoin, timeout))
	}
	if cfg.Ethereum.Enabled {
		chains = append(chains, NewEthereumClient(cfg.Ethereum, timeout))
	}
	return chains
}
