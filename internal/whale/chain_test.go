package whale

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

const rawBlockB1 = `{"tx": [
  {"hash": "big", "time": 1710068400,
   "inputs": [{"prev_out": {"addr": "bc1-cold"}}],
   "out": [{"value": 15000000000, "addr": "bc1-binance"}, {"value": 500000000, "addr": "bc1-change"}]},
  {"hash": "small", "time": 1710068400,
   "inputs": [{"prev_out": {"addr": "bc1-a"}}],
   "out": [{"value": 100000000, "addr": "bc1-b"}]},
  {"hash": "coinbase", "time": 1710068460,
   "inputs": [{}],
   "out": [{"value": 20000000000}]}
]}`

type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *requestLog) has(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.paths {
		if p == path {
			return true
		}
	}
	return false
}

func bitcoinServer(t *testing.T, log *requestLog) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/blocks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, `[{"hash":"b1","height":840001},{"hash":"b2","height":840000},{"hash":"b3","height":839999},{"hash":"b4","height":839998}]`)
	})
	mux.HandleFunc("/rawblock/", func(w http.ResponseWriter, r *http.Request) {
		hash := strings.TrimPrefix(r.URL.Path, "/rawblock/")
		log.add(hash)
		switch hash {
		case "b1":
			fmt.Fprint(w, rawBlockB1)
		case "b2":
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		default:
			fmt.Fprint(w, `{"tx": []}`)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBitcoinClientLargeTransfers(t *testing.T) {
	log := &requestLog{}
	srv := bitcoinServer(t, log)

	cfg := config.DefaultWhale().Bitcoin
	cfg.APIURL = srv.URL + "/"
	client := NewBitcoinClient(cfg, 5*time.Second)

	transfers, err := client.LargeTransfers(context.Background())
	require.NoError(t, err)
	require.Len(t, transfers, 2)

	big := transfers[0]
	assert.Equal(t, "big", big.Hash)
	assert.Equal(t, Bitcoin, big.Blockchain)
	assert.Equal(t, "BTC", big.Symbol)
	assert.InDelta(t, 155, big.Amount, 1e-9)
	assert.Equal(t, "bc1-cold", big.From)
	assert.Equal(t, "bc1-binance", big.To)
	assert.Equal(t, int64(840001), big.BlockNumber)
	assert.True(t, big.Timestamp.Equal(time.Unix(1710068400, 0)))

	coinbase := transfers[1]
	assert.Equal(t, "coinbase", coinbase.Hash)
	assert.Equal(t, unknownAddress, coinbase.From)
	assert.Equal(t, unknownAddress, coinbase.To)

	assert.True(t, log.has("b3"), "a failing block does not stop the scan")
	assert.False(t, log.has("b4"), "only the configured number of blocks is read")
}

func TestBitcoinClientLatestBlocksFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultWhale().Bitcoin
	cfg.APIURL = srv.URL
	_, err := NewBitcoinClient(cfg, time.Second).LargeTransfers(context.Background())

	require.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "http 503")
}

func TestEthereumClientLargeTransfers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/eth/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"ETH.main","height":100}`)
	})
	mux.HandleFunc("/v1/eth/main/blocks/100", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"height":100,"txs":[
		  {"hash":"0xwhale","total":2000000000000000000000,"confirmed":"2024-03-10T11:00:00Z","confirmations":3,
		   "inputs":[{"addresses":["0xfrom"]}],"outputs":[{"addresses":["0xto"]}]},
		  {"hash":"0xminnow","total":500000000000000000000,"confirmed":"2024-03-10T11:00:00Z",
		   "inputs":[{"addresses":["0xa"]}],"outputs":[{"addresses":["0xb"]}]}
		]}`)
	})
	mux.HandleFunc("/v1/eth/main/blocks/99", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"height":99,"txs":[
		  {"hash":"0xcontract","total":1500000000000000000000,"confirmed":"2024-03-10T10:59:48Z",
		   "inputs":[],"outputs":[{"addresses":[]}]}
		]}`)
	})
	mux.HandleFunc("/v1/eth/main/blocks/98", func(w http.ResponseWriter, r *http.Request) {
		t.Error("block 98 is outside the configured window")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.DefaultWhale().Ethereum
	cfg.APIURL = srv.URL
	transfers, err := NewEthereumClient(cfg, 5*time.Second).LargeTransfers(context.Background())
	require.NoError(t, err)
	require.Len(t, transfers, 2)

	whale := transfers[0]
	assert.Equal(t, "0xwhale", whale.Hash)
	assert.Equal(t, "ETH", whale.Symbol)
	assert.InDelta(t, 2000, whale.Amount, 1e-9)
	assert.Equal(t, "0xfrom", whale.From)
	assert.Equal(t, "0xto", whale.To)
	assert.Equal(t, int64(100), whale.BlockNumber)
	assert.Equal(t, int64(3), whale.Confirmations)
	assert.True(t, whale.Timestamp.Equal(time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)))

	contract := transfers[1]
	assert.Equal(t, unknownAddress, contract.From)
	assert.Equal(t, unknownAddress, contract.To)
	assert.Equal(t, int64(99), contract.BlockNumber)
}

func TestChainsFollowConfig(t *testing.T) {
	cfg := config.DefaultWhale()
	chains := Chains(cfg)
	require.Len(t, chains, 2)
	assert.Equal(t, Bitcoin, chains[0].Name())
	assert.Equal(t, Ethereum, chains[1].Name())

	cfg.Bitcoin.Enabled = false
	chains = Chains(cfg)
	require.Len(t, chains, 1)
	assert.Equal(t, "ETH", chains[0].Symbol())
}
