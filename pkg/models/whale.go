package models

import "time"

// WhaleTxType — направление крупного перевода относительно бирж.
type WhaleTxType string

const (
	WhaleExchangeInflow     WhaleTxType = "exchange_inflow"
	WhaleExchangeOutflow    WhaleTxType = "exchange_outflow"
	WhaleExchangeToExchange WhaleTxType = "exchange_to_exchange"
	WhaleMovement           WhaleTxType = "whale_movement"
)

type Significance string

const (
	SignificanceLow      Significance = "low"
	SignificanceMedium   Significance = "medium"
	SignificanceHigh     Significance = "high"
	SignificanceCritical Significance = "critical"
)

// WalletExchange — тип владельца кошелька, по которому перевод считается биржевым.
const WalletExchange = "exchange"

// WhaleTransfer — сырой перевод из блокчейн-эксплорера.
type WhaleTransfer struct {
	Hash          string
	Blockchain    string
	Symbol        string
	From          string
	To            string
	Amount        float64
	AmountUSD     float64
	Timestamp     time.Time
	BlockNumber   int64
	Confirmations int64
}

// WhaleWallet — известный кошелёк (биржа, фонд, кастодиан).
type WhaleWallet struct {
	Address      string
	Blockchain   string
	OwnerName    string
	OwnerType    string
	LastSeen     *time.Time
	TotalTxCount int
}

// WhaleTransaction — классифицированный и сохранённый перевод.
type WhaleTransaction struct {
	TxHash          string
	Blockchain      string
	Symbol          string
	Amount          float64
	AmountUSD       float64
	FromAddress     string
	FromOwner       string
	FromType        string
	ToAddress       string
	ToOwner         string
	ToType          string
	Timestamp       time.Time
	BlockNumber     int64
	Confirmations   int64
	TransactionType WhaleTxType
	Significance    Significance
	Source          string
}

type WhaleParty struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Type    string `json:"type"`
}

// WhaleAlert — уведомление о переводе уровня high или critical.
type WhaleAlert struct {
	TxHash          string       `json:"txHash"`
	Symbol          string       `json:"symbol"`
	Blockchain      string       `json:"blockchain"`
	Amount          float64      `json:"amount"`
	AmountUSD       float64      `json:"amountUsd"`
	From            WhaleParty   `json:"from"`
	To              WhaleParty   `json:"to"`
	TransactionType WhaleTxType  `json:"transactionType"`
	Significance    Significance `json:"significance"`
	Interpretation  string       `json:"interpretation"`
	Timestamp       int64        `json:"timestamp"`
	ExplorerURL     string       `json:"explorerUrl"`
}

type WhaleEvent struct {
	Alerts    []WhaleAlert `json:"alerts"`
	Timestamp time.Time    `json:"timestamp"`
}

type WhalePatternKind string

const (
	PatternAccumulation WhalePatternKind = "accumulation"
	PatternDistribution WhalePatternKind = "distribution"
	PatternNeutral      WhalePatternKind = "neutral"
)

// WhalePattern — агрегат биржевых потоков китов за окно.
type WhalePattern struct {
	Symbol       string           `json:"symbol"`
	Pattern      WhalePatternKind `json:"pattern"`
	Confidence   float64          `json:"confidence"`
	Inflow       float64          `json:"inflow"`
	Outflow      float64          `json:"outflow"`
	NetFlow      float64          `json:"netFlow"`
	Transactions int              `json:"transactions"`
	Reasoning    []string         `json:"reasoning"`
}
