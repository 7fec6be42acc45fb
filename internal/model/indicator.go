package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// IndicatorSnapshot is the per-token RSI record, superseded on every refresh.
// RSI fields are nil when the backing series was too short.
type IndicatorSnapshot struct {
	TokenAddress  string    `json:"tokenContractAddress" bson:"_id"`
	PairAddress   string    `json:"pairAddress" bson:"pairAddress"`
	Symbol        string    `json:"symbol" bson:"symbol"`
	RSIShort      *float64  `json:"rsi-5m" bson:"rsi-5m"`
	RSILong       *float64  `json:"rsi-1h" bson:"rsi-1h"`
	CandlesShort  []Candle  `json:"candles-5m" bson:"candles-5m"`
	CandlesLong   []Candle  `json:"candles-1h" bson:"candles-1h"`
	CurrentPrice  float64   `json:"current_price" bson:"current_price"`
	PriceChange   Buckets   `json:"priceChange" bson:"priceChange"`
	MarketCap     float64   `json:"marketCap" bson:"marketCap"`
	PairCreatedAt int64     `json:"pairCreatedAt,omitempty" bson:"pairCreatedAt,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated" bson:"lastUpdated"`
}

// MarketData is one row of the venue's batched price endpoint.
// Numerics arrive as strings and are kept that way until parsed.
type MarketData struct {
	ChainIndex           string `json:"chainIndex"`
	TokenContractAddress string `json:"tokenContractAddress"`
	MarketCap            string `json:"marketCap"`
	Price                string `json:"price"`
	PriceChange5M        string `json:"priceChange5M"`
	PriceChange1H        string `json:"priceChange1H"`
	PriceChange4H        string `json:"priceChange4H"`
	PriceChange24H       string `json:"priceChange24H"`
	Volume5M             string `json:"volume5M"`
	Volume1H             string `json:"volume1H"`
	Volume4H             string `json:"volume4H"`
	Volume24H            string `json:"volume24H"`
	Time                 string `json:"time"`
}

// ParseNumber parses one of the venue's string numerics. Empty or malformed
// input yields 0, false.
func ParseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// Subscriber is an email recipient record owned by an external system.
type Subscriber struct {
	Email  string `json:"email" bson:"email"`
	Status string `json:"status" bson:"status"`
}

// SubscriberActive is the only status that receives email.
const SubscriberActive = "active"
