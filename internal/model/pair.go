package model

import "time"

// Well-known Solana mints.
const (
	WrappedSOL = "So11111111111111111111111111111111111111112"
	USDC       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDT       = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Token identifies one side of a pair.
type Token struct {
	Address string `json:"address" bson:"address"`
	Name    string `json:"name" bson:"name"`
	Symbol  string `json:"symbol" bson:"symbol"`
}

// Buckets holds a metric sampled over the aggregator's rolling windows.
type Buckets struct {
	M5  float64 `json:"m5" bson:"m5"`
	H1  float64 `json:"h1" bson:"h1"`
	H6  float64 `json:"h6" bson:"h6"`
	H24 float64 `json:"h24" bson:"h24"`
}

// TxnCount is the buy/sell count in one window.
type TxnCount struct {
	Buys  int `json:"buys" bson:"buys"`
	Sells int `json:"sells" bson:"sells"`
}

// Txns holds transaction counts per window.
type Txns struct {
	M5  TxnCount `json:"m5" bson:"m5"`
	H1  TxnCount `json:"h1" bson:"h1"`
	H6  TxnCount `json:"h6" bson:"h6"`
	H24 TxnCount `json:"h24" bson:"h24"`
}

// Liquidity is the pool depth.
type Liquidity struct {
	USD   float64 `json:"usd,omitempty" bson:"usd,omitempty"`
	Base  float64 `json:"base" bson:"base"`
	Quote float64 `json:"quote" bson:"quote"`
}

// PairSnapshot is the stored record for one trading pair, keyed by PairAddress.
type PairSnapshot struct {
	PairAddress   string     `json:"pairAddress" bson:"_id"`
	ChainID       string     `json:"chainId" bson:"chainId"`
	DexID         string     `json:"dexId" bson:"dexId"`
	URL           string     `json:"url,omitempty" bson:"url,omitempty"`
	BaseToken     Token      `json:"baseToken" bson:"baseToken"`
	QuoteToken    Token      `json:"quoteToken" bson:"quoteToken"`
	PriceNative   string     `json:"priceNative" bson:"priceNative"`
	PriceUSD      string     `json:"priceUsd,omitempty" bson:"priceUsd,omitempty"`
	Txns          Txns       `json:"txns" bson:"txns"`
	Volume        Buckets    `json:"volume" bson:"volume"`
	PriceChange   Buckets    `json:"priceChange" bson:"priceChange"`
	Liquidity     *Liquidity `json:"liquidity,omitempty" bson:"liquidity,omitempty"`
	FDV           float64    `json:"fdv,omitempty" bson:"fdv,omitempty"`
	MarketCap     float64    `json:"marketCap,omitempty" bson:"marketCap,omitempty"`
	PairCreatedAt int64      `json:"pairCreatedAt,omitempty" bson:"pairCreatedAt,omitempty"`
	LastUpdated   time.Time  `json:"lastUpdated" bson:"lastUpdated"`
}

// TrackedToken resolves the non-native side of the pair. If the base token
// is wrapped SOL the quote token is tracked instead. Returns "" when neither
// side resolves to a usable address.
func (p *PairSnapshot) TrackedToken() (Token, bool) {
	tok := p.BaseToken
	if tok.Address == WrappedSOL {
		tok = p.QuoteToken
	}
	if tok.Address == "" || tok.Address == WrappedSOL {
		return Token{}, false
	}
	return tok, true
}
