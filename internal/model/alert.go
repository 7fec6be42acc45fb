package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ActionBuy is the only action the RSI alert currently emits.
const ActionBuy = "BUY"

// AlertEvent is built when the alert condition fires and is discarded after
// dispatch. RSI and market cap are pre-formatted for display.
type AlertEvent struct {
	Symbol               string `json:"symbol"`
	Action               string `json:"action"`
	RSIShort             string `json:"rsi5m"`
	RSILong              string `json:"rsi1h"`
	MarketCap            string `json:"marketCap"`
	TokenContractAddress string `json:"tokenContractAddress"`
}

// NewBuyAlert formats an AlertEvent from raw values.
func NewBuyAlert(symbol, token string, rsiShort, rsiLong, marketCap float64) AlertEvent {
	return AlertEvent{
		Symbol:               symbol,
		Action:               ActionBuy,
		RSIShort:             fmt.Sprintf("%.2f", rsiShort),
		RSILong:              fmt.Sprintf("%.2f", rsiLong),
		MarketCap:            FormatMarketCap(marketCap),
		TokenContractAddress: token,
	}
}

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// FormatMarketCap renders a USD market cap as "$1.23M", "$4.56B", "$789.00K".
// Values below one thousand print with two decimals; non-positive values print "N/A".
func FormatMarketCap(v float64) string {
	if v <= 0 {
		return "N/A"
	}
	d := decimal.NewFromFloat(v)
	switch {
	case d.GreaterThanOrEqual(billion):
		return "$" + d.Div(billion).StringFixed(2) + "B"
	case d.GreaterThanOrEqual(million):
		return "$" + d.Div(million).StringFixed(2) + "M"
	case d.GreaterThanOrEqual(thousand):
		return "$" + d.Div(thousand).StringFixed(2) + "K"
	default:
		return "$" + d.StringFixed(2)
	}
}
