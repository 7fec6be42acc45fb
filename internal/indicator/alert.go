package indicator

// Thresholds bounds the oversold alert. The long-window RSI must sit in
// [Lower, Upper) and the short-window RSI below Upper.
type Thresholds struct {
	Upper float64
	Lower float64
}

// DefaultThresholds fires when both RSIs are below 30 and the long RSI is at least 10.
var DefaultThresholds = Thresholds{Upper: 30, Lower: 10}

// Fires reports whether the oversold condition holds.
func (t Thresholds) Fires(rsiShort, rsiLong float64) bool {
	return rsiLong < t.Upper && rsiLong >= t.Lower && rsiShort < t.Upper
}
