package indicator

import "strconv"

// DefaultRSIPeriod is Wilder's original lookback.
const DefaultRSIPeriod = 14

// RSI calculates the Relative Strength Index using Wilder's smoothing method.
// Average gain and loss are seeded with the simple mean of the first period
// deltas and smoothed with an SMMA afterwards. Update is O(1) per close.
type RSI struct {
	period    int
	count     int
	prevClose float64
	avgGain   *SMMA
	avgLoss   *SMMA
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period:  period,
		avgGain: NewSMMA(period),
		avgLoss: NewSMMA(period),
	}
}

func (r *RSI) Name() string { return "RSI_" + strconv.Itoa(r.period) }

func (r *RSI) Update(price float64) {
	r.count++

	if r.count == 1 {
		// First close: record price, no delta yet
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.avgGain.Update(gain)
	r.avgLoss.Update(loss)

	if !r.avgLoss.Ready() {
		return
	}
	if r.avgLoss.Value() == 0 {
		r.current = 100.0
		return
	}
	rs := r.avgGain.Value() / r.avgLoss.Value()
	r.current = 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count > r.period }

// CalculateRSI computes Wilder's RSI over an ascending close-price series.
// The second return is false when len(closes) < period+1 or period < 1;
// insufficient data is not an error.
func CalculateRSI(closes []float64, period int) (float64, bool) {
	if period < 1 || len(closes) < period+1 {
		return 0, false
	}
	rsi := NewRSI(period)
	for _, c := range closes {
		rsi.Update(c)
	}
	return rsi.Value(), true
}
