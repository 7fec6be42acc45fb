package model

// Candle is one OHLCV sample over a fixed time bucket.
// TS is the bucket start in Unix milliseconds, as reported by the venue.
type Candle struct {
	TS     int64   `json:"timestamp" bson:"timestamp"`
	Open   float64 `json:"open" bson:"open"`
	High   float64 `json:"high" bson:"high"`
	Low    float64 `json:"low" bson:"low"`
	Close  float64 `json:"close" bson:"close"`
	Volume float64 `json:"volume" bson:"volume"`
}

// Closes extracts the close prices of an ascending candle series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Timeframe is a venue bar size, e.g. "5m" or "1H".
type Timeframe string

const (
	Timeframe5m Timeframe = "5m"
	Timeframe1H Timeframe = "1H"
)
