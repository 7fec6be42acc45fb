package indicator

import "pumpwatch/internal/model"

// Aggregate groups factor consecutive candles into one coarser candle.
//
// Groups are aligned on the most recent end: a leading remainder of
// len(candles)%factor candles that cannot fill a group is discarded. Each
// output candle takes the first member's timestamp and open, the last
// member's close, the max high, the min low and the summed volume. Input must
// be ascending; output is ascending. Returns nil when len(candles) < factor.
func Aggregate(candles []model.Candle, factor int) []model.Candle {
	if factor <= 0 || len(candles) < factor {
		return nil
	}

	start := len(candles) % factor
	out := make([]model.Candle, 0, len(candles)/factor)
	for i := start; i+factor <= len(candles); i += factor {
		out = append(out, merge(candles[i:i+factor]))
	}
	return out
}

func merge(chunk []model.Candle) model.Candle {
	c := model.Candle{
		TS:    chunk[0].TS,
		Open:  chunk[0].Open,
		High:  chunk[0].High,
		Low:   chunk[0].Low,
		Close: chunk[len(chunk)-1].Close,
	}
	for _, m := range chunk {
		if m.High > c.High {
			c.High = m.High
		}
		if m.Low < c.Low {
			c.Low = m.Low
		}
		c.Volume += m.Volume
	}
	return c
}
