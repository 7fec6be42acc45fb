// Package indicator provides the pure computations behind the RSI pipeline:
// candle aggregation into coarser timeframes and Wilder-smoothed RSI.
//
// Nothing in this package performs I/O. Streaming indicators implement the
// Indicator interface and are fed close prices in ascending time order.
package indicator

// Indicator is the interface for streaming indicators over close prices.
type Indicator interface {
	// Name returns the indicator name (e.g., "RSI_14").
	Name() string

	// Update feeds the next close price and recalculates.
	Update(close float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}
