package model

import "context"

// ── Port Interfaces ──
// These interfaces decouple the scheduler loops from concrete clients and
// storage backends (OKX, DexScreener, MongoDB, SQLite, Redis).

// CandleSource fetches OHLCV series from the market venue.
type CandleSource interface {
	// FetchCandles returns up to limit candles in ascending time order.
	FetchCandles(ctx context.Context, tokenAddress string, tf Timeframe, limit int) ([]Candle, error)
}

// MarketSnapshotSource fetches batched price and market-cap rows.
type MarketSnapshotSource interface {
	FetchMarketSnapshot(ctx context.Context, tokenAddresses []string) ([]MarketData, error)
}

// PairSource looks up fresh pair metadata. Returns nil, nil when the pair
// is unknown upstream.
type PairSource interface {
	FetchPair(ctx context.Context, pairAddress string) (*PairSnapshot, error)
}

// ListingSource fetches the raw pair listing consumed by ingestion.
type ListingSource interface {
	FetchListing(ctx context.Context) ([]ListingEntry, error)
}

// ListingEntry is one raw listing row. Error is set by the listing
// endpoint when it could not resolve the row.
type ListingEntry struct {
	PairSnapshot
	Error string `json:"error,omitempty"`
}

// WriteResult mirrors the store's {matched, modified, upserted} counters.
type WriteResult struct {
	Matched  int64
	Modified int64
	Upserted int64
}

// Add accumulates another result.
func (r *WriteResult) Add(o WriteResult) {
	r.Matched += o.Matched
	r.Modified += o.Modified
	r.Upserted += o.Upserted
}

// PairStore persists PairSnapshots.
type PairStore interface {
	// ReplacePairs bulk-upserts snapshots with replace semantics.
	ReplacePairs(ctx context.Context, pairs []PairSnapshot) (WriteResult, error)

	// PairRoster returns every stored pair.
	PairRoster(ctx context.Context) ([]PairSnapshot, error)

	// PairAddresses returns every stored pair address.
	PairAddresses(ctx context.Context) ([]string, error)

	// MergePair merge-updates a stored pair with fresh metadata.
	MergePair(ctx context.Context, pair *PairSnapshot) (WriteResult, error)

	// MergeMarketCaps sets marketCap on the given pairs (pair address -> cap).
	MergeMarketCaps(ctx context.Context, caps map[string]float64) (WriteResult, error)
}

// IndicatorStore persists IndicatorSnapshots.
type IndicatorStore interface {
	UpsertIndicator(ctx context.Context, snap *IndicatorSnapshot) (WriteResult, error)
	Indicators(ctx context.Context) ([]IndicatorSnapshot, error)
}

// SubscriberStore reads the email roster.
type SubscriberStore interface {
	ActiveSubscribers(ctx context.Context) ([]Subscriber, error)
}

// AlertSink accepts alerts for detached delivery. Enqueue never blocks the caller.
type AlertSink interface {
	Enqueue(alert AlertEvent) bool
}

// FeedPublisher broadcasts fresh snapshots and alerts to live consumers.
type FeedPublisher interface {
	PublishIndicator(ctx context.Context, snap *IndicatorSnapshot) error
	PublishAlert(ctx context.Context, alert AlertEvent) error
}
