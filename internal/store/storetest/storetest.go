// Package storetest is a conformance suite run against every DocumentStore backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpwatch/internal/model"
	"pumpwatch/internal/store"
)

// Factory returns a fresh, empty backend. Cleanup is the caller's concern.
type Factory func(t *testing.T) store.DocumentStore

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("ReplayIsIdempotent", func(t *testing.T) { testReplayIsIdempotent(t, newStore(t)) })
	t.Run("ReplaceOverwrites", func(t *testing.T) { testReplaceOverwrites(t, newStore(t)) })
	t.Run("MergeKeepsFields", func(t *testing.T) { testMergeKeepsFields(t, newStore(t)) })
	t.Run("MarketCaps", func(t *testing.T) { testMarketCaps(t, newStore(t)) })
	t.Run("Indicators", func(t *testing.T) { testIndicators(t, newStore(t)) })
	t.Run("IndicatorByToken", func(t *testing.T) { testIndicatorByToken(t, newStore(t)) })
	t.Run("ActiveSubscribers", func(t *testing.T) { testActiveSubscribers(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { assert.NoError(t, newStore(t).Ping(context.Background())) })
}

// Pair builds a listing-shaped pair.
func Pair(addr, base, quote string, mc float64) model.PairSnapshot {
	return model.PairSnapshot{
		PairAddress: addr,
		ChainID:     "solana",
		DexID:       "raydium",
		BaseToken:   model.Token{Address: base, Symbol: "SYM" + base},
		QuoteToken:  model.Token{Address: quote, Symbol: "SOL"},
		PriceNative: "0.001",
		PriceUSD:    "0.15",
		Volume:      model.Buckets{M5: 1, H1: 2, H6: 3, H24: 4},
		PriceChange: model.Buckets{M5: -0.5, H1: 1.5},
		Liquidity:   &model.Liquidity{USD: 1000, Base: 10, Quote: 20},
		MarketCap:   mc,
		LastUpdated: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func testReplayIsIdempotent(t *testing.T, docs store.DocumentStore) {
	ctx := context.Background()
	rec := store.NewRecords(docs)
	payload := []model.PairSnapshot{
		Pair("p1", "A", model.WrappedSOL, 2_000_000),
		Pair("p2", "B", model.USDC, 3_000_000),
	}

	res, err := rec.ReplacePairs(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Upserted)

	first, err := rec.PairRoster(ctx)
	require.NoError(t, err)

	res, err = rec.ReplacePairs(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Upserted)
	assert.Equal(t, int64(2), res.Matched)

	second, err := rec.PairRoster(ctx)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, "p1", second[0].PairAddress)
	assert.Equal(t, "A", second[0].BaseToken.Address)
}

func testReplaceOverwrites(t *testing.T, docs store.DocumentStore) {
	ctx := context.Background()
	rec := store.NewRecords(docs)

	_, err := rec.ReplacePairs(ctx, []model.PairSnapshot{Pair("p1", "A", model.WrappedSOL, 2_000_000)})
	require.NoError(t, err)

	// Replace drops fields the new snapshot omits.
	next := Pair("p1", "A", model.WrappedSOL, 0)
	next.Liquidity = nil
	_, err = rec.ReplacePairs(ctx, []model.PairSnapshot{next})
	require.NoError(t, err)

	roster, err := rec.PairRoster(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Nil(t, roster[0].Liquidity)
	assert.Zero(t, roster[0].MarketCap)
}

func testMergeKeepsFields(t *testing.T, docs store.DocumentStore) {
	ctx := context.Background()
	rec := store.NewRecords(docs)

	_, err := rec.ReplacePairs(ctx, []model.PairSnapshot{Pair("p1", "A", model.WrappedSOL, 2_000_000)})
	require.NoError(t, err)

	fresh := Pair("p1", "A", model.WrappedSOL, 0)
	fresh.Liquidity = nil
	fresh.PriceUSD = "0.42"
	res, err := rec.MergePair(ctx, &fresh)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)

	roster, err := rec.PairRoster(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "0.42", roster[0].PriceUSD)
	// omitempty fields absent from the update survive a merge
	require.NotNil(t, roster[0].Liquidity)
	assert.Equal(t, 1000.0, roster[0].Liquidity.USD)
	assert.Equal(t, 2_000_000.0, roster[0].MarketCap)
	assert.True(t, roster[0].LastUpdated.After(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	addrs, err := rec.PairAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, addrs)
}

func testMarketCaps(t *testing.T, docs store.DocumentStore) {
	ctx := context.Background()
	rec := store.NewRecords(docs)

	_, err := rec.ReplacePairs(ctx, []model.PairSnapshot{
		Pair("p1", "A", model.WrappedSOL, 1),
		Pair("p2", "B", model.WrappedSOL, 2),
	})
	require.NoError(t, err)

	res, err := rec.MergeMarketCaps(ctx, map[string]float64{"p2": 5_500_000})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)

	roster, err := rec.PairRoster(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, 1.0, roster[0].MarketCap)
	assert.Equal(t, 5_500_000.0, roster[1].MarketCap)
	assert.Equal(t, "SYMB", roster[1].BaseToken.Symbol)
}

func testIndicators(t *testing.T, docs store.DocumentStore) {
	ctx := context.Background()
	rec := store.NewRecords(docs)

	short, long := 25.5, 12.25
	snap := &model.IndicatorSnapshot{
		TokenAddress: "TokA",
		PairAddress:  "p1",
		Symbol:       "TKA",
		RSIShort:     &short,
		RSILong:      &long,
		CandlesShort: []model.Candle{{TS: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}},
		CurrentPrice: 1.5,
		MarketCap:    2_500_000,
		LastUpdated:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	_, err := rec.UpsertIndicator(ctx, snap)
	require.NoError(t, err)

	// Superseded, not appended.
	snap.RSILong = nil
	_, err = rec.UpsertIndicator(ctx, snap)
	require.NoError(t, err)

	got, err := rec.Indicators(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TokA", got[0].TokenAddress)
	require.NotNil(t, got[0].RSIShort)
	assert.Equal(t, 25.5, *got[0].RSIShort)
	assert.Nil(t, got[0].RSILong)
	require.Len(t, got[0].CandlesShort, 1)
	assert.Equal(t, 1.5, got[0].CandlesShort[0].Close)
	assert.True(t, snap.LastUpdated.Equal(got[0].LastUpdated))
}

func testIndicatorByToken(t *testing.T, docs store.DocumentStore) {
	ctx := context.Background()
	rec := store.NewRecords(docs)

	for _, tok := range []string{"TokA", "TokB"} {
		short := 40.0
		_, err := rec.UpsertIndicator(ctx, &model.IndicatorSnapshot{TokenAddress: tok, Symbol: "S" + tok, RSIShort: &short})
		require.NoError(t, err)
	}

	got, err := rec.Indicator(ctx, "TokB")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "TokB", got.TokenAddress)
	assert.Equal(t, "STokB", got.Symbol)

	got, err = rec.Indicator(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testActiveSubscribers(t *testing.T, docs store.DocumentStore) {
	ctx := context.Background()
	rec := store.NewRecords(docs)

	for _, s := range []model.Subscriber{
		{Email: "a@example.com", Status: model.SubscriberActive},
		{Email: "b@example.com", Status: "inactive"},
		{Email: "c@example.com", Status: model.SubscriberActive},
	} {
		require.NoError(t, rec.AddSubscriber(ctx, s))
	}

	subs, err := rec.ActiveSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "a@example.com", subs[0].Email)
	assert.Equal(t, "c@example.com", subs[1].Email)
}
