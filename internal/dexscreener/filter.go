package dexscreener

import "pumpwatch/internal/model"

// allowedQuotes are the quote tokens a tracked pair may trade against.
var allowedQuotes = map[string]bool{
	model.WrappedSOL: true,
	model.USDC:       true,
	model.USDT:       true,
}

// FilterListing keeps rows that resolved cleanly and trade a token against
// wrapped SOL or a stablecoin. Native-vs-native pairs are dropped.
func FilterListing(entries []model.ListingEntry) []model.PairSnapshot {
	out := make([]model.PairSnapshot, 0, len(entries))
	for _, e := range entries {
		if e.PairAddress == "" || e.Error != "" {
			continue
		}
		if !allowedQuotes[e.QuoteToken.Address] {
			continue
		}
		if e.BaseToken.Address == model.WrappedSOL {
			continue
		}
		out = append(out, e.PairSnapshot)
	}
	return out
}
