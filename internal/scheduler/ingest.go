package scheduler

import (
	"context"
	"fmt"

	"pumpwatch/internal/dexscreener"
)

// ingestPairs pulls the raw listing, keeps the tradable pairs and replaces
// them in the store by pair address.
func (s *Scheduler) ingestPairs(ctx context.Context) (CycleResult, error) {
	entries, err := s.deps.Listing.FetchListing(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("fetch listing: %w", err)
	}

	pairs := dexscreener.FilterListing(entries)
	res := CycleResult{
		Processed: len(entries),
		Skipped:   len(entries) - len(pairs),
	}
	if len(pairs) == 0 {
		res.Message = "nothing to do"
		return res, nil
	}

	now := s.now().UTC()
	for i := range pairs {
		pairs[i].LastUpdated = now
	}

	wr, err := s.deps.PairStore.ReplacePairs(ctx, pairs)
	if err != nil {
		res.Failed = len(pairs)
		return res, fmt.Errorf("replace pairs: %w", err)
	}
	res.Succeeded = len(pairs)
	res.Message = fmt.Sprintf("matched=%d modified=%d upserted=%d", wr.Matched, wr.Modified, wr.Upserted)
	return res, nil
}
