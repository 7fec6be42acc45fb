package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"pumpwatch/internal/logger"
)

// refreshMetadata merges fresh aggregator metadata into every stored pair.
func (s *Scheduler) refreshMetadata(ctx context.Context) (CycleResult, error) {
	addrs, err := s.deps.PairStore.PairAddresses(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("read pair addresses: %w", err)
	}

	var res CycleResult
	for i, addr := range addrs {
		if i > 0 && !s.throttle(ctx) {
			res.Message = "stopped"
			break
		}
		res.Processed++

		pair, err := s.deps.Pairs.FetchPair(ctx, addr)
		if err != nil {
			res.Failed++
			slog.Warn("pair fetch failed", append(logger.Attrs(ctx), "pair", addr, "error", err)...)
			continue
		}
		if pair == nil {
			res.Skipped++
			slog.Info("pair not found upstream", append(logger.Attrs(ctx), "pair", addr)...)
			continue
		}
		pair.PairAddress = addr

		if _, err := s.deps.PairStore.MergePair(ctx, pair); err != nil {
			res.Failed++
			slog.Warn("pair merge failed", append(logger.Attrs(ctx), "pair", addr, "error", err)...)
			if abortsCycle(err) {
				return res, err
			}
			continue
		}
		res.Succeeded++
	}
	return res, nil
}
