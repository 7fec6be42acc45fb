package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"pumpwatch/internal/logger"
	"pumpwatch/internal/model"
)

// refreshMarketCaps looks up market caps for tracked tokens in batches and
// sets marketCap on every pair whose base or quote token matches.
func (s *Scheduler) refreshMarketCaps(ctx context.Context) (CycleResult, error) {
	roster, err := s.deps.PairStore.PairRoster(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("read pair roster: %w", err)
	}

	tokens, pairsByToken := indexTokens(roster)
	var res CycleResult
	if len(tokens) == 0 {
		res.Message = "nothing to do"
		return res, nil
	}

	for start := 0; start < len(tokens); start += s.cfg.MarketCapBatch {
		if start > 0 && !s.throttle(ctx) {
			res.Message = "stopped"
			break
		}
		end := min(start+s.cfg.MarketCapBatch, len(tokens))
		batch := tokens[start:end]
		res.Processed += len(batch)

		rows, err := s.deps.Market.FetchMarketSnapshot(ctx, batch)
		if err != nil {
			res.Failed += len(batch)
			slog.Warn("market snapshot failed",
				append(logger.Attrs(ctx), "batch_start", start, "batch_size", len(batch), "error", err)...)
			if abortsCycle(err) {
				return res, err
			}
			continue
		}

		caps := make(map[string]float64)
		seen := make(map[string]bool, len(rows))
		for _, row := range rows {
			v, ok := model.ParseNumber(row.MarketCap)
			if !ok {
				continue
			}
			for _, pair := range pairsByToken[row.TokenContractAddress] {
				caps[pair] = v
			}
			seen[row.TokenContractAddress] = true
		}

		if _, err := s.deps.PairStore.MergeMarketCaps(ctx, caps); err != nil {
			res.Failed += len(batch)
			slog.Warn("market cap merge failed", append(logger.Attrs(ctx), "error", err)...)
			if abortsCycle(err) {
				return res, err
			}
			continue
		}
		for _, tok := range batch {
			if seen[tok] {
				res.Succeeded++
			} else {
				res.Skipped++
			}
		}
	}
	return res, nil
}

// indexTokens returns the distinct tracked tokens in roster order and, for
// every token address, the pairs that carry it on either side.
func indexTokens(roster []model.PairSnapshot) ([]string, map[string][]string) {
	var tokens []string
	tracked := make(map[string]bool)
	byToken := make(map[string][]string)

	for i := range roster {
		p := &roster[i]
		for _, addr := range []string{p.BaseToken.Address, p.QuoteToken.Address} {
			if addr != "" {
				byToken[addr] = append(byToken[addr], p.PairAddress)
			}
		}
		tok, ok := p.TrackedToken()
		if !ok || tracked[tok.Address] {
			continue
		}
		tracked[tok.Address] = true
		tokens = append(tokens, tok.Address)
	}
	return tokens, byToken
}
