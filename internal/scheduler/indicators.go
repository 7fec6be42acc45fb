package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"pumpwatch/internal/indicator"
	"pumpwatch/internal/logger"
	"pumpwatch/internal/model"
)

// refreshIndicators recomputes both RSI windows for every tracked token and
// enqueues an alert when the oversold condition holds.
func (s *Scheduler) refreshIndicators(ctx context.Context) (CycleResult, error) {
	roster, err := s.deps.PairStore.PairRoster(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("read pair roster: %w", err)
	}

	var res CycleResult
	called := false
	for i := range roster {
		pair := &roster[i]
		res.Processed++

		tok, ok := pair.TrackedToken()
		if !ok {
			res.Skipped++
			slog.Warn("no trackable token", append(logger.Attrs(ctx), "pair", pair.PairAddress)...)
			continue
		}

		if called && !s.throttle(ctx) {
			res.Message = "stopped"
			break
		}
		called = true

		if err := s.refreshToken(ctx, pair, tok); err != nil {
			res.Failed++
			slog.Warn("indicator refresh failed",
				append(logger.Attrs(ctx), "pair", pair.PairAddress, "token", tok.Address, "error", err)...)
			if abortsCycle(err) {
				return res, err
			}
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

func (s *Scheduler) refreshToken(ctx context.Context, pair *model.PairSnapshot, tok model.Token) error {
	short, err := s.deps.Candles.FetchCandles(ctx, tok.Address, model.Timeframe5m, s.cfg.CandleLimit)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	long := indicator.Aggregate(short, s.cfg.LongWindowFactor)

	rsiShort, okShort := indicator.CalculateRSI(model.Closes(short), s.cfg.RSIPeriod)
	rsiLong, okLong := indicator.CalculateRSI(model.Closes(long), s.cfg.RSIPeriod)

	snap := &model.IndicatorSnapshot{
		TokenAddress:  tok.Address,
		PairAddress:   pair.PairAddress,
		Symbol:        tok.Symbol,
		CandlesShort:  short,
		CandlesLong:   long,
		CurrentPrice:  currentPrice(short, pair),
		PriceChange:   pair.PriceChange,
		MarketCap:     pair.MarketCap,
		PairCreatedAt: pair.PairCreatedAt,
		LastUpdated:   s.now().UTC(),
	}
	if okShort {
		snap.RSIShort = &rsiShort
	}
	if okLong {
		snap.RSILong = &rsiLong
	}

	if _, err := s.deps.Indicators.UpsertIndicator(ctx, snap); err != nil {
		return fmt.Errorf("upsert indicator: %w", err)
	}

	if s.deps.Feed != nil {
		if err := s.deps.Feed.PublishIndicator(ctx, snap); err != nil {
			slog.Warn("feed publish failed", append(logger.Attrs(ctx), "token", tok.Address, "error", err)...)
		}
	}

	if !okShort || !okLong {
		if s.deps.Metrics != nil {
			s.deps.Metrics.IndicatorsMissingData.Inc()
		}
		slog.Debug("insufficient candles for rsi",
			append(logger.Attrs(ctx), "token", tok.Address, "short", len(short), "long", len(long))...)
		return nil
	}

	if s.cfg.Thresholds.Fires(rsiShort, rsiLong) {
		alert := model.NewBuyAlert(tok.Symbol, tok.Address, rsiShort, rsiLong, pair.MarketCap)
		slog.Info("alert condition met",
			append(logger.Attrs(ctx), "token", tok.Address, "symbol", tok.Symbol,
				"rsi_short", alert.RSIShort, "rsi_long", alert.RSILong)...)
		if s.deps.Metrics != nil {
			s.deps.Metrics.AlertsFiredTotal.Inc()
		}
		if s.deps.Alerts != nil {
			s.deps.Alerts.Enqueue(alert)
		}
	}
	return nil
}

// currentPrice is the latest close, or the pair's USD price when no candles came back.
func currentPrice(candles []model.Candle, pair *model.PairSnapshot) float64 {
	if n := len(candles); n > 0 {
		return candles[n-1].Close
	}
	v, err := strconv.ParseFloat(pair.PriceUSD, 64)
	if err != nil {
		return 0
	}
	return v
}
