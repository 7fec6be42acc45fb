// Command rsicheck fetches candles for one token and prints both RSI
// windows and whether the alert condition holds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pumpwatch/config"
	"pumpwatch/internal/indicator"
	"pumpwatch/internal/logger"
	"pumpwatch/internal/model"
	"pumpwatch/internal/okx"
)

func main() {
	token := flag.String("token", "", "Token contract address (required)")
	limit := flag.Int("limit", 0, "Short-window candles to fetch (default CANDLE_LIMIT)")
	factor := flag.Int("factor", 0, "Aggregation factor for the long window (default LONG_WINDOW_FACTOR)")
	period := flag.Int("period", 0, "RSI period (default RSI_PERIOD)")
	direct := flag.Bool("direct", false, "Also fetch native 1H candles and print their RSI next to the aggregated one")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init("rsicheck", logger.ParseLevel(cfg.LogLevel))

	if *token == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *limit <= 0 {
		*limit = cfg.CandleLimit
	}
	if *factor <= 0 {
		*factor = cfg.LongWindowFactor
	}
	if *period <= 0 {
		*period = cfg.RSIPeriod
	}

	client := okx.NewClient(okx.Credentials{
		APIKey:     cfg.OKXAPIKey,
		SecretKey:  cfg.OKXSecretKey,
		Passphrase: cfg.OKXPassphrase,
	}, okx.WithBaseURL(cfg.OKXBaseURL), okx.WithChainIndex(cfg.OKXChainIndex))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	short, err := client.FetchCandles(ctx, *token, model.Timeframe5m, *limit)
	if err != nil {
		slog.Error("fetch candles failed", "token", *token, "error", err)
		os.Exit(1)
	}
	long := indicator.Aggregate(short, *factor)

	rsiShort, okShort := indicator.CalculateRSI(model.Closes(short), *period)
	rsiLong, okLong := indicator.CalculateRSI(model.Closes(long), *period)

	fmt.Printf("token:        %s\n", *token)
	fmt.Printf("candles:      %d short, %d long (x%d)\n", len(short), len(long), *factor)
	fmt.Printf("rsi short:    %s\n", formatRSI(rsiShort, okShort))
	fmt.Printf("rsi long:     %s\n", formatRSI(rsiLong, okLong))

	if *direct {
		hourly, err := client.FetchCandles(ctx, *token, model.Timeframe1H, len(long))
		if err != nil {
			slog.Error("fetch 1H candles failed", "token", *token, "error", err)
			os.Exit(1)
		}
		rsiHourly, okHourly := indicator.CalculateRSI(model.Closes(hourly), *period)
		fmt.Printf("rsi long 1H:  %s (%d native candles)\n", formatRSI(rsiHourly, okHourly), len(hourly))
	}

	th := indicator.Thresholds{Upper: cfg.RSIUpper, Lower: cfg.RSILower}
	fires := okShort && okLong && th.Fires(rsiShort, rsiLong)
	fmt.Printf("alert:        %v (upper %.2f, lower %.2f)\n", fires, th.Upper, th.Lower)
}

func formatRSI(v float64, ok bool) string {
	if !ok {
		return "n/a (insufficient data)"
	}
	return fmt.Sprintf("%.2f", v)
}
