package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pumpwatch/config"
	"pumpwatch/internal/api"
	"pumpwatch/internal/dexscreener"
	"pumpwatch/internal/indicator"
	"pumpwatch/internal/logger"
	"pumpwatch/internal/metrics"
	"pumpwatch/internal/model"
	"pumpwatch/internal/notification"
	"pumpwatch/internal/okx"
	"pumpwatch/internal/scheduler"
	"pumpwatch/internal/store"
	mongostore "pumpwatch/internal/store/mongo"
	redisstore "pumpwatch/internal/store/redis"
	sqlitestore "pumpwatch/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger.Init("pumpwatch", logger.ParseLevel(cfg.LogLevel))
	slog.Info("starting", "store_driver", cfg.StoreDriver)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if missing := cfg.VenueCredentialsMissing(); len(missing) > 0 {
		slog.Warn("venue credentials missing, indicator cycles will be no-ops", "missing", missing)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, nil)
	metricsSrv.Start()

	// ---- Record store ----
	backend, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("record store init failed", "error", err)
		os.Exit(1)
	}
	cb := store.NewCircuitBreaker(5, 30*time.Second)
	cb.OnStateChange = func(from, to store.State) {
		prom.StoreCircuitBreakerState.Set(float64(to))
		if to == store.StateOpen {
			prom.StoreCircuitBreakerTrips.Inc()
		}
		slog.Warn("store circuit state change", "from", from.String(), "to", to.String())
	}
	records := store.NewRecords(store.NewGuarded(backend, cb))
	slog.Info("record store ready", "driver", cfg.StoreDriver)

	// ---- Live feed (optional) ----
	var feed model.FeedPublisher
	var redisPinger metrics.Pinger
	if cfg.RedisAddr != "" {
		health.SetRedisEnabled(true)
		pub, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			slog.Warn("redis init failed, continuing without live feed", "error", err)
		} else {
			defer pub.Close()
			feed = pub
			redisPinger = pub
		}
	}
	health.StartLivenessChecker(ctx, records, redisPinger, 10*time.Second)

	// ---- Notification dispatch ----
	history := notification.NewHistoryNotifier(128)
	notifiers := []notification.Notifier{
		notification.NewLogNotifier(),
		history,
		notification.NewTelegramNotifier(notification.TelegramConfig{
			Enabled:  cfg.TelegramEnabled,
			BotToken: cfg.TelegramBotToken,
			ChatID:   cfg.TelegramChatID,
		}),
		notification.NewEmailNotifier(notification.EmailConfig{
			APIKey: cfg.ResendAPIKey,
			From:   cfg.EmailFrom,
		}, records),
	}
	if cfg.AlertWebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.AlertWebhookURL))
	}
	if feed != nil {
		notifiers = append(notifiers, notification.NewFeedNotifier(feed))
	}
	dispatcher := notification.NewDispatcher(0, notifiers...)
	dispatcher.OnDelivery = func(channel string, err error) {
		prom.AlertDeliveriesTotal.WithLabelValues(channel, metrics.Outcome(err)).Inc()
	}
	dispatcher.OnDrop = func() { prom.AlertsDroppedTotal.Inc() }
	dispatcher.Start(ctx)

	// ---- Upstream clients ----
	venue := okx.NewClient(okx.Credentials{
		APIKey:     cfg.OKXAPIKey,
		SecretKey:  cfg.OKXSecretKey,
		Passphrase: cfg.OKXPassphrase,
	}, okx.WithBaseURL(cfg.OKXBaseURL), okx.WithChainIndex(cfg.OKXChainIndex))

	dexOpts := []dexscreener.ClientOption{
		dexscreener.WithBaseURL(cfg.DexScreenerBaseURL),
		dexscreener.WithChain(cfg.DexScreenerChain),
	}
	if cfg.ListingEndpoint != "" {
		dexOpts = append(dexOpts, dexscreener.WithListingURL(cfg.ListingEndpoint))
	}
	dex := dexscreener.NewClient(dexOpts...)

	// ---- Scheduler ----
	sched := scheduler.New(scheduler.Config{
		IngestInterval:    cfg.PairIngestInterval,
		IndicatorInterval: cfg.IndicatorInterval,
		MetadataInterval:  cfg.PairMetadataInterval,
		MarketCapInterval: cfg.MarketCapInterval,
		Throttle:          cfg.RequestThrottle,
		RSIPeriod:         cfg.RSIPeriod,
		CandleLimit:       cfg.CandleLimit,
		LongWindowFactor:  cfg.LongWindowFactor,
		Thresholds:        indicator.Thresholds{Upper: cfg.RSIUpper, Lower: cfg.RSILower},
	}, scheduler.Deps{
		Listing:    dex,
		Pairs:      dex,
		Candles:    venue,
		Market:     venue,
		PairStore:  records,
		Indicators: records,
		Alerts:     dispatcher,
		Feed:       feed,
		Metrics:    prom,
		Health:     health,
	})
	if err := sched.Start(ctx); err != nil {
		slog.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}

	// ---- Status API ----
	gin.SetMode(gin.ReleaseMode)
	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(api.NewHandler(records, dispatcher, health).WithHistory(history)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("status api listening", "addr", cfg.HTTPAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("status api error", "error", err)
		}
	}()

	slog.Info("running", "loops", sched.Loops())

	// ---- Wait for shutdown ----
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	apiSrv.Shutdown(shutdownCtx)
	sched.Stop()
	dispatcher.Stop()
	cancel()
	if err := backend.Close(shutdownCtx); err != nil {
		slog.Warn("record store close failed", "error", err)
	}
	metricsSrv.Stop(shutdownCtx)

	slog.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		s, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.MongoURI, Database: cfg.MongoDB})
	if err != nil {
		return nil, err
	}
	return s, nil
}
