// Package redis publishes indicator snapshots and alerts to Redis for live
// consumers. The document store stays the system of record.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"pumpwatch/internal/model"
	"pumpwatch/internal/store"
)

const (
	defaultLatestTTL  = 30 * time.Minute
	alertStreamMaxLen = 1000

	// AlertChannel carries every fired alert.
	AlertChannel = "pub:alerts"
	alertStream  = "alerts"
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher implements model.FeedPublisher. Writes go through a circuit
// breaker so an unreachable Redis costs one fast failure per call.
type Publisher struct {
	client *goredis.Client
	cb     *store.CircuitBreaker
}

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *goredis.Client) *Publisher {
	cb := store.NewCircuitBreaker(5, 30*time.Second)
	cb.OnStateChange = func(from, to store.State) {
		log.Printf("[redis] circuit %s -> %s", from, to)
	}
	return &Publisher{client: client, cb: cb}
}

// IndicatorChannel is the pub/sub channel for one token's snapshots.
func IndicatorChannel(token string) string { return "pub:rsi:" + token }

// LatestKey holds the most recent snapshot for one token.
func LatestKey(token string) string { return "rsi:latest:" + token }

// PublishIndicator stores the snapshot under its latest key and publishes it.
// Raw candle series are dropped from the feed payload.
func (p *Publisher) PublishIndicator(ctx context.Context, snap *model.IndicatorSnapshot) error {
	feed := *snap
	feed.CandlesShort = nil
	feed.CandlesLong = nil
	data, err := json.Marshal(&feed)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	jsonData := string(data)

	return p.cb.Execute(func() error {
		pipe := p.client.Pipeline()
		pipe.Set(ctx, LatestKey(snap.TokenAddress), jsonData, defaultLatestTTL)
		pipe.Publish(ctx, IndicatorChannel(snap.TokenAddress), jsonData)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis indicator pipeline for %s: %w", snap.TokenAddress, err)
		}
		return nil
	})
}

// PublishAlert appends the alert to a capped stream and publishes it.
func (p *Publisher) PublishAlert(ctx context.Context, alert model.AlertEvent) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	jsonData := string(data)

	return p.cb.Execute(func() error {
		pipe := p.client.Pipeline()
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: alertStream,
			MaxLen: alertStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Publish(ctx, AlertChannel, jsonData)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis alert pipeline: %w", err)
		}
		return nil
	})
}

// Ping checks Redis connectivity.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
