package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency that can be health-checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus tracks dependency health and loop progress.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt        time.Time
	StoreOK          bool
	StoreLatencyMs   float64
	RedisEnabled     bool
	RedisConnected   bool
	RedisLatencyMs   float64
	SchedulerRunning bool
	LastCycle        map[string]time.Time
	LastCheckAt      time.Time
}

// Report is the JSON shape of a health check.
type Report struct {
	Status           string            `json:"status"`
	Uptime           string            `json:"uptime"`
	StoreOK          bool              `json:"store_ok"`
	StoreLatencyMs   float64           `json:"store_latency_ms"`
	RedisEnabled     bool              `json:"redis_enabled"`
	RedisConnected   bool              `json:"redis_connected"`
	RedisLatencyMs   float64           `json:"redis_latency_ms"`
	SchedulerRunning bool              `json:"scheduler_running"`
	LastCycle        map[string]string `json:"last_cycle"`
	LastCheckAt      string            `json:"last_check_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
		LastCycle: make(map[string]time.Time),
	}
}

func (h *HealthStatus) SetSchedulerRunning(v bool) {
	h.mu.Lock()
	h.SchedulerRunning = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

// MarkCycle records a completed cycle for loop.
func (h *HealthStatus) MarkCycle(loop string, t time.Time) {
	h.mu.Lock()
	h.LastCycle[loop] = t
	h.mu.Unlock()
}

// CheckStore pings the document store and records latency + health.
func (h *HealthStatus) CheckStore(ctx context.Context, p Pinger) {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.StoreOK = err == nil
	h.StoreLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, p Pinger) {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs an immediate check and then periodic ones.
// redis may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, store, redis Pinger, interval time.Duration) {
	check := func() {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if store != nil {
			h.CheckStore(checkCtx, store)
		}
		if redis != nil {
			h.CheckRedis(checkCtx, redis)
		}
	}

	go func() {
		check()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// Report summarizes current health. The store is the only hard dependency;
// a down Redis or stopped scheduler degrades but does not fail the check.
func (h *HealthStatus) Report() (Report, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.SchedulerRunning || (h.RedisEnabled && !h.RedisConnected) {
		status = "degraded"
	}
	if !h.StoreOK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	cycles := make(map[string]string, len(h.LastCycle))
	for loop, t := range h.LastCycle {
		cycles[loop] = t.UTC().Format(time.RFC3339)
	}

	return Report{
		Status:           status,
		Uptime:           time.Since(h.StartedAt).Round(time.Second).String(),
		StoreOK:          h.StoreOK,
		StoreLatencyMs:   h.StoreLatencyMs,
		RedisEnabled:     h.RedisEnabled,
		RedisConnected:   h.RedisConnected,
		RedisLatencyMs:   h.RedisLatencyMs,
		SchedulerRunning: h.SchedulerRunning,
		LastCycle:        cycles,
		LastCheckAt:      h.LastCheckAt.UTC().Format(time.RFC3339),
	}, code
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report, code := h.Report()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(report)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server. gatherer nil uses the default registry.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
