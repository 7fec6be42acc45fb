// Package api serves the read-only status API over the record store.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pumpwatch/internal/metrics"
	"pumpwatch/internal/model"
	"pumpwatch/internal/notification"
)

// Reader is the slice of the record store the API reads.
type Reader interface {
	PairRoster(ctx context.Context) ([]model.PairSnapshot, error)
	Indicators(ctx context.Context) ([]model.IndicatorSnapshot, error)
	Indicator(ctx context.Context, token string) (*model.IndicatorSnapshot, error)
}

// History lists recently dispatched alerts.
type History interface {
	Recent(limit int) []notification.AlertRecord
}

// Handler serves the status endpoints. Every response is {data, error}.
type Handler struct {
	store   Reader
	alerts  model.AlertSink
	health  *metrics.HealthStatus
	history History
}

// NewHandler creates a handler. store may be nil when the record store is
// not configured; alerts and health may be nil.
func NewHandler(store Reader, alerts model.AlertSink, health *metrics.HealthStatus) *Handler {
	return &Handler{store: store, alerts: alerts, health: health}
}

// WithHistory enables GET /api/alerts.
func (h *Handler) WithHistory(history History) *Handler {
	h.history = history
	return h
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/rsi", h.ListIndicators)
		api.GET("/rsi/:token", h.GetIndicator)
		api.GET("/pairs", h.ListPairs)
		api.GET("/alerts", h.RecentAlerts)
		api.POST("/alerts/test", h.TestAlert)
	}
	return router
}

type envelope struct {
	Data  any     `json:"data"`
	Error *string `json:"error"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, envelope{Error: &msg})
}

const storeMissing = "record store is not configured: set MONGO_URI or STORE_DRIVER=sqlite"

// Health reports dependency status.
// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	if h.health == nil {
		ok(c, http.StatusOK, gin.H{"status": "unknown"})
		return
	}
	report, code := h.health.Report()
	c.JSON(code, envelope{Data: report})
}

// ListIndicators returns every indicator snapshot.
// GET /api/rsi
func (h *Handler) ListIndicators(c *gin.Context) {
	if h.store == nil {
		fail(c, http.StatusServiceUnavailable, storeMissing)
		return
	}
	snaps, err := h.store.Indicators(c.Request.Context())
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	ok(c, http.StatusOK, snaps)
}

// GetIndicator returns the snapshot for one token.
// GET /api/rsi/:token
func (h *Handler) GetIndicator(c *gin.Context) {
	if h.store == nil {
		fail(c, http.StatusServiceUnavailable, storeMissing)
		return
	}
	token := c.Param("token")
	snap, err := h.store.Indicator(c.Request.Context(), token)
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	if snap == nil {
		fail(c, http.StatusNotFound, "no indicator snapshot for "+token)
		return
	}
	ok(c, http.StatusOK, snap)
}

// ListPairs returns the stored pair roster.
// GET /api/pairs
func (h *Handler) ListPairs(c *gin.Context) {
	if h.store == nil {
		fail(c, http.StatusServiceUnavailable, storeMissing)
		return
	}
	pairs, err := h.store.PairRoster(c.Request.Context())
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	ok(c, http.StatusOK, pairs)
}

type testAlertRequest struct {
	Symbol       string  `json:"symbol" binding:"required"`
	TokenAddress string  `json:"tokenContractAddress"`
	RSIShort     float64 `json:"rsi5m"`
	RSILong      float64 `json:"rsi1h"`
	MarketCap    float64 `json:"marketCap"`
}

// TestAlert enqueues a hand-built alert on the dispatch worker.
// POST /api/alerts/test
func (h *Handler) TestAlert(c *gin.Context) {
	if h.alerts == nil {
		fail(c, http.StatusServiceUnavailable, "alert dispatch is not running")
		return
	}
	var req testAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	alert := model.NewBuyAlert(req.Symbol, req.TokenAddress, req.RSIShort, req.RSILong, req.MarketCap)
	if !h.alerts.Enqueue(alert) {
		fail(c, http.StatusServiceUnavailable, "alert queue is full")
		return
	}
	ok(c, http.StatusAccepted, alert)
}

// RecentAlerts returns recently dispatched alerts, newest first.
// GET /api/alerts?limit=N
func (h *Handler) RecentAlerts(c *gin.Context) {
	if h.history == nil {
		ok(c, http.StatusOK, []notification.AlertRecord{})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		fail(c, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	ok(c, http.StatusOK, h.history.Recent(limit))
}
