package notification

import (
	"context"
	"time"

	"pumpwatch/internal/model"
	"pumpwatch/internal/ringbuf"
)

// AlertRecord is one alert kept in the recent-alert history.
type AlertRecord struct {
	model.AlertEvent
	FiredAt time.Time `json:"firedAt"`
}

// HistoryNotifier keeps the most recent alerts in memory for the status API.
type HistoryNotifier struct {
	ring *ringbuf.Ring[AlertRecord]
	now  func() time.Time
}

// NewHistoryNotifier keeps up to size alerts (rounded up to a power of two).
func NewHistoryNotifier(size int) *HistoryNotifier {
	return &HistoryNotifier{ring: ringbuf.New[AlertRecord](size), now: time.Now}
}

func (h *HistoryNotifier) Name() string { return "history" }

func (h *HistoryNotifier) Send(ctx context.Context, alert model.AlertEvent) error {
	h.ring.Push(AlertRecord{AlertEvent: alert, FiredAt: h.now().UTC()})
	return nil
}

// Recent returns up to limit alerts, newest first.
func (h *HistoryNotifier) Recent(limit int) []AlertRecord {
	return h.ring.Recent(limit)
}
