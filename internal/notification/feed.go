package notification

import (
	"context"

	"pumpwatch/internal/model"
)

// FeedNotifier forwards alerts to the live feed.
type FeedNotifier struct {
	pub model.FeedPublisher
}

// NewFeedNotifier wraps a FeedPublisher.
func NewFeedNotifier(pub model.FeedPublisher) *FeedNotifier {
	return &FeedNotifier{pub: pub}
}

func (f *FeedNotifier) Name() string { return "feed" }

func (f *FeedNotifier) Send(ctx context.Context, alert model.AlertEvent) error {
	return f.pub.PublishAlert(ctx, alert)
}
