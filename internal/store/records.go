package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"pumpwatch/internal/model"
)

// Records maps the typed record families onto a DocumentStore. It implements
// model.PairStore, model.IndicatorStore and model.SubscriberStore.
type Records struct {
	docs DocumentStore
	now  func() time.Time
}

// NewRecords creates a Records over docs.
func NewRecords(docs DocumentStore) *Records {
	return &Records{docs: docs, now: time.Now}
}

// Ping checks the underlying store.
func (r *Records) Ping(ctx context.Context) error {
	return r.docs.Ping(ctx)
}

// ReplacePairs bulk-upserts pairs keyed by pair address, replacing any
// stored document wholesale.
func (r *Records) ReplacePairs(ctx context.Context, pairs []model.PairSnapshot) (model.WriteResult, error) {
	if len(pairs) == 0 {
		return model.WriteResult{}, nil
	}
	docs := make([]Document, len(pairs))
	for i := range pairs {
		docs[i] = Document{ID: pairs[i].PairAddress, Body: &pairs[i]}
	}
	return r.docs.Upsert(ctx, CollectionPairs, Replace, docs)
}

// PairRoster returns every stored pair.
func (r *Records) PairRoster(ctx context.Context) ([]model.PairSnapshot, error) {
	return find[model.PairSnapshot](ctx, r.docs, CollectionPairs, nil)
}

// PairAddresses returns every stored pair address.
func (r *Records) PairAddresses(ctx context.Context) ([]string, error) {
	raws, err := r.docs.Find(ctx, CollectionPairs, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		if id, ok := raw.Lookup("_id").StringValueOK(); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// MergePair overwrites the fields of a stored pair with fresh metadata and
// stamps lastUpdated. Fields the snapshot omits are left untouched.
func (r *Records) MergePair(ctx context.Context, pair *model.PairSnapshot) (model.WriteResult, error) {
	p := *pair
	p.LastUpdated = r.now().UTC()
	return r.docs.Upsert(ctx, CollectionPairs, Merge, []Document{{ID: p.PairAddress, Body: &p}})
}

// MergeMarketCaps sets marketCap on each pair in caps (pair address -> cap).
func (r *Records) MergeMarketCaps(ctx context.Context, caps map[string]float64) (model.WriteResult, error) {
	if len(caps) == 0 {
		return model.WriteResult{}, nil
	}
	now := r.now().UTC()
	docs := make([]Document, 0, len(caps))
	for pair, mc := range caps {
		docs = append(docs, Document{ID: pair, Body: bson.D{
			{Key: "marketCap", Value: mc},
			{Key: "lastUpdated", Value: now},
		}})
	}
	return r.docs.Upsert(ctx, CollectionPairs, Merge, docs)
}

// UpsertIndicator supersedes the stored snapshot for the token.
func (r *Records) UpsertIndicator(ctx context.Context, snap *model.IndicatorSnapshot) (model.WriteResult, error) {
	return r.docs.Upsert(ctx, CollectionIndicators, Replace, []Document{{ID: snap.TokenAddress, Body: snap}})
}

// Indicators returns every stored indicator snapshot.
func (r *Records) Indicators(ctx context.Context) ([]model.IndicatorSnapshot, error) {
	return find[model.IndicatorSnapshot](ctx, r.docs, CollectionIndicators, nil)
}

// Indicator returns the snapshot stored for token, or nil when there is none.
func (r *Records) Indicator(ctx context.Context, token string) (*model.IndicatorSnapshot, error) {
	snaps, err := find[model.IndicatorSnapshot](ctx, r.docs, CollectionIndicators, Filter{"_id": token})
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return &snaps[0], nil
}

// ActiveSubscribers returns subscribers whose status is active.
func (r *Records) ActiveSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	return find[model.Subscriber](ctx, r.docs, CollectionSubscribers, Filter{"status": model.SubscriberActive})
}

// AddSubscriber upserts a subscriber keyed by email.
func (r *Records) AddSubscriber(ctx context.Context, sub model.Subscriber) error {
	_, err := r.docs.Upsert(ctx, CollectionSubscribers, Replace, []Document{{ID: sub.Email, Body: sub}})
	return err
}

func find[T any](ctx context.Context, docs DocumentStore, collection string, f Filter) ([]T, error) {
	raws, err := docs.Find(ctx, collection, f)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := bson.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}
