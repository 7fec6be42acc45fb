package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"pumpwatch/internal/model"
)

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) Upsert(ctx context.Context, collection string, mode Mode, docs []Document) (model.WriteResult, error) {
	f.calls++
	return model.WriteResult{}, f.err
}

func (f *flakyStore) Find(ctx context.Context, collection string, filter Filter) ([]bson.Raw, error) {
	f.calls++
	return nil, f.err
}

func (f *flakyStore) Ping(ctx context.Context) error  { return f.err }
func (f *flakyStore) Close(ctx context.Context) error { return nil }

func TestGuarded_OpensOnUnavailable(t *testing.T) {
	inner := &flakyStore{err: &model.StoreUnavailableError{Op: "dial", Err: errors.New("refused")}}
	g := NewGuarded(inner, NewCircuitBreaker(2, time.Minute))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Find(ctx, CollectionPairs, nil)
		require.Error(t, err)
	}
	assert.Equal(t, StateOpen, g.Breaker().CurrentState())

	_, err := g.Upsert(ctx, CollectionPairs, Replace, nil)
	var su *model.StoreUnavailableError
	require.True(t, errors.As(err, &su))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the backend")
}

func TestGuarded_DataErrorsDoNotTrip(t *testing.T) {
	inner := &flakyStore{err: errors.New("invalid document")}
	g := NewGuarded(inner, NewCircuitBreaker(1, time.Minute))

	for i := 0; i < 3; i++ {
		_, err := g.Upsert(context.Background(), CollectionPairs, Merge, nil)
		assert.EqualError(t, err, "invalid document")
	}
	assert.Equal(t, StateClosed, g.Breaker().CurrentState())
	assert.Equal(t, 3, inner.calls)
}
