package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	"pumpwatch/internal/model"
)

// Guarded wraps a DocumentStore with a circuit breaker. Only
// StoreUnavailableError trips the breaker; while it is open every call fails
// fast with StoreUnavailableError.
type Guarded struct {
	inner DocumentStore
	cb    *CircuitBreaker
}

// NewGuarded wraps inner. cb.Trips is overwritten.
func NewGuarded(inner DocumentStore, cb *CircuitBreaker) *Guarded {
	cb.Trips = IsUnavailable
	return &Guarded{inner: inner, cb: cb}
}

// Breaker exposes the breaker for health reporting.
func (g *Guarded) Breaker() *CircuitBreaker { return g.cb }

func (g *Guarded) Upsert(ctx context.Context, collection string, mode Mode, docs []Document) (model.WriteResult, error) {
	var res model.WriteResult
	err := g.run("upsert "+collection, func() (err error) {
		res, err = g.inner.Upsert(ctx, collection, mode, docs)
		return err
	})
	return res, err
}

func (g *Guarded) Find(ctx context.Context, collection string, filter Filter) ([]bson.Raw, error) {
	var docs []bson.Raw
	err := g.run("find "+collection, func() (err error) {
		docs, err = g.inner.Find(ctx, collection, filter)
		return err
	})
	return docs, err
}

// Ping always reaches the backend so health checks see real state.
func (g *Guarded) Ping(ctx context.Context) error {
	return g.inner.Ping(ctx)
}

func (g *Guarded) Close(ctx context.Context) error {
	return g.inner.Close(ctx)
}

func (g *Guarded) run(op string, fn func() error) error {
	err := g.cb.Execute(fn)
	if errors.Is(err, ErrCircuitOpen) {
		return &model.StoreUnavailableError{Op: op, Err: err}
	}
	return err
}

// IsUnavailable reports whether err means the backend could not be reached.
func IsUnavailable(err error) bool {
	var su *model.StoreUnavailableError
	return errors.As(err, &su)
}
