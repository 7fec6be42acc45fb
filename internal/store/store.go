// Package store persists pair, indicator and subscriber records on top of a
// generic upsert-capable document store.
//
// Backends (mongo, sqlite, memory) implement DocumentStore and all encode
// documents through the bson tags on the model types, so a record written by
// one backend decodes identically from another.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"pumpwatch/internal/model"
)

// Collection names.
const (
	CollectionPairs       = "pairs"
	CollectionIndicators  = "rsi_data"
	CollectionSubscribers = "mails"
)

// Mode selects upsert semantics.
type Mode int

const (
	// Replace overwrites the whole document.
	Replace Mode = iota
	// Merge overwrites only the top-level fields present in the body.
	Merge
)

func (m Mode) String() string {
	if m == Merge {
		return "merge"
	}
	return "replace"
}

// Document is one keyed write. Body is anything bson can marshal; its _id
// field, if any, is replaced by ID.
type Document struct {
	ID   string
	Body any
}

// Filter matches documents by field equality. Keys may be dotted paths.
// A nil Filter matches everything.
type Filter map[string]any

// DocumentStore is the contract every backend implements.
type DocumentStore interface {
	// Upsert writes docs keyed by ID. Missing documents are inserted.
	Upsert(ctx context.Context, collection string, mode Mode, docs []Document) (model.WriteResult, error)

	// Find returns matching documents ordered by ID.
	Find(ctx context.Context, collection string, filter Filter) ([]bson.Raw, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
