// Package memory is an in-process DocumentStore for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"pumpwatch/internal/model"
	"pumpwatch/internal/store"
)

// Store keeps documents as bson.Raw per collection.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]bson.Raw
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string]map[string]bson.Raw)}
}

func (s *Store) Upsert(ctx context.Context, collection string, mode store.Mode, docs []store.Document) (model.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return model.WriteResult{}, err
	}

	// Encode outside the lock so a bad document leaves the store untouched.
	type pending struct {
		id     string
		fields bson.D
	}
	batch := make([]pending, len(docs))
	for i, d := range docs {
		var (
			fields bson.D
			err    error
		)
		if mode == store.Merge {
			fields, err = store.Fields(d.Body)
		} else {
			fields, err = store.Encode(d.ID, d.Body)
		}
		if err != nil {
			return model.WriteResult{}, err
		}
		batch[i] = pending{id: d.ID, fields: fields}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.data[collection]
	if coll == nil {
		coll = make(map[string]bson.Raw)
		s.data[collection] = coll
	}

	var res model.WriteResult
	for _, p := range batch {
		prev, exists := coll[p.id]
		doc := p.fields
		if mode == store.Merge {
			base := prev
			if !exists {
				base, _ = bson.Marshal(bson.D{{Key: "_id", Value: p.id}})
			}
			merged, err := store.MergeInto(base, p.fields)
			if err != nil {
				return res, err
			}
			doc = merged
		}
		raw, err := bson.Marshal(doc)
		if err != nil {
			return res, err
		}

		var before []byte
		if exists {
			before = prev
		}
		m, mod, up := store.Diff(before, raw)
		res.Add(model.WriteResult{Matched: m, Modified: mod, Upserted: up})
		coll[p.id] = raw
	}
	return res, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter store.Filter) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.data[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]bson.Raw, 0, len(ids))
	for _, id := range ids {
		doc := coll[id]
		if store.Matches(doc, filter) {
			out = append(out, append(bson.Raw(nil), doc...))
		}
	}
	return out, nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collection])
}

func (s *Store) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *Store) Close(ctx context.Context) error { return nil }
