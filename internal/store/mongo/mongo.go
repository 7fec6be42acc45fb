// Package mongo is the MongoDB DocumentStore.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"pumpwatch/internal/model"
	"pumpwatch/internal/store"
)

const (
	DefaultDatabase = "pumpwatch"

	connectTimeout = 30 * time.Second
	bulkBatchSize  = 100
)

// Config configures the MongoDB connection.
type Config struct {
	URI      string
	Database string
}

// Store is a DocumentStore backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB, verifies it with a ping and ensures indexes.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, &model.ConfigurationError{Missing: []string{"MONGO_URI"}}
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(connectTimeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, &model.StoreUnavailableError{Op: "mongo connect", Err: err}
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, &model.StoreUnavailableError{Op: "mongo ping", Err: err}
	}

	s := &Store{client: client, db: client.Database(cfg.Database)}
	if err := s.ensureIndexes(ctx); err != nil {
		log.Printf("[mongo] index creation warning: %v", err)
	}

	log.Printf("[mongo] connected to database %s", cfg.Database)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.db.Collection(store.CollectionIndicators).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "lastUpdated", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := s.db.Collection(store.CollectionSubscribers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}},
	})
	return err
}

// Upsert runs an unordered bulk write in batches of 100. Replace maps to
// ReplaceOne, Merge to UpdateOne with $set.
func (s *Store) Upsert(ctx context.Context, collection string, mode store.Mode, docs []store.Document) (model.WriteResult, error) {
	var res model.WriteResult
	if len(docs) == 0 {
		return res, nil
	}

	ops := make([]mongo.WriteModel, 0, len(docs))
	for _, d := range docs {
		filter := bson.D{{Key: "_id", Value: d.ID}}
		if mode == store.Merge {
			fields, err := store.Fields(d.Body)
			if err != nil {
				return res, fmt.Errorf("document %s: %w", d.ID, err)
			}
			ops = append(ops, mongo.NewUpdateOneModel().
				SetFilter(filter).
				SetUpdate(bson.D{{Key: "$set", Value: fields}}).
				SetUpsert(true))
			continue
		}
		doc, err := store.Encode(d.ID, d.Body)
		if err != nil {
			return res, fmt.Errorf("document %s: %w", d.ID, err)
		}
		ops = append(ops, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(doc).
			SetUpsert(true))
	}

	coll := s.db.Collection(collection)
	bulkOpts := options.BulkWrite().SetOrdered(false)
	for i := 0; i < len(ops); i += bulkBatchSize {
		end := i + bulkBatchSize
		if end > len(ops) {
			end = len(ops)
		}
		r, err := coll.BulkWrite(ctx, ops[i:end], bulkOpts)
		if r != nil {
			res.Add(model.WriteResult{Matched: r.MatchedCount, Modified: r.ModifiedCount, Upserted: r.UpsertedCount})
		}
		if err != nil {
			return res, classify("upsert "+collection, err)
		}
	}
	return res, nil
}

// Find returns matching documents sorted by _id.
func (s *Store) Find(ctx context.Context, collection string, filter store.Filter) ([]bson.Raw, error) {
	f := bson.M{}
	for k, v := range filter {
		f[k] = v
	}

	cur, err := s.db.Collection(collection).Find(ctx, f, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, classify("find "+collection, err)
	}
	defer cur.Close(ctx)

	var out []bson.Raw
	for cur.Next(ctx) {
		out = append(out, append(bson.Raw(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, classify("find "+collection, err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return &model.StoreUnavailableError{Op: "mongo ping", Err: err}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// classify wraps connectivity failures as StoreUnavailableError so the
// breaker can trip on them. Other errors pass through.
func classify(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		errors.Is(err, context.DeadlineExceeded) {
		return &model.StoreUnavailableError{Op: "mongo " + op, Err: err}
	}
	return err
}
