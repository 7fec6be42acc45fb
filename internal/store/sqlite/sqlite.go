// Package sqlite is a single-file DocumentStore. Documents are stored as
// relaxed Extended JSON so filters can use json_extract.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/bson"

	"pumpwatch/internal/model"
	"pumpwatch/internal/store"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/pumpwatch.db"
}

// Store is a DocumentStore on a single SQLite file.
type Store struct {
	db *sql.DB
}

// New opens the database with WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, &model.StoreUnavailableError{Op: "sqlite schema", Err: err}
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			body       TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			PRIMARY KEY (collection, id)
		);
	`)
	return err
}

// Upsert writes docs in a single transaction.
func (s *Store) Upsert(ctx context.Context, collection string, mode store.Mode, docs []store.Document) (model.WriteResult, error) {
	var res model.WriteResult
	if len(docs) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, &model.StoreUnavailableError{Op: "sqlite begin", Err: err}
	}
	defer tx.Rollback()

	sel, err := tx.PrepareContext(ctx, `SELECT body FROM documents WHERE collection = ? AND id = ?`)
	if err != nil {
		return res, err
	}
	defer sel.Close()

	ins, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO documents (collection, id, body, updated_at)
		VALUES (?, ?, ?, strftime('%s', 'now'))
	`)
	if err != nil {
		return res, err
	}
	defer ins.Close()

	for _, d := range docs {
		var prevJSON sql.NullString
		if err := sel.QueryRowContext(ctx, collection, d.ID).Scan(&prevJSON); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return res, err
		}

		next, err := s.encode(mode, d, prevJSON)
		if err != nil {
			return res, fmt.Errorf("document %s: %w", d.ID, err)
		}

		var prev []byte
		if prevJSON.Valid {
			prev = []byte(prevJSON.String)
		}
		m, mod, up := store.Diff(prev, next)
		res.Add(model.WriteResult{Matched: m, Modified: mod, Upserted: up})

		if _, err := ins.ExecContext(ctx, collection, d.ID, string(next)); err != nil {
			return model.WriteResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.WriteResult{}, err
	}
	return res, nil
}

func (s *Store) encode(mode store.Mode, d store.Document, prevJSON sql.NullString) ([]byte, error) {
	if mode == store.Replace || !prevJSON.Valid {
		doc, err := store.Encode(d.ID, d.Body)
		if err != nil {
			return nil, err
		}
		return bson.MarshalExtJSON(doc, false, false)
	}

	prev, err := fromExtJSON(prevJSON.String)
	if err != nil {
		return nil, err
	}
	fields, err := store.Fields(d.Body)
	if err != nil {
		return nil, err
	}
	merged, err := store.MergeInto(prev, fields)
	if err != nil {
		return nil, err
	}
	return bson.MarshalExtJSON(merged, false, false)
}

// Find returns matching documents ordered by id. Filter paths become
// json_extract expressions.
func (s *Store) Find(ctx context.Context, collection string, filter store.Filter) ([]bson.Raw, error) {
	query := `SELECT body FROM documents WHERE collection = ?`
	args := []any{collection}
	for path, want := range filter {
		query += ` AND json_extract(body, ?) = ?`
		args = append(args, jsonPath(path), want)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &model.StoreUnavailableError{Op: "sqlite find " + collection, Err: err}
	}
	defer rows.Close()

	var out []bson.Raw
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		raw, err := fromExtJSON(body)
		if err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &model.StoreUnavailableError{Op: "sqlite ping", Err: err}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

func fromExtJSON(body string) (bson.Raw, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON([]byte(body), false, &d); err != nil {
		return nil, err
	}
	return bson.Marshal(d)
}

// jsonPath quotes each segment so keys like "rsi-5m" resolve.
func jsonPath(path string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, part := range strings.Split(path, ".") {
		b.WriteString(`."`)
		b.WriteString(strings.ReplaceAll(part, `"`, `\"`))
		b.WriteString(`"`)
	}
	return b.String()
}
