package store

import (
	"bytes"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Encode marshals body into a document whose first field is _id = id.
func Encode(id string, body any) (bson.D, error) {
	fields, err := fieldsOf(body)
	if err != nil {
		return nil, err
	}
	out := make(bson.D, 0, len(fields)+1)
	out = append(out, bson.E{Key: "_id", Value: id})
	return append(out, fields...), nil
}

// Fields marshals body and returns its top-level fields without _id.
func Fields(body any) (bson.D, error) {
	return fieldsOf(body)
}

func fieldsOf(body any) (bson.D, error) {
	raw, err := bson.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	out := d[:0]
	for _, e := range d {
		if e.Key != "_id" {
			out = append(out, e)
		}
	}
	return out, nil
}

// MergeInto overlays the top-level fields of update onto existing.
// Fields absent from update are kept.
func MergeInto(existing bson.Raw, update bson.D) (bson.D, error) {
	var d bson.D
	if err := bson.Unmarshal(existing, &d); err != nil {
		return nil, fmt.Errorf("decode existing document: %w", err)
	}
	for _, u := range update {
		replaced := false
		for i := range d {
			if d[i].Key == u.Key {
				d[i].Value = u.Value
				replaced = true
				break
			}
		}
		if !replaced {
			d = append(d, u)
		}
	}
	return d, nil
}

// Diff builds the WriteResult for one write given the previous and new encodings.
// prev is nil when the document did not exist.
func Diff(prev, next []byte) (matched, modified, upserted int64) {
	if prev == nil {
		return 0, 0, 1
	}
	if bytes.Equal(prev, next) {
		return 1, 0, 0
	}
	return 1, 1, 0
}

// Matches evaluates f against doc.
func Matches(doc bson.Raw, f Filter) bool {
	for path, want := range f {
		rv, err := doc.LookupErr(strings.Split(path, ".")...)
		if err != nil || !equal(rv, want) {
			return false
		}
	}
	return true
}

func equal(rv bson.RawValue, want any) bool {
	switch w := want.(type) {
	case string:
		s, ok := rv.StringValueOK()
		return ok && s == w
	case bool:
		b, ok := rv.BooleanOK()
		return ok && b == w
	case int:
		f, ok := number(rv)
		return ok && f == float64(w)
	case int64:
		f, ok := number(rv)
		return ok && f == float64(w)
	case float64:
		f, ok := number(rv)
		return ok && f == w
	default:
		return false
	}
}

func number(rv bson.RawValue) (float64, bool) {
	switch rv.Type {
	case bsontype.Double:
		return rv.Double(), true
	case bsontype.Int32:
		return float64(rv.Int32()), true
	case bsontype.Int64:
		return float64(rv.Int64()), true
	default:
		return 0, false
	}
}
