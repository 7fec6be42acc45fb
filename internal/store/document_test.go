package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEncode_ForcesID(t *testing.T) {
	d, err := Encode("want", bson.M{"_id": "other", "a": 1})
	require.NoError(t, err)
	require.Len(t, d, 2)
	assert.Equal(t, "_id", d[0].Key)
	assert.Equal(t, "want", d[0].Value)
	assert.Equal(t, "a", d[1].Key)
}

func TestMergeInto(t *testing.T) {
	existing, err := bson.Marshal(bson.D{{Key: "_id", Value: "x"}, {Key: "a", Value: 1}, {Key: "b", Value: "keep"}})
	require.NoError(t, err)

	merged, err := MergeInto(existing, bson.D{{Key: "a", Value: 2}, {Key: "c", Value: true}})
	require.NoError(t, err)

	raw, err := bson.Marshal(merged)
	require.NoError(t, err)
	doc := bson.Raw(raw)
	assert.Equal(t, "x", doc.Lookup("_id").StringValue())
	assert.EqualValues(t, 2, doc.Lookup("a").Int32())
	assert.Equal(t, "keep", doc.Lookup("b").StringValue())
	assert.True(t, doc.Lookup("c").Boolean())
}

func TestDiff(t *testing.T) {
	m, mod, up := Diff(nil, []byte("a"))
	assert.Equal(t, [3]int64{0, 0, 1}, [3]int64{m, mod, up})
	m, mod, up = Diff([]byte("a"), []byte("a"))
	assert.Equal(t, [3]int64{1, 0, 0}, [3]int64{m, mod, up})
	m, mod, up = Diff([]byte("a"), []byte("b"))
	assert.Equal(t, [3]int64{1, 1, 0}, [3]int64{m, mod, up})
}

func TestMatches(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "status", Value: "active"},
		{Key: "n", Value: int32(3)},
		{Key: "f", Value: 2.5},
		{Key: "nested", Value: bson.D{{Key: "k", Value: "v"}}},
	})
	require.NoError(t, err)
	doc := bson.Raw(raw)

	assert.True(t, Matches(doc, nil))
	assert.True(t, Matches(doc, Filter{"status": "active"}))
	assert.False(t, Matches(doc, Filter{"status": "inactive"}))
	assert.True(t, Matches(doc, Filter{"n": 3}))
	assert.True(t, Matches(doc, Filter{"f": 2.5}))
	assert.True(t, Matches(doc, Filter{"nested.k": "v"}))
	assert.False(t, Matches(doc, Filter{"missing": "v"}))
	assert.False(t, Matches(doc, Filter{"status": "active", "n": 4}))
}
